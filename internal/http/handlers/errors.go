package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// writeError maps typed domain errors onto HTTP responses. Anything it does
// not recognise is logged and answered with a generic 500.
func writeError(c *fiber.Ctx, action string, err error) error {
	var (
		ve  *domain.ValidationError
		nf  *domain.NotFoundError
		ae  *domain.AuthenticationError
		rl  *domain.RateLimitedError
		rej *domain.SupplierRejectedError
		uo  *domain.UnconfirmedOrderError
		pf  *domain.PartialFailureError
	)
	switch {
	case errors.As(err, &ve):
		applog.Security(c, "validation.fail", map[string]any{"action": action, "field": ve.Field})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Error(), "code": "validation", "field": ve.Field})

	case errors.As(err, &nf):
		body := fiber.Map{"error": nf.Error(), "code": "not_found"}
		if len(nf.Tried) > 0 {
			body["tried"] = nf.Tried
		}
		return c.Status(fiber.StatusNotFound).JSON(body)

	case errors.Is(err, domain.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "supplier credentials are not configured; set them in the admin panel",
			"code":  "not_configured",
		})

	case errors.As(err, &ae):
		applog.Error(c, action+".auth", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": ae.Error(), "code": "supplier_auth"})

	case errors.As(err, &rl):
		applog.Info(c, action+".rate_limited", map[string]any{"attempts": rl.Attempts})
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(rl.RetryAfterSeconds))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":      "supplier rate limit exceeded, try again later",
			"code":       "rate_limited",
			"retryAfter": rl.RetryAfterSeconds,
		})

	case errors.As(err, &rej):
		applog.Info(c, action+".rejected", map[string]any{"supplier_code": rej.Code, "message": rej.Message})
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": rej.Message, "code": "supplier_rejected"})

	case errors.As(err, &uo):
		applog.Error(c, action+".unconfirmed", err, map[string]any{"supplier_code": uo.Code})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "the supplier reported success without an order id; check the supplier dashboard before resubmitting",
			"code":  "unconfirmed_order",
		})

	case errors.As(err, &pf):
		applog.Error(c, "supplier.forward.partial", pf.Err, map[string]any{
			"order_id":          pf.OrderID,
			"supplier_order_id": pf.SupplierOrderID,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":           "the supplier accepted the order but it could not be marked as forwarded; reconcile manually and do not resubmit",
			"code":            "partial_failure",
			"orderId":         pf.OrderID,
			"supplierOrderId": pf.SupplierOrderID,
		})
	}

	applog.Error(c, action+".fail", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong. Please try again.", "code": "internal"})
}

// badBody is the response for a body that does not parse.
func badBody(c *fiber.Ctx, action string) error {
	return writeError(c, action, domain.Invalid("body", "malformed JSON"))
}
