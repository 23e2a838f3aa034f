package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/supplier"
	"storefront/internal/validate"
)

type SupplierHandler struct {
	Sync *supplier.Syncer
}

// POST /supplier/import {"productId": "..."}
func (h *SupplierHandler) Import(c *fiber.Ctx) error {
	var in struct {
		ProductID string `json:"productId" form:"productId"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "supplier.import")
	}
	res, err := h.Sync.ImportProduct(c.UserContext(), in.ProductID)
	if err != nil {
		return writeError(c, "supplier.import", err)
	}
	applog.Audit(c, "supplier.import", map[string]any{
		"product_id": res.Product.ID,
		"external":   in.ProductID,
		"match_by":   string(res.MatchBy),
		"created":    res.Created,
	})
	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"product": res.Product,
		"created": res.Created,
		"matchBy": res.MatchBy,
	})
}

// POST /supplier/forward-order {"orderId": "..."}
func (h *SupplierHandler) ForwardOrder(c *fiber.Ctx) error {
	var in struct {
		OrderID string `json:"orderId" form:"orderId"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "supplier.forward")
	}
	if _, ok := validate.ID(in.OrderID); !ok {
		return writeError(c, "supplier.forward", domain.Invalid("orderId", "required"))
	}
	ref, err := h.Sync.ForwardOrder(c.UserContext(), in.OrderID)
	if err != nil {
		return writeError(c, "supplier.forward", err)
	}
	applog.Audit(c, "supplier.forward", map[string]any{
		"order_id":          ref.OrderID,
		"supplier_order_id": ref.SupplierOrderID,
	})
	return c.JSON(ref)
}
