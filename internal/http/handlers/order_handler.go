package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type OrderHandler struct {
	Order *services.OrderService
}

type orderInput struct {
	SessionID   string           `json:"sessionId" form:"sessionId"`
	Email       string           `json:"email" form:"email"`
	FullName    string           `json:"fullName" form:"fullName"`
	Address     string           `json:"address" form:"address"`
	City        string           `json:"city" form:"city"`
	PostalCode  string           `json:"postalCode" form:"postalCode"`
	Country     string           `json:"country" form:"country"`
	TotalAmount *decimal.Decimal `json:"totalAmount" form:"totalAmount"`
}

// POST /orders places the session's cart. Any totalAmount in the body is
// compared against the recomputed total and never stored.
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var in orderInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "order.place")
	}
	sid, err := cartSession(c, in.SessionID)
	if err != nil {
		return writeError(c, "order.place", err)
	}
	contact := services.Contact{
		Email:      in.Email,
		FullName:   in.FullName,
		Address:    in.Address,
		City:       in.City,
		PostalCode: in.PostalCode,
		Country:    in.Country,
	}
	res, err := h.Order.Place(c.UserContext(), sid, contact, in.TotalAmount)
	if err != nil {
		return writeError(c, "order.place", err)
	}

	fields := map[string]any{
		"order_id":     res.Order.ID,
		"server_total": res.Order.TotalAmount.StringFixed(2),
		"mismatch":     res.Mismatch,
	}
	if res.ClientTotal != nil {
		fields["client_total"] = res.ClientTotal.String()
	}
	applog.Audit(c, "order.place", fields)
	if res.Mismatch {
		applog.Security(c, "order.total_mismatch", fields)
	}
	return c.Status(fiber.StatusCreated).JSON(res.Order)
}

// GET /orders
func (h *OrderHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	ords, err := h.Order.List(c.UserContext(), limit)
	if err != nil {
		return writeError(c, "orders.list", err)
	}
	return c.JSON(ords)
}

// GET /orders/:id
func (h *OrderHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return writeError(c, "orders.get", domain.Invalid("id", "malformed order id"))
	}
	o, err := h.Order.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, "orders.get", err)
	}
	return c.JSON(o)
}
