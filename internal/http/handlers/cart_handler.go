package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartInput struct {
	SessionID string      `json:"sessionId" form:"sessionId"`
	ProductID string      `json:"productId" form:"productId"`
	ItemID    int64       `json:"itemId" form:"itemId"`
	Quantity  json.Number `json:"quantity" form:"quantity"`
}

// qty parses the quantity field. Adding defaults to one; updates must say.
func (in cartInput) qty(required bool) (int, error) {
	if in.Quantity == "" {
		if required {
			return 0, domain.Invalid("quantity", "required")
		}
		return 1, nil
	}
	n, ok := validate.Qty(in.Quantity.String())
	if !ok {
		return 0, domain.Invalid("quantity", "must be a whole number from 1 to 999")
	}
	return n, nil
}

func (h *CartHandler) respond(c *fiber.Ctx, sid string, status int) error {
	cv, err := h.Cart.View(c.UserContext(), sid)
	if err != nil {
		return writeError(c, "cart.view", err)
	}
	return c.Status(status).JSON(cv)
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	sid, err := cartSession(c, "")
	if err != nil {
		return writeError(c, "cart.view", err)
	}
	return h.respond(c, sid, fiber.StatusOK)
}

// POST /cart adds a product; quantity defaults to 1.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var in cartInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "cart.add")
	}
	sid, err := cartSession(c, in.SessionID)
	if err != nil {
		return writeError(c, "cart.add", err)
	}
	pid, ok := validate.ID(in.ProductID)
	if !ok {
		return writeError(c, "cart.add", domain.Invalid("productId", "required"))
	}
	qty, err := in.qty(false)
	if err != nil {
		return writeError(c, "cart.add", err)
	}
	if _, err := h.Cart.Add(c.UserContext(), sid, pid, qty); err != nil {
		return writeError(c, "cart.add", err)
	}
	return h.respond(c, sid, fiber.StatusCreated)
}

// PUT /cart sets the quantity of one line.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	var in cartInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "cart.update")
	}
	sid, err := cartSession(c, in.SessionID)
	if err != nil {
		return writeError(c, "cart.update", err)
	}
	if in.ItemID <= 0 {
		return writeError(c, "cart.update", domain.Invalid("itemId", "required"))
	}
	qty, err := in.qty(true)
	if err != nil {
		return writeError(c, "cart.update", err)
	}
	if err := h.Cart.Update(c.UserContext(), sid, in.ItemID, qty); err != nil {
		return writeError(c, "cart.update", err)
	}
	return h.respond(c, sid, fiber.StatusOK)
}

// DELETE /cart?itemId= removes one line; without itemId the cart is cleared.
func (h *CartHandler) Delete(c *fiber.Ctx) error {
	sid, err := cartSession(c, "")
	if err != nil {
		return writeError(c, "cart.delete", err)
	}
	raw := c.Query("itemId")
	if raw == "" {
		if err := h.Cart.Clear(c.UserContext(), sid); err != nil {
			return writeError(c, "cart.clear", err)
		}
		return h.respond(c, sid, fiber.StatusOK)
	}
	itemID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || itemID <= 0 {
		return writeError(c, "cart.delete", domain.Invalid("itemId", "malformed item id"))
	}
	if err := h.Cart.Remove(c.UserContext(), sid, itemID); err != nil {
		return writeError(c, "cart.delete", err)
	}
	return h.respond(c, sid, fiber.StatusOK)
}
