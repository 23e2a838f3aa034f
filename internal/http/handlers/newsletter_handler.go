package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

type NewsletterHandler struct {
	News *services.NewsletterService
}

// POST /subscribe
func (h *NewsletterHandler) Subscribe(c *fiber.Ctx) error {
	var in struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "newsletter.subscribe")
	}
	created, err := h.News.Subscribe(c.UserContext(), in.Email)
	if err != nil {
		return writeError(c, "newsletter.subscribe", err)
	}
	if !created {
		return c.JSON(fiber.Map{"subscribed": true, "created": false})
	}
	applog.Info(c, "newsletter.subscribe", nil)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subscribed": true, "created": true})
}
