package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

const adminCookie = "admin_session"

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// adminToken returns the bearer token, or the session cookie for safe
// methods only, so a cookie alone never authorises a state change.
func adminToken(c *fiber.Ctx) string {
	if tok := bearer(c); tok != "" {
		return tok
	}
	if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
		return c.Cookies(adminCookie)
	}
	return ""
}

func RequireAdmin(auth *services.AdminAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := adminToken(c)
		if tok == "" {
			applog.Security(c, "access.denied.admin", map[string]any{"reason": "missing_token"})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "admin login required"})
		}
		claims, err := auth.Verify(tok)
		if err != nil {
			applog.Security(c, "access.denied.admin", map[string]any{"reason": "invalid_token"})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "admin login required"})
		}
		c.Locals("admin", claims.ID)
		return c.Next()
	}
}
