package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/validate"
)

const sessionCookie = "sid"

// cartSession resolves the anonymous cart session. An explicit id from the
// body or the sessionId query parameter wins over the cookie; with neither, a
// new id is minted and set as a cookie.
func cartSession(c *fiber.Ctx, explicit string) (string, error) {
	if explicit == "" {
		explicit = c.Query("sessionId")
	}
	if explicit != "" {
		sid, ok := validate.SessionID(explicit)
		if !ok {
			return "", domain.Invalid("sessionId", "malformed session id")
		}
		return sid, nil
	}
	if sid, ok := validate.SessionID(c.Cookies(sessionCookie)); ok {
		return sid, nil
	}
	sid := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false, // enable true behind TLS
	})
	return sid, nil
}
