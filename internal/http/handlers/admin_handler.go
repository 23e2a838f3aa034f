package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AdminHandler struct {
	Auth    *services.AdminAuth
	Orders  *services.OrderService
	Catalog *services.CatalogService
	Creds   *services.CredentialService
	Subs    *repos.SubscriberRepo
}

// POST /admin/login
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var in struct {
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "admin.login")
	}
	if !validate.Password(in.Password) {
		applog.Security(c, "admin.login.fail", map[string]any{"reason": "malformed"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid password"})
	}
	tok, exp, err := h.Auth.Login(in.Password)
	switch {
	case errors.Is(err, services.ErrAdminDisabled):
		applog.Security(c, "admin.login.fail", map[string]any{"reason": "disabled"})
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin login is not configured"})
	case errors.Is(err, services.ErrBadCreds):
		applog.Security(c, "admin.login.fail", map[string]any{"reason": "bad_password"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid password"})
	case err != nil:
		return writeError(c, "admin.login", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     adminCookie,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Secure:   false, // enable true behind TLS
	})
	applog.Audit(c, "admin.login", nil)
	return c.JSON(fiber.Map{"token": tok, "expiresAt": exp})
}

// GET /admin/check-auth
func (h *AdminHandler) CheckAuth(c *fiber.Ctx) error {
	tok := adminToken(c)
	if tok == "" {
		return c.JSON(fiber.Map{"authenticated": false})
	}
	claims, err := h.Auth.Verify(tok)
	if err != nil {
		return c.JSON(fiber.Map{"authenticated": false})
	}
	return c.JSON(fiber.Map{"authenticated": true, "expiresAt": claims.ExpiresAt.Time})
}

// POST /admin/logout drops the session cookie. Tokens are stateless, so a
// bearer token held elsewhere stays valid until it expires.
func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(adminCookie)
	applog.Audit(c, "admin.logout", nil)
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /admin/dashboard
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ords, err := h.Orders.List(ctx, 25)
	if err != nil {
		return writeError(c, "admin.dashboard", err)
	}
	prods, err := h.Catalog.List(ctx, repos.ProductFilter{}, 1, 100)
	if err != nil {
		return writeError(c, "admin.dashboard", err)
	}
	status, err := h.Creds.Status(ctx)
	if err != nil {
		return writeError(c, "admin.dashboard", err)
	}
	subs, err := h.Subs.Count(ctx)
	if err != nil {
		return writeError(c, "admin.dashboard", err)
	}
	return render(c, "admin_dashboard", fiber.Map{
		"Orders":      ords,
		"Products":    prods,
		"Supplier":    status,
		"Subscribers": subs,
	})
}

// GET /admin/supplier/credentials
func (h *AdminHandler) Credentials(c *fiber.Ctx) error {
	st, err := h.Creds.Status(c.UserContext())
	if err != nil {
		return writeError(c, "admin.credentials", err)
	}
	return c.JSON(st)
}

// POST /admin/supplier/credentials
func (h *AdminHandler) SaveCredentials(c *fiber.Ctx) error {
	var in struct {
		Email  string `json:"email" form:"email"`
		APIKey string `json:"apiKey" form:"apiKey"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "admin.credentials.save")
	}
	if err := h.Creds.Save(c.UserContext(), in.Email, in.APIKey); err != nil {
		return writeError(c, "admin.credentials.save", err)
	}
	applog.Audit(c, "admin.credentials.save", nil)
	st, err := h.Creds.Status(c.UserContext())
	if err != nil {
		return writeError(c, "admin.credentials", err)
	}
	return c.JSON(st)
}
