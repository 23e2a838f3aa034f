package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"storefront/internal/config"
	applog "storefront/internal/log"
	"storefront/web"
)

const (
	bodyLimit = 1 << 20 // 1 MiB

	globalMax    = 120
	loginMax     = 5
	loginWindow  = 10 * time.Minute
	globalWindow = time.Minute
)

const genericError = "Something went wrong. Please try again."

// NewApp builds the fiber app with middleware and every route.
func NewApp(cfg config.Config, d *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:     web.Engine(cfg.IsDevelopment()),
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				// framework errors such as 404 or 413 are safe to pass through
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": genericError})
		},
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowCredentials: cfg.CORSAllowOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        globalMax,
		Expiration: globalWindow,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/healthz")
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))

	admin := RequireAdmin(d.Auth)

	app.Get("/products", d.ProductHandler.List)
	app.Get("/products/:id", d.ProductHandler.Detail)
	app.Post("/products", admin, d.ProductHandler.Create)
	app.Put("/products/:id", admin, d.ProductHandler.Update)
	app.Delete("/products/:id", admin, d.ProductHandler.Delete)

	app.Get("/cart", d.CartHandler.View)
	app.Post("/cart", d.CartHandler.Add)
	app.Put("/cart", d.CartHandler.Update)
	app.Delete("/cart", d.CartHandler.Delete)

	app.Post("/orders", d.OrderHandler.Place)
	app.Get("/orders", admin, d.OrderHandler.List)
	app.Get("/orders/:id", admin, d.OrderHandler.Detail)

	app.Post("/subscribe", d.NewsletterHandler.Subscribe)

	app.Post("/admin/login", limiter.New(limiter.Config{
		Max:        loginMax,
		Expiration: loginWindow,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many attempts. Please try again later."})
		},
	}), d.AdminHandler.Login)
	app.Get("/admin/check-auth", d.AdminHandler.CheckAuth)
	app.Post("/admin/logout", d.AdminHandler.Logout)

	app.Get("/admin/dashboard", admin, d.AdminHandler.Dashboard)
	app.Get("/admin/supplier/credentials", admin, d.AdminHandler.Credentials)
	app.Post("/admin/supplier/credentials", admin, d.AdminHandler.SaveCredentials)

	app.Post("/supplier/import", admin, d.SupplierHandler.Import)
	app.Post("/supplier/forward-order", admin, d.SupplierHandler.ForwardOrder)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := d.DB.PingContext(c.UserContext()); err != nil {
			applog.Error(c, "health.db", err, nil)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
		}
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
	return app
}
