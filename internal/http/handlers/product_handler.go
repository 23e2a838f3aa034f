package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

type productInput struct {
	Name                string      `json:"name" form:"name"`
	Description         string      `json:"description" form:"description"`
	DetailedDescription string      `json:"detailedDescription" form:"detailedDescription"`
	BasePrice           json.Number `json:"basePrice" form:"basePrice"`
	ShippingCost        json.Number `json:"shippingCost" form:"shippingCost"`
	ProfitMargin        json.Number `json:"profitMargin" form:"profitMargin"`
	ImageURL            string      `json:"imageUrl" form:"imageUrl"`
	AdditionalImages    []string    `json:"additionalImages" form:"additionalImages"`
	Category            string      `json:"category" form:"category"`
	Stock               int         `json:"stock" form:"stock"`
	IsFeatured          bool        `json:"isFeatured" form:"isFeatured"`
}

// amount parses an optional money or percent field; absent means zero.
func amount(field string, n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, ok := validate.Amount(n.String())
	if !ok {
		return decimal.Zero, domain.Invalid(field, "must be a non-negative number")
	}
	return d, nil
}

func (in productInput) product(id string) (*domain.Product, error) {
	base, err := amount("basePrice", in.BasePrice)
	if err != nil {
		return nil, err
	}
	ship, err := amount("shippingCost", in.ShippingCost)
	if err != nil {
		return nil, err
	}
	margin, err := amount("profitMargin", in.ProfitMargin)
	if err != nil {
		return nil, err
	}
	return &domain.Product{
		ID:                  id,
		Name:                in.Name,
		Description:         in.Description,
		DetailedDescription: in.DetailedDescription,
		BasePrice:           base,
		ShippingCost:        ship,
		ProfitMargin:        margin,
		ImageURL:            in.ImageURL,
		AdditionalImages:    domain.ImageList(in.AdditionalImages),
		Category:            in.Category,
		Stock:               in.Stock,
		IsFeatured:          in.IsFeatured,
	}, nil
}

func productID(c *fiber.Ctx) (string, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return "", domain.Invalid("id", "malformed product id")
	}
	return id, nil
}

// GET /products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	f := repos.ProductFilter{
		Category: c.Query("category"),
		Featured: c.QueryBool("featured"),
	}
	items, err := h.Catalog.List(c.UserContext(), f, c.QueryInt("page", 1), c.QueryInt("pageSize", 24))
	if err != nil {
		return writeError(c, "products.list", err)
	}
	return c.JSON(items)
}

// GET /products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return writeError(c, "products.get", err)
	}
	p, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, "products.get", err)
	}
	return c.JSON(p)
}

// POST /products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in productInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "products.create")
	}
	p, err := in.product("")
	if err != nil {
		return writeError(c, "products.create", err)
	}
	v, err := h.Catalog.Create(c.UserContext(), p)
	if err != nil {
		return writeError(c, "products.create", err)
	}
	applog.Audit(c, "products.create", map[string]any{"product_id": v.ID})
	return c.Status(fiber.StatusCreated).JSON(v)
}

// PUT /products/:id
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return writeError(c, "products.update", err)
	}
	var in productInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, "products.update")
	}
	p, err := in.product(id)
	if err != nil {
		return writeError(c, "products.update", err)
	}
	v, err := h.Catalog.Update(c.UserContext(), p)
	if err != nil {
		return writeError(c, "products.update", err)
	}
	applog.Audit(c, "products.update", map[string]any{"product_id": id})
	return c.JSON(v)
}

// DELETE /products/:id
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return writeError(c, "products.delete", err)
	}
	if err := h.Catalog.Delete(c.UserContext(), id); err != nil {
		return writeError(c, "products.delete", err)
	}
	applog.Audit(c, "products.delete", map[string]any{"product_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
