package services

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/pricing"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

type Contact struct {
	Email      string
	FullName   string
	Address    string
	City       string
	PostalCode string
	Country    string
}

func (c Contact) normalised() (Contact, error) {
	var ok bool
	if c.Email, ok = validate.Email(c.Email); !ok {
		return c, domain.Invalid("email", "a valid email is required")
	}
	if c.FullName, ok = validate.Name(c.FullName); !ok {
		return c, domain.Invalid("fullName", "required")
	}
	if c.Address, ok = validate.Text(c.Address, 200); !ok {
		return c, domain.Invalid("address", "required")
	}
	if c.City, ok = validate.Text(c.City, 100); !ok {
		return c, domain.Invalid("city", "required")
	}
	if c.PostalCode, ok = validate.PostalCode(c.PostalCode); !ok {
		return c, domain.Invalid("postalCode", "required")
	}
	if c.Country, ok = validate.Country(c.Country); !ok {
		return c, domain.Invalid("country", "required")
	}
	return c, nil
}

type OrderService struct {
	Carts  *repos.CartRepo
	Orders *repos.OrderRepo
	Mail   *Mailer
}

func NewOrderService(carts *repos.CartRepo, orders *repos.OrderRepo, mail *Mailer) *OrderService {
	return &OrderService{Carts: carts, Orders: orders, Mail: mail}
}

// PlaceResult carries the stored order and, when the client sent its own
// total, whether that total disagreed with the server's.
type PlaceResult struct {
	Order       domain.Order
	ClientTotal *decimal.Decimal
	Mismatch    bool
}

// Place turns the session's cart into an order. Prices are recomputed from
// the catalog; a client-supplied total is only compared, never trusted.
// Stock decrement, order insert and cart clear commit together.
func (s *OrderService) Place(ctx context.Context, sessionID string, contact Contact, clientTotal *decimal.Decimal) (PlaceResult, error) {
	contact, err := contact.normalised()
	if err != nil {
		return PlaceResult{}, err
	}

	rows, err := s.Carts.Lines(ctx, sessionID)
	if err != nil {
		return PlaceResult{}, err
	}
	if len(rows) == 0 {
		return PlaceResult{}, domain.Invalid("cart", "cart is empty")
	}

	lines := make([]pricing.Line, 0, len(rows))
	items := make([]domain.OrderItem, 0, len(rows))
	for _, r := range rows {
		p := r.Product()
		lines = append(lines, pricing.Line{Product: p, Quantity: r.Quantity})
		items = append(items, domain.OrderItem{
			ProductID:         r.ProductID,
			ProductName:       r.Name,
			SupplierProductID: r.SupplierID,
			Quantity:          r.Quantity,
			UnitPrice:         pricing.Cents(pricing.FinalUnitPrice(p)),
		})
	}
	bill := pricing.Bill(lines)

	o := &domain.Order{
		SessionID:   sessionID,
		Email:       contact.Email,
		FullName:    contact.FullName,
		Address:     contact.Address,
		City:        contact.City,
		PostalCode:  contact.PostalCode,
		Country:     contact.Country,
		Subtotal:    bill.Subtotal,
		Tax:         bill.Tax,
		Shipping:    bill.Shipping,
		TotalAmount: bill.Total,
		Items:       items,
	}
	if err := s.Orders.PlaceFromCart(ctx, o, sessionID); err != nil {
		return PlaceResult{}, err
	}

	res := PlaceResult{Order: *o, ClientTotal: clientTotal}
	if clientTotal != nil && !pricing.Cents(*clientTotal).Equal(o.TotalAmount) {
		res.Mismatch = true
	}

	if s.Mail != nil {
		if err := s.Mail.OrderConfirmation(*o); err != nil {
			applog.L().Warn("mail.order_confirmation", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return res, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.Orders.Get(ctx, id)
}

func (s *OrderService) List(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.Orders.List(ctx, limit)
}
