package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/repos"
)

type CartService struct {
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods}
}

func checkStock(p domain.Product, qty int) error {
	if qty > p.Stock {
		return domain.Invalid("quantity", fmt.Sprintf("only %d of %s in stock", p.Stock, p.Name))
	}
	return nil
}

// Add puts qty of productID in the session's cart, merging with an existing
// line for the same product.
func (s *CartService) Add(ctx context.Context, sessionID, productID string, qty int) (domain.CartLine, error) {
	if qty < 1 {
		return domain.CartLine{}, domain.Invalid("quantity", "must be at least 1")
	}
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	lines, err := s.Carts.Lines(ctx, sessionID)
	if err != nil {
		return domain.CartLine{}, err
	}
	already := 0
	for _, l := range lines {
		if l.ProductID == productID {
			already = l.Quantity
		}
	}
	if err := checkStock(p, already+qty); err != nil {
		return domain.CartLine{}, err
	}
	return s.Carts.Add(ctx, sessionID, productID, qty)
}

func (s *CartService) Update(ctx context.Context, sessionID string, itemID int64, qty int) error {
	if qty < 1 {
		return domain.Invalid("quantity", "must be at least 1")
	}
	l, err := s.Carts.Line(ctx, sessionID, itemID)
	if err != nil {
		return err
	}
	p, err := s.Prods.Get(ctx, l.ProductID)
	if err != nil {
		return err
	}
	if err := checkStock(p, qty); err != nil {
		return err
	}
	return s.Carts.SetQuantity(ctx, sessionID, itemID, qty)
}

func (s *CartService) Remove(ctx context.Context, sessionID string, itemID int64) error {
	return s.Carts.Remove(ctx, sessionID, itemID)
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	return s.Carts.Clear(ctx, sessionID)
}

type CartLineView struct {
	ID         int64           `json:"id"`
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"imageUrl"`
	Quantity   int             `json:"quantity"`
	Stock      int             `json:"stock"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
}

type CartView struct {
	SessionID string          `json:"sessionId"`
	Items     []CartLineView  `json:"items"`
	Summary   pricing.Summary `json:"summary"`
}

func (s *CartService) View(ctx context.Context, sessionID string) (CartView, error) {
	rows, err := s.Carts.Lines(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	cv := CartView{SessionID: sessionID, Items: make([]CartLineView, 0, len(rows))}
	lines := make([]pricing.Line, 0, len(rows))
	for _, r := range rows {
		p := r.Product()
		unit := pricing.FinalUnitPrice(p)
		cv.Items = append(cv.Items, CartLineView{
			ID:         r.ID,
			ProductID:  r.ProductID,
			Name:       r.Name,
			ImageURL:   r.ImageURL,
			Quantity:   r.Quantity,
			Stock:      r.Stock,
			FinalPrice: unit,
			LineTotal:  unit.Mul(decimal.NewFromInt(int64(r.Quantity))),
		})
		lines = append(lines, pricing.Line{Product: p, Quantity: r.Quantity})
	}
	cv.Summary = pricing.Quote(lines)
	return cv, nil
}
