package services

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/repos"
)

// ProductView is a catalog row with its charged unit price.
type ProductView struct {
	domain.Product
	FinalPrice decimal.Decimal `json:"finalPrice"`
}

// ProductDetail adds the shipping discount schedule to a product view.
type ProductDetail struct {
	ProductView
	ShippingTiers []pricing.Tier  `json:"shippingTiers"`
	BaseShipping  decimal.Decimal `json:"baseShipping"`
}

type CatalogService struct {
	Prods *repos.ProductRepo
}

func NewCatalogService(prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Prods: prods}
}

func view(p domain.Product) ProductView {
	return ProductView{Product: p, FinalPrice: pricing.FinalUnitPrice(p)}
}

func (s *CatalogService) List(ctx context.Context, f repos.ProductFilter, page, pageSize int) ([]ProductView, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 24
	}
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize
	ps, err := s.Prods.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(ps))
	for _, p := range ps {
		out = append(out, view(p))
	}
	return out, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (ProductDetail, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}
	return ProductDetail{
		ProductView:   view(p),
		ShippingTiers: pricing.Schedule(),
		BaseShipping:  pricing.BaseShipping,
	}, nil
}

func checkProduct(p *domain.Product) error {
	if p.Name == "" {
		return domain.Invalid("name", "required")
	}
	for field, v := range map[string]decimal.Decimal{
		"basePrice":    p.BasePrice,
		"shippingCost": p.ShippingCost,
		"profitMargin": p.ProfitMargin,
	} {
		if v.IsNegative() {
			return domain.Invalid(field, "must be >= 0")
		}
	}
	if p.Stock < 0 {
		return domain.Invalid("stock", "must be >= 0")
	}
	return nil
}

func (s *CatalogService) Create(ctx context.Context, p *domain.Product) (ProductView, error) {
	if err := checkProduct(p); err != nil {
		return ProductView{}, err
	}
	if err := s.Prods.Create(ctx, p); err != nil {
		return ProductView{}, err
	}
	return view(*p), nil
}

func (s *CatalogService) Update(ctx context.Context, p *domain.Product) (ProductView, error) {
	if err := checkProduct(p); err != nil {
		return ProductView{}, err
	}
	if err := s.Prods.Update(ctx, p); err != nil {
		return ProductView{}, err
	}
	return view(*p), nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	return s.Prods.Delete(ctx, id)
}
