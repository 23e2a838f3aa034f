package supplier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// PlaceholderStock is used when the supplier reports no stock figure at all.
const PlaceholderStock = 999

type ProductStore interface {
	UpsertImported(ctx context.Context, p *domain.Product) (created bool, err error)
}

type OrderStore interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	MarkForwarded(ctx context.Context, id, supplierOrderID string) error
}

// Syncer imports supplier products into the catalog and forwards placed
// orders to the supplier.
type Syncer struct {
	client   *Client
	tokens   *TokenManager
	products ProductStore
	orders   OrderStore
}

func NewSyncer(client *Client, tokens *TokenManager, products ProductStore, orders OrderStore) *Syncer {
	return &Syncer{client: client, tokens: tokens, products: products, orders: orders}
}

// ImportResult describes one product import.
type ImportResult struct {
	Product domain.Product
	Created bool
	MatchBy LookupField
}

// ImportProduct looks externalID up by supplier product id, then by SKU, and
// upserts the first match into the catalog.
func (s *Syncer) ImportProduct(ctx context.Context, externalID string) (ImportResult, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return ImportResult{}, domain.Invalid("productId", "required")
	}
	tok, err := s.tokens.Ensure(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	var tried []string
	for _, field := range []LookupField{ByPID, BySKU} {
		tried = append(tried, string(field)+"="+externalID)
		list, err := s.client.LookupProducts(ctx, tok.Token, field, externalID)
		var rejected *domain.SupplierRejectedError
		switch {
		case errors.As(err, &rejected):
			applog.L().Info("supplier.import.miss", zap.String("by", string(field)), zap.String("message", rejected.Message))
			continue
		case err != nil:
			return ImportResult{}, err
		case len(list) == 0:
			applog.L().Info("supplier.import.miss", zap.String("by", string(field)))
			continue
		}

		p := MapProduct(list[0], externalID)
		created, err := s.products.UpsertImported(ctx, &p)
		if err != nil {
			return ImportResult{}, err
		}
		applog.L().Info("supplier.import.ok",
			zap.String("product_id", p.ID),
			zap.String("by", string(field)),
			zap.Bool("created", created),
			zap.Int("stock", p.Stock),
		)
		return ImportResult{Product: p, Created: created, MatchBy: field}, nil
	}
	return ImportResult{}, &domain.NotFoundError{Resource: "supplier product", ID: externalID, Tried: tried}
}

// MapProduct converts a supplier record into a catalog product. Shipping cost
// and margin start at zero for the admin to fill in.
func MapProduct(r RemoteProduct, externalID string) domain.Product {
	sid := strings.TrimSpace(r.PID)
	if sid == "" {
		sid = externalID
	}
	desc := r.ProductName
	if desc == "" {
		desc = r.ProductNameEn
	}
	category := r.CategoryName
	if strings.TrimSpace(category) == "" {
		category = "Imported"
	}
	return domain.Product{
		SupplierProductID: &sid,
		Name:              r.ProductNameEn,
		Description:       desc,
		BasePrice:         r.SellPrice.Decimal,
		ShippingCost:      decimal.Zero,
		ProfitMargin:      decimal.Zero,
		ImageURL:          r.ProductImage,
		Category:          category,
		Stock:             remoteStock(r),
	}
}

// remoteStock takes the first stock figure present: first variant, product
// total, then the flat variant field.
func remoteStock(r RemoteProduct) int {
	candidates := []*int{r.ProductStockQuantity, r.VariantQuantity}
	if len(r.VariantList) > 0 {
		candidates = append([]*int{r.VariantList[0].VariantQuantity}, candidates...)
	}
	for _, q := range candidates {
		if q != nil {
			return max(*q, 0)
		}
	}
	return PlaceholderStock
}

// SplitName splits at the first run of whitespace. A single word is all
// first name.
func SplitName(full string) (first, last string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// OrderRef is the outcome of a successful forward.
type OrderRef struct {
	OrderID         string `json:"orderId"`
	SupplierOrderID string `json:"supplierOrderId"`
	Status          string `json:"status"`
}

// ForwardOrder submits a pending order to the supplier and moves it to
// processing. If the supplier accepted the order but the local update
// failed, the error is a *domain.PartialFailureError and the order must be
// reconciled by hand; submitting again may create a duplicate remote order.
func (s *Syncer) ForwardOrder(ctx context.Context, orderID string) (OrderRef, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return OrderRef{}, err
	}
	if o.Status != domain.OrderStatusPending {
		return OrderRef{}, domain.Invalid("orderId", fmt.Sprintf("order is %s, only pending orders can be forwarded", o.Status))
	}
	if len(o.Items) == 0 {
		return OrderRef{}, domain.Invalid("orderId", "order has no items")
	}

	lines := make([]OrderLine, 0, len(o.Items))
	var unlinked []string
	for _, it := range o.Items {
		if it.SupplierProductID == "" {
			unlinked = append(unlinked, it.ProductID)
			continue
		}
		lines = append(lines, OrderLine{ProductID: it.SupplierProductID, Quantity: it.Quantity})
	}
	if len(unlinked) > 0 {
		return OrderRef{}, domain.Invalid("items", "not linked to a supplier product: "+strings.Join(unlinked, ", "))
	}

	tok, err := s.tokens.Ensure(ctx)
	if err != nil {
		return OrderRef{}, err
	}

	first, last := SplitName(o.FullName)
	remoteID, err := s.client.CreateOrder(ctx, tok.Token, OrderRequest{
		OrderNumber: "ORDER-" + o.ID,
		ShippingAddress: Address{
			FirstName: first,
			LastName:  last,
			Address:   o.Address,
			City:      o.City,
			Zip:       o.PostalCode,
			Country:   o.Country,
			Email:     o.Email,
		},
		Products: lines,
	})
	if err != nil {
		return OrderRef{}, err
	}

	if err := s.orders.MarkForwarded(ctx, o.ID, remoteID); err != nil {
		return OrderRef{}, &domain.PartialFailureError{OrderID: o.ID, SupplierOrderID: remoteID, Err: err}
	}
	return OrderRef{OrderID: o.ID, SupplierOrderID: remoteID, Status: domain.OrderStatusProcessing}, nil
}
