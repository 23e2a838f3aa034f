package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
)

type Product struct {
	ID                  string          `db:"id" json:"id"`
	SupplierProductID   *string         `db:"supplier_product_id" json:"supplierProductId,omitempty"`
	Name                string          `db:"name" json:"name"`
	Description         string          `db:"description" json:"description"`
	DetailedDescription string          `db:"detailed_description" json:"detailedDescription,omitempty"`
	BasePrice           decimal.Decimal `db:"base_price" json:"basePrice"`
	ShippingCost        decimal.Decimal `db:"shipping_cost" json:"shippingCost"`
	ProfitMargin        decimal.Decimal `db:"profit_margin" json:"profitMargin"` // percent, 12.5 == 12.5%
	ImageURL            string          `db:"image_url" json:"imageUrl"`
	AdditionalImages    ImageList       `db:"additional_images" json:"additionalImages"`
	Category            string          `db:"categories" json:"category"` // comma-delimited tags
	Stock               int             `db:"stock" json:"stock"`
	IsFeatured          bool            `db:"is_featured" json:"isFeatured"`
	CreatedAt           string          `db:"created_at" json:"createdAt"`
	UpdatedAt           string          `db:"updated_at" json:"updatedAt,omitempty"`
}

// Categories splits the comma-delimited tag string.
func (p Product) Categories() []string { return SplitTags(p.Category) }

// SplitTags trims and drops empty entries of a comma-delimited list.
func SplitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ImageList is an ordered list of image references stored as a JSON array.
type ImageList []string

func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func (l *ImageList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = ImageList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("image list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = ImageList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("image list: %w", err)
	}
	*l = out
	return nil
}

type CartLine struct {
	ID        int64  `db:"id" json:"id"`
	SessionID string `db:"session_id" json:"sessionId"`
	ProductID string `db:"product_id" json:"productId"`
	Quantity  int    `db:"quantity" json:"quantity"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

type Order struct {
	ID              string          `db:"id" json:"id"`
	SessionID       string          `db:"session_id" json:"sessionId"`
	Email           string          `db:"email" json:"email"`
	FullName        string          `db:"full_name" json:"fullName"`
	Address         string          `db:"address" json:"address"`
	City            string          `db:"city" json:"city"`
	PostalCode      string          `db:"postal_code" json:"postalCode"`
	Country         string          `db:"country" json:"country"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax             decimal.Decimal `db:"tax" json:"tax"`
	Shipping        decimal.Decimal `db:"shipping" json:"shipping"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status          string          `db:"status" json:"status"`
	SupplierOrderID string          `db:"supplier_order_id" json:"supplierOrderId,omitempty"`
	CreatedAt       string          `db:"created_at" json:"createdAt"`
	Items           []OrderItem     `db:"-" json:"items,omitempty"`
}

// OrderItem is a price snapshot taken when the order was placed.
type OrderItem struct {
	OrderID           string          `db:"order_id" json:"-"`
	ProductID         string          `db:"product_id" json:"productId"`
	ProductName       string          `db:"product_name" json:"productName"`
	SupplierProductID string          `db:"supplier_product_id" json:"supplierProductId,omitempty"`
	Quantity          int             `db:"quantity" json:"quantity"`
	UnitPrice         decimal.Decimal `db:"unit_price" json:"unitPrice"`
}

// SupplierCredential is the singleton integration record.
type SupplierCredential struct {
	Email       string
	APIKey      string
	AccessToken string
	TokenExpiry time.Time // zero when no token is cached
	UpdatedAt   string
}

func (c SupplierCredential) Configured() bool { return c.Email != "" && c.APIKey != "" }
