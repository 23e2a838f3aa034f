package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// CartItemRow is a cart line joined with the product fields pricing needs.
type CartItemRow struct {
	ID           int64           `db:"id"`
	Quantity     int             `db:"quantity"`
	ProductID    string          `db:"product_id"`
	Name         string          `db:"name"`
	Description  string          `db:"description"`
	ImageURL     string          `db:"image_url"`
	Category     string          `db:"categories"`
	Stock        int             `db:"stock"`
	BasePrice    decimal.Decimal `db:"base_price"`
	ShippingCost decimal.Decimal `db:"shipping_cost"`
	ProfitMargin decimal.Decimal `db:"profit_margin"`
	SupplierID   string          `db:"supplier_product_id"`
}

func (r CartItemRow) Product() domain.Product {
	p := domain.Product{
		ID:           r.ProductID,
		Name:         r.Name,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		Category:     r.Category,
		Stock:        r.Stock,
		BasePrice:    r.BasePrice,
		ShippingCost: r.ShippingCost,
		ProfitMargin: r.ProfitMargin,
	}
	if r.SupplierID != "" {
		sid := r.SupplierID
		p.SupplierProductID = &sid
	}
	return p
}

const cartLinesQuery = `
	  SELECT ci.id, ci.quantity, p.id AS product_id, p.name, p.description, p.image_url,
	         p.categories, p.stock, p.base_price, p.shipping_cost, p.profit_margin,
	         COALESCE(p.supplier_product_id,'') AS supplier_product_id
	  FROM cart_items ci JOIN products p ON p.id = ci.product_id
	  WHERE ci.session_id = ?
	  ORDER BY ci.created_at DESC, ci.id DESC`

func (r *CartRepo) Lines(ctx context.Context, sessionID string) ([]CartItemRow, error) {
	rows := []CartItemRow{}
	err := r.db.SelectContext(ctx, &rows, cartLinesQuery, sessionID)
	return rows, err
}

func (r *CartRepo) Line(ctx context.Context, sessionID string, itemID int64) (domain.CartLine, error) {
	var l domain.CartLine
	err := r.db.GetContext(ctx, &l, `
	  SELECT id, session_id, product_id, quantity, COALESCE(created_at,'') AS created_at
	  FROM cart_items WHERE id = ? AND session_id = ?`, itemID, sessionID)
	if err != nil {
		return domain.CartLine{}, notFoundOr(err, "cart item", itemID)
	}
	return l, nil
}

// Add creates the (session, product) line or increments its quantity.
func (r *CartRepo) Add(ctx context.Context, sessionID, productID string, qty int) (domain.CartLine, error) {
	var l domain.CartLine
	err := r.db.GetContext(ctx, &l, `
		INSERT INTO cart_items(session_id, product_id, quantity, created_at)
		VALUES(?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + excluded.quantity, updated_at = CURRENT_TIMESTAMP
		RETURNING id, session_id, product_id, quantity, COALESCE(created_at,'') AS created_at
	`, sessionID, productID, qty)
	return l, err
}

func (r *CartRepo) SetQuantity(ctx context.Context, sessionID string, itemID int64, qty int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND session_id = ?`, qty, itemID, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("cart item", itoa(itemID))
	}
	return nil
}

func (r *CartRepo) Remove(ctx context.Context, sessionID string, itemID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND session_id = ?`, itemID, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("cart item", itoa(itemID))
	}
	return nil
}

func (r *CartRepo) Clear(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id = ?`, sessionID)
	return err
}
