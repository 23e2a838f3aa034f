package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `
    id, session_id, email, full_name, address, city, postal_code, country,
    subtotal, tax, shipping, total_amount, status, supplier_order_id,
    COALESCE(created_at,'') AS created_at`

func insertOrder(ctx context.Context, tx *sqlx.Tx, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusPending
	}
	if _, err := tx.NamedExecContext(ctx, `
	  INSERT INTO orders
	    (id, session_id, email, full_name, address, city, postal_code, country,
	     subtotal, tax, shipping, total_amount, status, created_at)
	  VALUES
	    (:id, :session_id, :email, :full_name, :address, :city, :postal_code, :country,
	     :subtotal, :tax, :shipping, :total_amount, :status, CURRENT_TIMESTAMP)
	`, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if _, err := tx.NamedExecContext(ctx, `
		  INSERT INTO order_items(order_id, product_id, product_name, supplier_product_id, quantity, unit_price)
		  VALUES(:order_id, :product_id, :product_name, :supplier_product_id, :quantity, :unit_price)
		`, it); err != nil {
			return fmt.Errorf("insert order item %s: %w", it.ProductID, err)
		}
	}
	return nil
}

// Create records the order header and all of its items, or nothing.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return insertOrder(ctx, tx, o)
	})
}

// PlaceFromCart is Create plus stock decrement and clearing the session's
// cart, all in the same transaction.
func (r *OrderRepo) PlaceFromCart(ctx context.Context, o *domain.Order, sessionID string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, it := range o.Items {
			if err := decrementStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		if err := insertOrder(ctx, tx, o); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id = ?`, sessionID)
		return err
	})
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.NotFound("order", id)
	}
	if err != nil {
		return domain.Order{}, err
	}
	items, err := r.ForwardLines(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

// ForwardLines returns the order's item snapshots. A missing supplier id on
// the snapshot falls back to the product's current supplier linkage.
func (r *OrderRepo) ForwardLines(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	items := []domain.OrderItem{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT oi.order_id, oi.product_id, oi.product_name,
		       COALESCE(NULLIF(oi.supplier_product_id,''), p.supplier_product_id, '') AS supplier_product_id,
		       oi.quantity, oi.unit_price
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ?
		ORDER BY oi.rowid
	`, orderID)
	return items, err
}

func (r *OrderRepo) List(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY datetime(created_at) DESC, id
		LIMIT ?
	`, limit)
	return out, err
}

// ErrNotPending is returned by MarkForwarded when the order left "pending"
// before the update ran.
var ErrNotPending = errors.New("order is not pending")

// MarkForwarded moves a pending order to processing and records the
// supplier's reference. The transition is one-way.
func (r *OrderRepo) MarkForwarded(ctx context.Context, id, supplierOrderID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, supplier_order_id = ?
		WHERE id = ? AND status = ?
	`, domain.OrderStatusProcessing, supplierOrderID, id, domain.OrderStatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}
