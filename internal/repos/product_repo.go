package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

const productColumns = `
    id, supplier_product_id, name, description, detailed_description,
    base_price, shipping_cost, profit_margin, image_url, additional_images,
    categories, stock, is_featured, COALESCE(created_at,'') AS created_at,
    COALESCE(updated_at,'') AS updated_at`

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

type ProductFilter struct {
	Category string
	Featured bool
	Limit    int
	Offset   int
}

func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	where := `1=1`
	args := []any{}
	if c := strings.TrimSpace(f.Category); c != "" {
		// tags are stored normalised ("a,b,c"), so wrap both sides in commas
		where += ` AND (',' || LOWER(categories) || ',') LIKE ?`
		args = append(args, "%,"+strings.ToLower(c)+",%")
	}
	if f.Featured {
		where += ` AND is_featured = 1`
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}
	q := `SELECT ` + productColumns + `
  FROM products
  WHERE ` + where + `
  ORDER BY created_at DESC, id
  LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.NotFound("product", id)
	}
	return p, err
}

func (r *ProductRepo) GetBySupplierID(ctx context.Context, supplierID string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE supplier_product_id = ?`, supplierID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.NotFound("product", supplierID)
	}
	return p, err
}

func normalise(p *domain.Product) {
	p.Category = strings.Join(domain.SplitTags(p.Category), ",")
	if p.AdditionalImages == nil {
		p.AdditionalImages = domain.ImageList{}
	}
}

const insertProduct = `
	INSERT INTO products(
	  id, supplier_product_id, name, description, detailed_description,
	  base_price, shipping_cost, profit_margin, image_url, additional_images,
	  categories, stock, is_featured, created_at)
	VALUES(
	  :id, :supplier_product_id, :name, :description, :detailed_description,
	  :base_price, :shipping_cost, :profit_margin, :image_url, :additional_images,
	  :categories, :stock, :is_featured, CURRENT_TIMESTAMP)`

// Create inserts p, assigning an id when p.ID is empty.
func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	normalise(p)
	if _, err := r.db.NamedExecContext(ctx, insertProduct, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	fresh, err := r.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = fresh
	return nil
}

// Update replaces every admin-editable field of p.
func (r *ProductRepo) Update(ctx context.Context, p *domain.Product) error {
	normalise(p)
	res, err := r.db.NamedExecContext(ctx, `
	  UPDATE products SET
	    name = :name, description = :description, detailed_description = :detailed_description,
	    base_price = :base_price, shipping_cost = :shipping_cost, profit_margin = :profit_margin,
	    image_url = :image_url, additional_images = :additional_images, categories = :categories,
	    stock = :stock, is_featured = :is_featured, updated_at = CURRENT_TIMESTAMP
	  WHERE id = :id`, p)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("product", p.ID)
	}
	fresh, err := r.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = fresh
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("product", id)
	}
	return nil
}

// UpsertImported inserts a supplier product or, when one with the same
// supplier id exists, refreshes its catalog fields. Admin-owned pricing
// (shipping cost, profit margin) and merchandising fields are left alone.
func (r *ProductRepo) UpsertImported(ctx context.Context, p *domain.Product) (created bool, err error) {
	if p.SupplierProductID == nil || *p.SupplierProductID == "" {
		return false, domain.Invalid("supplierProductId", "required for imported products")
	}
	normalise(p)
	err = inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var id string
		err := tx.GetContext(ctx, &id, `SELECT id FROM products WHERE supplier_product_id = ?`, *p.SupplierProductID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			created = true
			_, err = tx.NamedExecContext(ctx, insertProduct, p)
			return err
		case err != nil:
			return err
		}
		p.ID = id
		_, err = tx.NamedExecContext(ctx, `
		  UPDATE products SET
		    name = :name, description = :description, base_price = :base_price,
		    image_url = :image_url, categories = :categories, stock = :stock,
		    updated_at = CURRENT_TIMESTAMP
		  WHERE id = :id`, p)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("upsert imported product: %w", err)
	}
	fresh, err := r.Get(ctx, p.ID)
	if err != nil {
		return created, err
	}
	*p = fresh
	return created, nil
}

// decrementStock subtracts qty if enough stock exists.
func decrementStock(ctx context.Context, tx *sqlx.Tx, productID string, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, productID, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Invalid("quantity", fmt.Sprintf("insufficient stock for %s", productID))
	}
	return nil
}
