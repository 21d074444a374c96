package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// ProductRepo manages the products table.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a ProductRepo bound to db.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = "id, name, price, category, image_url, image_url2, description, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.ImageURL, &p.ImageURL2,
		&p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// productWhere builds the WHERE clause shared by List and Count. Search
// matches name or description, category is an exact match.
func productWhere(f model.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		conds = append(conds, "(name LIKE ? OR description LIKE ?)")
		args = append(args, like, like)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		conds = append(conds, "category = ?")
		args = append(args, c)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of products, newest first, plus the total
// number of products matching the filter.
func (r *ProductRepo) List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	where, args := productWhere(f)
	total, err := r.count(ctx, where, args)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := pageBounds(f.Page, f.Limit)
	q := "SELECT " + productColumns + " FROM products" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	items := make([]model.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *p)
	}
	return items, total, rows.Err()
}

// Count returns the number of products matching the filter.
func (r *ProductRepo) Count(ctx context.Context, f model.ProductFilter) (int, error) {
	where, args := productWhere(f)
	return r.count(ctx, where, args)
}

func (r *ProductRepo) count(ctx context.Context, where string, args []any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// GetByID loads one product.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByIDs loads the products with the given ids keyed by id. Missing
// ids are simply absent from the map.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error) {
	out := make(map[uint64]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	q := "SELECT " + productColumns + " FROM products WHERE id IN (" + placeholders(len(ids)) + ")"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}

// Create inserts p and reloads it to pick up generated columns.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, price, category, image_url, image_url2, description) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Price, p.Category, p.ImageURL, p.ImageURL2, p.Description)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// Update overwrites every editable column of p.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, price = ?, category = ?, image_url = ?, image_url2 = ?, description = ? WHERE id = ?`,
		p.Name, p.Price, p.Category, p.ImageURL, p.ImageURL2, p.Description, p.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product. Products referenced by order items cannot
// be removed; that surfaces as ErrConflict.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return requireRow(res, id)
}

// pageBounds clamps page/limit to sane values and returns LIMIT, OFFSET.
func pageBounds(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
