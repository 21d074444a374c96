package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DashboardStats summarises the store for the admin dashboard.
type DashboardStats struct {
	TotalProducts  int             `json:"totalProducts"`
	TotalOrders    int             `json:"totalOrders"`
	OrdersByStatus map[string]int  `json:"ordersByStatus"`
	Revenue        decimal.Decimal `json:"revenue"`
	TopProducts    []ProductSales  `json:"topProducts"`
}

// ProductSales is the number of units sold per product.
type ProductSales struct {
	ProductID uint64 `json:"productId"`
	Name      string `json:"name"`
	Units     int    `json:"units"`
}

type StatsRepo struct{ db *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// Dashboard collects counts per table and per order status, revenue
// from orders that were not cancelled, and the five best sellers.
func (r *StatsRepo) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{OrdersByStatus: make(map[string]int), TopProducts: []ProductSales{}}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&stats.TotalProducts); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&stats.TotalOrders); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE status <> 'cancelled'").Scan(&stats.Revenue); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.OrdersByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	top, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, COALESCE(SUM(oi.quantity), 0) AS units
		FROM products p
		JOIN order_items oi ON oi.product_id = p.id
		JOIN orders o ON o.id = oi.order_id AND o.status <> 'cancelled'
		GROUP BY p.id, p.name
		ORDER BY units DESC
		LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer top.Close()
	for top.Next() {
		var ps ProductSales
		if err := top.Scan(&ps.ProductID, &ps.Name, &ps.Units); err != nil {
			return nil, err
		}
		stats.TopProducts = append(stats.TopProducts, ps)
	}
	return stats, top.Err()
}
