package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avelours/orderdesk/internal/domain/report"
)

// Cancelled orders never contribute to revenue, order counts or units sold.
const (
	dailyStatsSQL = `SELECT day, SUM(total_amount) AS revenue, COUNT(*) AS orders, SUM(units) AS units
		FROM (
			SELECT (o.created_date AT TIME ZONE $3)::date AS day,
				o.total_amount,
				(SELECT COALESCE(SUM(l.quantity), 0) FROM order_lines l WHERE l.order_id = o.id) AS units
			FROM orders o
			WHERE o.created_date >= $1 AND o.created_date < $2 AND o.order_status <> 'CANCELLED'
		) t
		GROUP BY day ORDER BY day`

	totalCustomersSQL = `SELECT COUNT(*) FROM customers`

	customersSinceSQL = `SELECT COUNT(*) FROM customers WHERE created_date >= $1`

	totalOrdersSQL = `SELECT COUNT(*) FROM orders`

	revenueBetweenSQL = `SELECT COALESCE(SUM(total_amount), 0) FROM orders
		WHERE created_date >= $1 AND created_date < $2 AND order_status <> 'CANCELLED'`

	topSellersSQL = `SELECT l.variant_id, MAX(l.product_name) AS product_name, SUM(l.quantity) AS units
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE o.created_date >= $1 AND o.created_date < $2 AND o.order_status <> 'CANCELLED'
		GROUP BY l.variant_id
		ORDER BY units DESC, l.variant_id
		LIMIT $3`

	rangeStatsSQL = `SELECT COUNT(*) AS orders,
			COALESCE(SUM(o.total_amount), 0) AS revenue,
			COALESCE(SUM((SELECT COALESCE(SUM(l.quantity), 0) FROM order_lines l WHERE l.order_id = o.id)), 0) AS units
		FROM orders o
		WHERE o.created_date >= $1 AND o.created_date < $2 AND o.order_status <> 'CANCELLED'`
)

var _ report.Store = (*ReportStore)(nil)

// ReportStore implements report.Store backed by PostgreSQL. It is strictly
// read-only.
type ReportStore struct {
	pool *pgxpool.Pool
}

// NewReportStore returns a ReportStore that uses the given pool.
func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// DailyStats groups non-cancelled orders by calendar day in loc over the
// inclusive [start, end] date range.
func (r *ReportStore) DailyStats(ctx context.Context, start, end time.Time, loc *time.Location) ([]report.Bucket, error) {
	rows, err := r.pool.Query(ctx, dailyStatsSQL, start, end.AddDate(0, 0, 1), loc.String())
	if err != nil {
		return nil, fmt.Errorf("querying daily stats: %w", err)
	}
	return pgx.CollectRows(rows, scanBucket)
}

// TotalCustomers counts all customer accounts.
func (r *ReportStore) TotalCustomers(ctx context.Context) (int64, error) {
	return r.count(ctx, totalCustomersSQL)
}

// CustomersSince counts accounts created at or after the given instant.
func (r *ReportStore) CustomersSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, customersSinceSQL, since)
}

// TotalOrders counts all orders, cancelled included.
func (r *ReportStore) TotalOrders(ctx context.Context) (int64, error) {
	return r.count(ctx, totalOrdersSQL)
}

// RevenueBetween sums order totals in the half-open [start, end) window.
func (r *ReportStore) RevenueBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	if err := r.pool.QueryRow(ctx, revenueBetweenSQL, start, end).Scan(&revenue); err != nil {
		return decimal.Zero, fmt.Errorf("querying revenue: %w", err)
	}
	return revenue, nil
}

// TopSellers returns the best-selling variants by units in the half-open
// [start, end) window, ties broken by variant id for a stable order.
func (r *ReportStore) TopSellers(ctx context.Context, start, end time.Time, limit int) ([]report.ProductSales, error) {
	rows, err := r.pool.Query(ctx, topSellersSQL, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top sellers: %w", err)
	}
	return pgx.CollectRows(rows, scanProductSales)
}

// RangeStats aggregates the inclusive [start, end] date range.
func (r *ReportStore) RangeStats(ctx context.Context, start, end time.Time, loc *time.Location) (*report.Stats, error) {
	var stats report.Stats
	err := r.pool.QueryRow(ctx, rangeStatsSQL, start, end.AddDate(0, 0, 1)).
		Scan(&stats.Orders, &stats.Revenue, &stats.Units)
	if err != nil {
		return nil, fmt.Errorf("querying range stats: %w", err)
	}
	return &stats, nil
}

func (r *ReportStore) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

func scanBucket(row pgx.CollectableRow) (report.Bucket, error) {
	var b report.Bucket
	err := row.Scan(&b.Date, &b.Revenue, &b.Orders, &b.Units)
	return b, err
}

func scanProductSales(row pgx.CollectableRow) (report.ProductSales, error) {
	var p report.ProductSales
	err := row.Scan(&p.VariantID, &p.ProductName, &p.Units)
	return p, err
}
