package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelours/orderdesk/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
			id, customer_id, recipient, phone, address_text,
			subtotal, coupon_discount, points_discount, shipping_fee, tax, total_amount,
			payment_method, payment_status, order_status, coupon_code, points_earned,
			created_date, updated_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	insertLineSQL = `INSERT INTO order_lines (
			id, order_id, variant_id, product_name, image_url,
			quantity, price_at_purchase, discount_pct, line_total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertHistorySQL = `INSERT INTO order_status_history (id, order_id, status, notes, created_date)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderByIDSQL = `SELECT id, customer_id, recipient, phone, address_text,
			subtotal, coupon_discount, points_discount, shipping_fee, tax, total_amount,
			payment_method, payment_status, order_status, coupon_code, points_earned,
			created_date, updated_date
		FROM orders WHERE id = $1`

	getLinesByOrderSQL = `SELECT id, order_id, variant_id, product_name, image_url,
			quantity, price_at_purchase, discount_pct, line_total
		FROM order_lines WHERE order_id = $1 ORDER BY id`

	getHistoryByOrderSQL = `SELECT id, order_id, status, notes, created_date
		FROM order_status_history WHERE order_id = $1 ORDER BY created_date, id`

	updateStatusSQL = `UPDATE orders SET order_status = $2, updated_date = $3 WHERE id = $1`

	cancelOrderSQL = `UPDATE orders SET order_status = $2, updated_date = $3,
			payment_status = CASE WHEN payment_status = 'PAID' THEN 'REFUNDED' ELSE payment_status END
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Every
// mutating method is one transaction: counter updates and order rows commit
// or roll back together.
type OrderRepository struct {
	pool    *pgxpool.Pool
	pricing order.Calculator
}

// NewOrderRepository returns an OrderRepository that uses the given pool. The
// calculator converts the stored points discount back into debited points.
func NewOrderRepository(pool *pgxpool.Pool, pricing order.Calculator) *OrderRepository {
	return &OrderRepository{pool: pool, pricing: pricing}
}

// Create persists the order with its lines and initial history entry, and
// applies the creation side effects: stock decrement per line, coupon
// redemption and points debit. Any conflict rolls the whole unit back.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		for _, line := range o.Lines {
			if err := decrementStock(ctx, tx, line.VariantID, line.Quantity); err != nil {
				return err
			}
		}

		if o.CouponCode != "" {
			if err := redeemCoupon(ctx, tx, o.CouponCode); err != nil {
				return err
			}
		}

		if points := r.pricing.PointsSpent(o.PointsDiscount); points.IsPositive() {
			if err := debitPoints(ctx, tx, o.CustomerID, points); err != nil {
				return err
			}
		}

		couponCode := nullableString(o.CouponCode)
		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.CustomerID, o.Recipient, o.Phone, o.AddressText,
			o.Subtotal, o.CouponDiscount, o.PointsDiscount, o.ShippingFee, o.Tax, o.TotalAmount,
			o.PaymentMethod, string(o.PaymentStatus), string(o.Status), couponCode, o.PointsEarned,
			o.CreatedDate, o.UpdatedDate,
		)
		if err != nil {
			return fmt.Errorf("inserting order %q: %w", o.ID, err)
		}

		for _, line := range o.Lines {
			_, err := tx.Exec(ctx, insertLineSQL,
				line.ID, line.OrderID, line.VariantID, line.ProductName, line.ImageURL,
				line.Quantity, line.PriceAtPurchase, line.DiscountPct, line.LineTotal,
			)
			if err != nil {
				return fmt.Errorf("inserting line for order %q: %w", o.ID, err)
			}
		}

		for _, entry := range o.History {
			if err := insertHistory(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID loads an order with its lines and full status history.
// Returns order.ErrNotFound when the order does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	lineRows, err := r.pool.Query(ctx, getLinesByOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting lines for order %q: %w", id, err)
	}
	if o.Lines, err = pgx.CollectRows(lineRows, scanLine); err != nil {
		return nil, fmt.Errorf("getting lines for order %q: %w", id, err)
	}

	historyRows, err := r.pool.Query(ctx, getHistoryByOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting history for order %q: %w", id, err)
	}
	if o.History, err = pgx.CollectRows(historyRows, scanHistory); err != nil {
		return nil, fmt.Errorf("getting history for order %q: %w", id, err)
	}

	return &o, nil
}

// Transition applies a plain status change with its audit entry.
func (r *OrderRepository) Transition(ctx context.Context, o *order.Order, entry order.StatusHistory) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return updateStatus(ctx, tx, o.ID, entry, updateStatusSQL)
	})
}

// Cancel applies a CANCELLED transition and reverses the order's side
// effects: stock back, coupon usage released, debited points refunded, PAID
// flipped to REFUNDED.
func (r *OrderRepository) Cancel(ctx context.Context, o *order.Order, entry order.StatusHistory) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		for _, line := range o.Lines {
			if err := restoreStock(ctx, tx, line.VariantID, line.Quantity); err != nil {
				return err
			}
		}
		if o.CouponCode != "" {
			if err := releaseCoupon(ctx, tx, o.CouponCode); err != nil {
				return err
			}
		}
		if points := r.pricing.PointsSpent(o.PointsDiscount); points.IsPositive() {
			if err := creditPoints(ctx, tx, o.CustomerID, points); err != nil {
				return err
			}
		}
		return updateStatus(ctx, tx, o.ID, entry, cancelOrderSQL)
	})
}

// Complete applies a DELIVERED transition and credits the earned points.
func (r *OrderRepository) Complete(ctx context.Context, o *order.Order, entry order.StatusHistory) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if o.PointsEarned.IsPositive() {
			if err := creditPoints(ctx, tx, o.CustomerID, o.PointsEarned); err != nil {
				return err
			}
		}
		return updateStatus(ctx, tx, o.ID, entry, updateStatusSQL)
	})
}

// inTx runs fn inside a transaction, committing on success and rolling back
// on error or panic.
func (r *OrderRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, fn)
}

func updateStatus(ctx context.Context, tx pgx.Tx, orderID string, entry order.StatusHistory, query string) error {
	tag, err := tx.Exec(ctx, query, orderID, string(entry.Status), entry.CreatedDate)
	if err != nil {
		return fmt.Errorf("updating status for order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return insertHistory(ctx, tx, entry)
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry order.StatusHistory) error {
	_, err := tx.Exec(ctx, insertHistorySQL,
		entry.ID, entry.OrderID, string(entry.Status), entry.Notes, entry.CreatedDate,
	)
	if err != nil {
		return fmt.Errorf("inserting history for order %q: %w", entry.OrderID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		paymentStatus string
		status        string
		couponCode    *string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Recipient, &o.Phone, &o.AddressText,
		&o.Subtotal, &o.CouponDiscount, &o.PointsDiscount, &o.ShippingFee, &o.Tax, &o.TotalAmount,
		&o.PaymentMethod, &paymentStatus, &status, &couponCode, &o.PointsEarned,
		&o.CreatedDate, &o.UpdatedDate,
	)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	if couponCode != nil {
		o.CouponCode = *couponCode
	}
	return o, err
}

func scanLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(
		&l.ID, &l.OrderID, &l.VariantID, &l.ProductName, &l.ImageURL,
		&l.Quantity, &l.PriceAtPurchase, &l.DiscountPct, &l.LineTotal,
	)
	return l, err
}

func scanHistory(row pgx.CollectableRow) (order.StatusHistory, error) {
	var (
		h      order.StatusHistory
		status string
	)
	err := row.Scan(&h.ID, &h.OrderID, &status, &h.Notes, &h.CreatedDate)
	h.Status = order.Status(status)
	return h, err
}

// nullableString maps an empty string to NULL for nullable text columns.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
