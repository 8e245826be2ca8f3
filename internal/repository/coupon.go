package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelours/orderdesk/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_value, max_usage_count, usage_count, created_date
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	redeemCouponSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE UPPER(code) = UPPER($1) AND usage_count < max_usage_count`

	releaseCouponSQL = `UPDATE coupons SET usage_count = GREATEST(usage_count - 1, 0)
		WHERE UPPER(code) = UPPER($1)`

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE UPPER(code) = UPPER($1))`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.Code, &c.DiscountValue, &c.MaxUsageCount, &c.UsageCount, &c.CreatedDate,
	)
	return c, err
}

// redeemCoupon consumes one usage of the coupon inside the given transaction.
// The conditional UPDATE serializes concurrent redemptions through the row
// lock: when only one use remains, exactly one concurrent order wins.
func redeemCoupon(ctx context.Context, tx pgx.Tx, code string) error {
	tag, err := tx.Exec(ctx, redeemCouponSQL, code)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", code, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, couponExistsSQL, code).Scan(&exists); err != nil {
		return fmt.Errorf("checking coupon %q: %w", code, err)
	}
	if !exists {
		return coupon.ErrNotFound
	}
	return coupon.ErrExhausted
}

// releaseCoupon returns one usage of the coupon on order cancellation. The
// counter never drops below zero.
func releaseCoupon(ctx context.Context, tx pgx.Tx, code string) error {
	if _, err := tx.Exec(ctx, releaseCouponSQL, code); err != nil {
		return fmt.Errorf("releasing coupon %q: %w", code, err)
	}
	return nil
}
