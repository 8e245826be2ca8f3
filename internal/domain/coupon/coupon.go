package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a coupon code does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrExhausted is returned when a coupon has no remaining uses.
	ErrExhausted = errors.New("coupon usage limit reached")
)

// Coupon is a flat-amount discount code with a bounded usage allowance.
// UsageCount only moves through the redemption ledger: incremented when an
// order is created, decremented when a cancellable order is cancelled.
type Coupon struct {
	Code          string
	DiscountValue decimal.Decimal
	MaxUsageCount int
	UsageCount    int
	CreatedDate   time.Time
}

// Available reports whether the coupon still has redemptions left.
func (c *Coupon) Available() bool {
	return c.UsageCount < c.MaxUsageCount
}

// Repository provides read access to coupons. Redemption and release are
// deliberately absent here: they mutate the ledger and must happen inside the
// same transaction as the order write, so they live on the order store.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
