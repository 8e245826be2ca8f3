package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks the payment side of an order, independent of the
// fulfilment status machine.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Order is the aggregate root for a placed order. The shipping address is a
// snapshot copied from the customer's address book at creation time; lines
// are immutable after creation. Only Status, PaymentStatus, UpdatedDate and
// the History collection change afterwards.
type Order struct {
	ID          string
	CustomerID  string
	Recipient   string
	Phone       string
	AddressText string

	Lines []Line

	Subtotal       decimal.Decimal
	CouponDiscount decimal.Decimal
	PointsDiscount decimal.Decimal
	ShippingFee    decimal.Decimal
	Tax            decimal.Decimal
	TotalAmount    decimal.Decimal

	PaymentMethod string
	PaymentStatus PaymentStatus
	Status        Status
	CouponCode    string
	PointsEarned  decimal.Decimal

	History []StatusHistory

	CreatedDate time.Time
	UpdatedDate time.Time
}

// Line is a single product-variant entry within an order. Name, image and
// price fields are frozen at purchase time and immune to later catalog edits.
type Line struct {
	ID              string
	OrderID         string
	VariantID       string
	ProductName     string
	ImageURL        string
	Quantity        int
	PriceAtPurchase decimal.Decimal
	DiscountPct     decimal.Decimal
	LineTotal       decimal.Decimal
}

// StatusHistory is one append-only audit row. Entries are never mutated or
// deleted; creation writes the implicit initial PENDING entry.
type StatusHistory struct {
	ID          string
	OrderID     string
	Status      Status
	Notes       string
	CreatedDate time.Time
}

// NewStatusHistory stamps a new audit entry with a server timestamp. All
// mutation paths go through this factory so timestamping stays explicit.
func NewStatusHistory(orderID string, status Status, notes string, now time.Time) StatusHistory {
	return StatusHistory{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		Status:      status,
		Notes:       notes,
		CreatedDate: now,
	}
}

// Repository defines persistence for orders. Every mutating method is a
// single atomic unit of work: stock, coupon and points side effects commit or
// roll back together with the order rows.
type Repository interface {
	// Create persists the order, its lines and the initial history entry,
	// decrements variant stock, redeems the coupon (if any) and debits
	// customer points, all in one transaction. Conflicting counters surface
	// as catalog.OutOfStockError, coupon.ErrNotFound/ErrExhausted.
	Create(ctx context.Context, o *Order) error

	// GetByID loads an order with its lines and full status history.
	GetByID(ctx context.Context, id string) (*Order, error)

	// Transition applies a plain status change: status column, history append
	// and updated_date refresh in one transaction.
	Transition(ctx context.Context, o *Order, entry StatusHistory) error

	// Cancel applies a CANCELLED transition and rolls back the order's side
	// effects: restores stock, releases coupon usage, refunds debited points,
	// and marks a PAID order REFUNDED.
	Cancel(ctx context.Context, o *Order, entry StatusHistory) error

	// Complete applies a DELIVERED transition and credits PointsEarned to the
	// customer balance.
	Complete(ctx context.Context, o *Order, entry StatusHistory) error
}

// Notifier delivers fire-and-forget status change notifications. Failures are
// logged by the caller and never fail the transition.
type Notifier interface {
	NotifyStatusChanged(ctx context.Context, orderID string, status Status) error
}
