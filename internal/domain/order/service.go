package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/avelours/orderdesk/internal/domain/catalog"
	"github.com/avelours/orderdesk/internal/domain/coupon"
	"github.com/avelours/orderdesk/internal/domain/customer"
)

// Sentinel errors for order operations.
var (
	ErrNotFound       = errors.New("order not found")
	ErrEmptyLines     = errors.New("order lines required")
	ErrNegativeAmount = errors.New("monetary amounts must not be negative")
)

// InvalidQuantityError indicates a line item with a quantity below 1.
type InvalidQuantityError struct {
	VariantID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for variant %s", e.VariantID)
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	CustomerEmail string
	AddressID     string
	Lines         []LineRequest
	CouponCode    string
	PointsToUse   decimal.Decimal
	PaymentMethod string
	ShippingFee   decimal.Decimal
	Tax           decimal.Decimal
}

// LineRequest is one requested line item.
type LineRequest struct {
	VariantID string
	Quantity  int
}

// TransitionRequest holds the input for a status transition.
// CustomerEmail is required when Actor is ActorCustomer and is used for the
// ownership check.
type TransitionRequest struct {
	OrderID       string
	To            Status
	Notes         string
	Actor         Actor
	CustomerEmail string
}

// Service owns order creation and the status lifecycle.
type Service struct {
	customers customer.Repository
	variants  catalog.Repository
	coupons   coupon.Repository
	orders    Repository
	machine   *Machine
	pricing   Calculator
	notifier  Notifier
	now       func() time.Time
}

// NewService wires an order Service. notifier may be nil when no notification
// sink is configured.
func NewService(
	customers customer.Repository,
	variants catalog.Repository,
	coupons coupon.Repository,
	orders Repository,
	machine *Machine,
	pricing Calculator,
	notifier Notifier,
) *Service {
	return &Service{
		customers: customers,
		variants:  variants,
		coupons:   coupons,
		orders:    orders,
		machine:   machine,
		pricing:   pricing,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Create validates the request, snapshots the shipping address and variant
// pricing, prices the order and persists it together with its stock, coupon
// and points side effects in one unit of work.
//
// Stock and coupon availability are checked twice: a read-only pre-check here
// gives precise errors, and the store re-verifies both under row locks so
// concurrent requests can never oversell a variant or overspend a coupon.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	cust, err := s.customers.FindActiveByEmail(ctx, req.CustomerEmail)
	if err != nil {
		return nil, err
	}
	addr, err := s.customers.FindAddressForCustomer(ctx, req.AddressID, cust.ID)
	if err != nil {
		return nil, err
	}

	variants, err := s.fetchVariants(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	// Stock pre-check: the whole order fails on the first short variant.
	for i, line := range req.Lines {
		if variants[i].AvailableStock < line.Quantity {
			return nil, &catalog.OutOfStockError{
				VariantID: line.VariantID,
				Requested: line.Quantity,
				Available: variants[i].AvailableStock,
			}
		}
	}

	couponDiscount := decimal.Zero
	if req.CouponCode != "" {
		c, err := s.coupons.FindByCode(ctx, req.CouponCode)
		if err != nil {
			return nil, err
		}
		if !c.Available() {
			return nil, coupon.ErrExhausted
		}
		couponDiscount = c.DiscountValue
	}

	lineInputs := make([]LineInput, len(req.Lines))
	for i, line := range req.Lines {
		lineInputs[i] = LineInput{
			UnitPrice:   variants[i].Price,
			DiscountPct: variants[i].DiscountPct,
			Quantity:    line.Quantity,
		}
	}
	quote := s.pricing.Quote(QuoteInput{
		Lines:           lineInputs,
		CouponDiscount:  couponDiscount,
		PointsToUse:     req.PointsToUse,
		AvailablePoints: cust.PointsBalance,
		ShippingFee:     req.ShippingFee,
		Tax:             req.Tax,
	})

	now := s.now()
	o := newOrder(cust, addr, req, variants, quote, s.pricing, now)

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Get loads an order with lines and history.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// Transition moves an order along the status machine, appending an audit
// entry. CANCELLED rolls back the order's side effects; DELIVERED credits the
// earned points. A successful transition triggers an optional fire-and-forget
// notification.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*Order, error) {
	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if req.Actor == ActorCustomer {
		cust, err := s.customers.FindActiveByEmail(ctx, req.CustomerEmail)
		if err != nil {
			return nil, err
		}
		// Customers never learn about orders they do not own.
		if o.CustomerID != cust.ID {
			return nil, ErrNotFound
		}
		if req.To != StatusCancelled {
			return nil, &InvalidStatusTransitionError{From: o.Status, To: req.To}
		}
	}

	if err := s.machine.Validate(o.Status, req.To); err != nil {
		return nil, err
	}

	entry := NewStatusHistory(o.ID, req.To, req.Notes, s.now())
	switch req.To {
	case StatusCancelled:
		err = s.orders.Cancel(ctx, o, entry)
	case StatusDelivered:
		err = s.orders.Complete(ctx, o, entry)
	default:
		err = s.orders.Transition(ctx, o, entry)
	}
	if err != nil {
		return nil, err
	}

	o.Status = req.To
	o.UpdatedDate = entry.CreatedDate
	o.History = append(o.History, entry)
	if req.To == StatusCancelled && o.PaymentStatus == PaymentPaid {
		o.PaymentStatus = PaymentRefunded
	}

	if s.notifier != nil {
		if nerr := s.notifier.NotifyStatusChanged(ctx, o.ID, o.Status); nerr != nil {
			zctx.From(ctx).Warn("status change notification failed",
				zap.String("order_id", o.ID),
				zap.String("status", string(o.Status)),
				zap.Error(nerr),
			)
		}
	}
	return o, nil
}

func validateCreate(req CreateRequest) error {
	if len(req.Lines) == 0 {
		return ErrEmptyLines
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return &InvalidQuantityError{VariantID: line.VariantID}
		}
	}
	if req.PointsToUse.IsNegative() || req.ShippingFee.IsNegative() || req.Tax.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// fetchVariants loads all requested variants in one batch and returns them in
// request order.
func (s *Service) fetchVariants(ctx context.Context, lines []LineRequest) ([]catalog.Variant, error) {
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.VariantID
	}

	fetched, err := s.variants.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get variants")
	}
	byID := make(map[string]catalog.Variant, len(fetched))
	for _, v := range fetched {
		byID[v.ID] = v
	}

	ordered := make([]catalog.Variant, len(lines))
	for i, line := range lines {
		v, ok := byID[line.VariantID]
		if !ok {
			return nil, errors.Wrapf(catalog.ErrNotFound, "variant %s", line.VariantID)
		}
		ordered[i] = v
	}
	return ordered, nil
}

// newOrder assembles the aggregate: address snapshot, frozen line pricing,
// quote amounts, PENDING status and the initial history entry, all stamped
// with one server timestamp.
func newOrder(
	cust *customer.Customer,
	addr *customer.Address,
	req CreateRequest,
	variants []catalog.Variant,
	quote Quote,
	pricing Calculator,
	now time.Time,
) *Order {
	id := uuid.New().String()

	lines := make([]Line, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = Line{
			ID:              uuid.New().String(),
			OrderID:         id,
			VariantID:       line.VariantID,
			ProductName:     variants[i].ProductName,
			ImageURL:        variants[i].ImageURL,
			Quantity:        line.Quantity,
			PriceAtPurchase: variants[i].Price,
			DiscountPct:     variants[i].DiscountPct,
			LineTotal:       quote.LineTotals[i],
		}
	}

	return &Order{
		ID:             id,
		CustomerID:     cust.ID,
		Recipient:      addr.Recipient,
		Phone:          addr.Phone,
		AddressText:    addr.AddressText,
		Lines:          lines,
		Subtotal:       quote.Subtotal,
		CouponDiscount: quote.CouponDiscount,
		PointsDiscount: quote.PointsDiscount,
		ShippingFee:    quote.ShippingFee,
		Tax:            quote.Tax,
		TotalAmount:    quote.TotalAmount,
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  PaymentUnpaid,
		Status:         StatusPending,
		CouponCode:     req.CouponCode,
		PointsEarned:   pricing.PointsEarned(quote.TotalAmount),
		History:        []StatusHistory{NewStatusHistory(id, StatusPending, "", now)},
		CreatedDate:    now,
		UpdatedDate:    now,
	}
}
