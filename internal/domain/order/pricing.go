package order

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PricingConfig holds the tunable knobs of the pricing calculator. It is
// injected explicitly; nothing in this package reads ambient configuration.
type PricingConfig struct {
	// PointsRate is the currency value of one loyalty point.
	PointsRate decimal.Decimal
	// PointsAccrualDivisor controls accrual: earned = floor(total / divisor).
	PointsAccrualDivisor decimal.Decimal
}

// DefaultPricingConfig returns 1:1 point conversion with one point earned per
// 100 currency units spent.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		PointsRate:           decimal.NewFromInt(1),
		PointsAccrualDivisor: decimal.NewFromInt(100),
	}
}

// LineInput is one order line as seen by the calculator.
type LineInput struct {
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	Quantity    int
}

// QuoteInput carries everything needed to price an order.
type QuoteInput struct {
	Lines           []LineInput
	CouponDiscount  decimal.Decimal
	PointsToUse     decimal.Decimal
	AvailablePoints decimal.Decimal
	ShippingFee     decimal.Decimal
	Tax             decimal.Decimal
}

// Quote is the fully priced breakdown of an order. All amounts are rounded
// half-up to two fractional digits and the total is clamped at zero.
type Quote struct {
	LineTotals     []decimal.Decimal
	Subtotal       decimal.Decimal
	CouponDiscount decimal.Decimal
	PointsDiscount decimal.Decimal
	ShippingFee    decimal.Decimal
	Tax            decimal.Decimal
	TotalAmount    decimal.Decimal
}

// Calculator prices orders. It is a pure component: same input, same quote.
type Calculator struct {
	cfg PricingConfig
}

// NewCalculator builds a Calculator with the given configuration.
func NewCalculator(cfg PricingConfig) Calculator {
	return Calculator{cfg: cfg}
}

// LineTotal computes unitPrice * quantity * (1 - discountPct/100), rounded
// half-up to two fractional digits.
func (c Calculator) LineTotal(in LineInput) decimal.Decimal {
	qty := decimal.NewFromInt(int64(in.Quantity))
	factor := hundred.Sub(in.DiscountPct).Div(hundred)
	return in.UnitPrice.Mul(qty).Mul(factor).Round(2)
}

// Quote prices a complete order.
//
// The points discount is capped three ways: by the points the customer asked
// to spend, by the points they actually hold, and by the post-coupon subtotal
// so the discount can never push the total negative on its own.
func (c Calculator) Quote(in QuoteInput) Quote {
	lineTotals := make([]decimal.Decimal, len(in.Lines))
	subtotal := decimal.Zero
	for i, line := range in.Lines {
		lineTotals[i] = c.LineTotal(line)
		subtotal = subtotal.Add(lineTotals[i])
	}

	pointsDiscount := decimal.Min(
		in.PointsToUse.Mul(c.cfg.PointsRate),
		subtotal.Sub(in.CouponDiscount),
		in.AvailablePoints.Mul(c.cfg.PointsRate),
	)
	pointsDiscount = floorAtZero(pointsDiscount).Round(2)

	total := subtotal.
		Sub(in.CouponDiscount).
		Sub(pointsDiscount).
		Add(in.ShippingFee).
		Add(in.Tax)
	total = floorAtZero(total).Round(2)

	return Quote{
		LineTotals:     lineTotals,
		Subtotal:       subtotal.Round(2),
		CouponDiscount: in.CouponDiscount.Round(2),
		PointsDiscount: pointsDiscount,
		ShippingFee:    in.ShippingFee.Round(2),
		Tax:            in.Tax.Round(2),
		TotalAmount:    total,
	}
}

// PointsEarned computes the loyalty points accrued by a completed order.
func (c Calculator) PointsEarned(total decimal.Decimal) decimal.Decimal {
	if c.cfg.PointsAccrualDivisor.IsZero() {
		return decimal.Zero
	}
	return total.Div(c.cfg.PointsAccrualDivisor).Floor()
}

// PointsSpent converts a points discount back into the point amount debited
// from the customer balance. The order store uses it both to debit on
// creation and to refund on cancellation.
func (c Calculator) PointsSpent(pointsDiscount decimal.Decimal) decimal.Decimal {
	if c.cfg.PointsRate.IsZero() {
		return decimal.Zero
	}
	return pointsDiscount.Div(c.cfg.PointsRate)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
