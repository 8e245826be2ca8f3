package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidRange is returned when a date range has its end before its start.
// Range validation always happens before any store query.
var ErrInvalidRange = errors.New("end date must not be before start date")

// Bucket is one point of the sales time series: a calendar day, or an
// ISO week keyed by its Monday after re-bucketing.
type Bucket struct {
	Date    time.Time
	Revenue decimal.Decimal
	Orders  int64
	Units   int64
}

// ProductSales is one row of the top-sellers list.
type ProductSales struct {
	VariantID   string
	ProductName string
	Units       int64
}

// Summary is the operator dashboard snapshot.
type Summary struct {
	TotalCustomers   int64
	NewCustomers7d   int64
	TotalOrders      int64
	RevenueChangePct decimal.Decimal
	TopSellers       []ProductSales
}

// Stats aggregates an arbitrary admin-supplied date range.
type Stats struct {
	Orders  int64
	Revenue decimal.Decimal
	Units   int64
}

// Config holds the reporting knobs, injected explicitly.
type Config struct {
	// Location is the application time zone all calendar bucketing uses.
	Location *time.Location
	// WeeklyThresholdDays is the range length above which daily points are
	// re-bucketed into ISO weeks.
	WeeklyThresholdDays int
	// TopSellers is the length of the dashboard top-seller list.
	TopSellers int
}

// DefaultConfig returns UTC bucketing, the 60-day weekly threshold and a
// five-entry top-seller list.
func DefaultConfig() Config {
	return Config{
		Location:            time.UTC,
		WeeklyThresholdDays: 60,
		TopSellers:          5,
	}
}

// Store provides the raw, read-only aggregates the reporter consumes. All
// revenue figures exclude cancelled orders.
type Store interface {
	// DailyStats groups orders by calendar day in the given location over the
	// inclusive date range.
	DailyStats(ctx context.Context, start, end time.Time, loc *time.Location) ([]Bucket, error)
	TotalCustomers(ctx context.Context) (int64, error)
	CustomersSince(ctx context.Context, since time.Time) (int64, error)
	TotalOrders(ctx context.Context) (int64, error)
	RevenueBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	TopSellers(ctx context.Context, start, end time.Time, limit int) ([]ProductSales, error)
	RangeStats(ctx context.Context, start, end time.Time, loc *time.Location) (*Stats, error)
}
