package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

// PercentChange computes the revenue change between two windows, rounded
// half-up to two fractional digits.
//
// A zero previous window with non-zero current revenue reports 100%, a capped
// growth signal rather than a division blow-up; zero over zero is 0%.
func PercentChange(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// Service answers the reporting queries: chart series, dashboard summary and
// range statistics. It is a read-only consumer of persisted order data.
type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewService builds a reporting Service.
func NewService(store Store, cfg Config) *Service {
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// ChartData returns the bucketed sales series for the inclusive date range.
func (s *Service) ChartData(ctx context.Context, start, end time.Time) ([]Bucket, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	daily, err := s.store.DailyStats(ctx, start, end, s.cfg.Location)
	if err != nil {
		return nil, errors.Wrap(err, "daily stats")
	}
	return Rebucket(s.cfg, start, end, daily), nil
}

// Interval reports the resolution ChartData serves for the range, "daily" or
// "weekly".
func (s *Service) Interval(start, end time.Time) string {
	if daysBetween(start, end) > s.cfg.WeeklyThresholdDays {
		return "weekly"
	}
	return "daily"
}

// Summary computes the dashboard snapshot. The independent store queries run
// concurrently.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	now := s.now()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var (
		sum      Summary
		current  decimal.Decimal
		previous decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sum.TotalCustomers, err = s.store.TotalCustomers(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.NewCustomers7d, err = s.store.CustomersSince(gctx, weekAgo)
		return err
	})
	g.Go(func() (err error) {
		sum.TotalOrders, err = s.store.TotalOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		current, err = s.store.RevenueBetween(gctx, weekAgo, now)
		return err
	})
	g.Go(func() (err error) {
		previous, err = s.store.RevenueBetween(gctx, twoWeeksAgo, weekAgo)
		return err
	})
	g.Go(func() (err error) {
		sum.TopSellers, err = s.store.TopSellers(gctx, weekAgo, now, s.cfg.TopSellers)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "summary queries")
	}

	sum.RevenueChangePct = PercentChange(previous, current)
	return &sum, nil
}

// Statistics returns totals for an arbitrary inclusive date range. The range
// is validated before any query runs.
func (s *Service) Statistics(ctx context.Context, start, end time.Time) (*Stats, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	stats, err := s.store.RangeStats(ctx, start, end, s.cfg.Location)
	if err != nil {
		return nil, errors.Wrap(err, "range stats")
	}
	return stats, nil
}
