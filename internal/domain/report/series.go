package report

import (
	"sort"
	"time"
)

// Rebucket turns a daily series into the series actually served to charts.
//
// Short ranges (up to WeeklyThresholdDays whole days between start and end)
// pass through as daily points. Longer ranges are folded into ISO weeks: each
// day contributes to the bucket keyed by the Monday on or before it, values
// summed per bucket. The output is sparse (days or weeks with no orders
// produce no point) and sorted ascending by bucket date. The threshold
// bounds the number of rendered points for long ranges while keeping daily
// resolution for short ones.
func Rebucket(cfg Config, start, end time.Time, daily []Bucket) []Bucket {
	if daysBetween(start, end) <= cfg.WeeklyThresholdDays {
		out := make([]Bucket, len(daily))
		copy(out, daily)
		sortBuckets(out)
		return out
	}

	byWeek := make(map[time.Time]Bucket, len(daily))
	for _, d := range daily {
		monday := weekStart(d.Date)
		w, ok := byWeek[monday]
		if !ok {
			w = Bucket{Date: monday}
		}
		w.Revenue = w.Revenue.Add(d.Revenue)
		w.Orders += d.Orders
		w.Units += d.Units
		byWeek[monday] = w
	}

	out := make([]Bucket, 0, len(byWeek))
	for _, w := range byWeek {
		out = append(out, w)
	}
	sortBuckets(out)
	return out
}

// daysBetween counts whole calendar days from start to end, ignoring
// time-of-day and DST shifts.
func daysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s) / (24 * time.Hour))
}

// weekStart returns the Monday on or before the given day, at midnight in the
// day's location.
func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, day.Location())
}

func sortBuckets(buckets []Bucket) {
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date.Before(buckets[j].Date)
	})
}
