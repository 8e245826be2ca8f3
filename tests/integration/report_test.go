//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"
)

func TestReports_RequireAdminScope(t *testing.T) {
	paths := []string{
		"/api/reports/chart?start=2026-01-01&end=2026-01-31",
		"/api/reports/summary",
		"/api/reports/statistics?start=2026-01-01&end=2026-01-31",
	}
	for _, path := range paths {
		resp := doGetWithAuth(t, path, testAPIKey)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestChartData(t *testing.T) {
	// Place an order so today has at least one data point.
	placeOrder(t, validOrder())

	today := time.Now().UTC().Format("2006-01-02")
	resp := doGetWithAuth(t, "/api/reports/chart?start="+today+"&end="+today, adminAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	chart := decodeJSON[chartResponse](t, resp)
	if chart.Interval != "daily" {
		t.Errorf("interval: got %q, want daily", chart.Interval)
	}
	if len(chart.Dates) == 0 {
		t.Fatal("expected at least one data point")
	}
	if chart.Dates[0] != today {
		t.Errorf("date: got %q, want %q", chart.Dates[0], today)
	}
	if chart.Orders[0] < 1 {
		t.Errorf("orders: got %d, want >= 1", chart.Orders[0])
	}
}

func TestChartData_WeeklyInterval(t *testing.T) {
	resp := doGetWithAuth(t, "/api/reports/chart?start=2026-01-01&end=2026-06-30", adminAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	chart := decodeJSON[chartResponse](t, resp)
	if chart.Interval != "weekly" {
		t.Errorf("interval: got %q, want weekly", chart.Interval)
	}
}

func TestChartData_InvalidRange(t *testing.T) {
	resp := doGetWithAuth(t, "/api/reports/chart?start=2026-02-01&end=2026-01-01", adminAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message == "" {
		t.Error("expected an error message")
	}
}

func TestDashboardSummary(t *testing.T) {
	placeOrder(t, validOrder())

	resp := doGetWithAuth(t, "/api/reports/summary", adminAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	summary := decodeJSON[summaryResponse](t, resp)
	if summary.TotalCustomers < 1 {
		t.Errorf("total customers: got %d, want >= 1", summary.TotalCustomers)
	}
	if summary.TotalOrders < 1 {
		t.Errorf("total orders: got %d, want >= 1", summary.TotalOrders)
	}
}

func TestSalesStatistics(t *testing.T) {
	placeOrder(t, validOrder())

	today := time.Now().UTC().Format("2006-01-02")
	resp := doGetWithAuth(t, "/api/reports/statistics?start="+today+"&end="+today, adminAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	stats := decodeJSON[struct {
		Orders  int64  `json:"orders"`
		Revenue string `json:"revenue"`
		Units   int64  `json:"units"`
	}](t, resp)
	if stats.Orders < 1 {
		t.Errorf("orders: got %d, want >= 1", stats.Orders)
	}
	if stats.Units < 1 {
		t.Errorf("units: got %d, want >= 1", stats.Units)
	}
}
