// Package handler exposes the order and reporting services over HTTP with
// explicit request/response mapping per boundary.
package handler

import (
	"net/http"
	"time"

	"github.com/avelours/orderdesk/internal/auth"
	"github.com/avelours/orderdesk/internal/domain/order"
	"github.com/avelours/orderdesk/internal/domain/report"
)

// Handler serves the /api routes, delegating business logic to the order and
// report services.
type Handler struct {
	orders   *order.Service
	reports  *report.Service
	security *SecurityHandler
	loc      *time.Location
}

// NewHandler constructs a Handler with the required services.
func NewHandler(
	orders *order.Service,
	reports *report.Service,
	security *SecurityHandler,
	loc *time.Location,
) *Handler {
	return &Handler{
		orders:   orders,
		reports:  reports,
		security: security,
		loc:      loc,
	}
}

// Register mounts all API routes on the mux. Order routes require the orders
// scope, reporting and admin transitions the admin scope.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/orders", h.security.Require(auth.ScopeOrders, http.HandlerFunc(h.createOrder)))
	mux.Handle("GET /api/orders/{id}", h.security.Require(auth.ScopeOrders, http.HandlerFunc(h.getOrder)))
	mux.Handle("POST /api/orders/{id}/cancel", h.security.Require(auth.ScopeOrders, http.HandlerFunc(h.cancelOrder)))
	mux.Handle("POST /api/orders/{id}/status", h.security.Require(auth.ScopeAdmin, http.HandlerFunc(h.transitionOrder)))
	mux.Handle("GET /api/reports/chart", h.security.Require(auth.ScopeAdmin, http.HandlerFunc(h.chartData)))
	mux.Handle("GET /api/reports/summary", h.security.Require(auth.ScopeAdmin, http.HandlerFunc(h.dashboardSummary)))
	mux.Handle("GET /api/reports/statistics", h.security.Require(auth.ScopeAdmin, http.HandlerFunc(h.salesStatistics)))
}
