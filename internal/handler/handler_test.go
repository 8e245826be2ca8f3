package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelours/orderdesk/internal/auth"
	"github.com/avelours/orderdesk/internal/domain/catalog"
	"github.com/avelours/orderdesk/internal/domain/coupon"
	"github.com/avelours/orderdesk/internal/domain/customer"
	"github.com/avelours/orderdesk/internal/domain/order"
	"github.com/avelours/orderdesk/internal/domain/report"
)

// --- Mock repositories ---

type stubCustomerRepo struct {
	cust *customer.Customer
	addr *customer.Address
}

func (s *stubCustomerRepo) FindActiveByEmail(_ context.Context, email string) (*customer.Customer, error) {
	if s.cust == nil || s.cust.Email != email {
		return nil, customer.ErrNotFound
	}
	return s.cust, nil
}

func (s *stubCustomerRepo) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	if s.cust == nil || s.cust.ID != id {
		return nil, customer.ErrNotFound
	}
	return s.cust, nil
}

func (s *stubCustomerRepo) FindAddressForCustomer(_ context.Context, addressID, customerID string) (*customer.Address, error) {
	if s.addr == nil || s.addr.ID != addressID || s.addr.CustomerID != customerID {
		return nil, customer.ErrAddressNotFound
	}
	return s.addr, nil
}

type stubVariantRepo struct {
	variants map[string]catalog.Variant
}

func (s *stubVariantRepo) GetByID(_ context.Context, id string) (*catalog.Variant, error) {
	v, ok := s.variants[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &v, nil
}

func (s *stubVariantRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Variant, error) {
	var out []catalog.Variant
	for _, id := range ids {
		if v, ok := s.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type stubCouponRepo struct{}

func (stubCouponRepo) FindByCode(_ context.Context, _ string) (*coupon.Coupon, error) {
	return nil, coupon.ErrNotFound
}

type stubOrderRepo struct {
	byID map[string]*order.Order
}

func (s *stubOrderRepo) Create(_ context.Context, o *order.Order) error {
	s.byID[o.ID] = o
	return nil
}

func (s *stubOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (s *stubOrderRepo) Transition(_ context.Context, _ *order.Order, _ order.StatusHistory) error {
	return nil
}

func (s *stubOrderRepo) Cancel(_ context.Context, _ *order.Order, _ order.StatusHistory) error {
	return nil
}

func (s *stubOrderRepo) Complete(_ context.Context, _ *order.Order, _ order.StatusHistory) error {
	return nil
}

type stubReportStore struct {
	daily []report.Bucket
	stats *report.Stats
}

func (s *stubReportStore) DailyStats(_ context.Context, _, _ time.Time, _ *time.Location) ([]report.Bucket, error) {
	return s.daily, nil
}
func (s *stubReportStore) TotalCustomers(_ context.Context) (int64, error) { return 10, nil }

func (s *stubReportStore) CustomersSince(_ context.Context, _ time.Time) (int64, error) {
	return 2, nil
}

func (s *stubReportStore) TotalOrders(_ context.Context) (int64, error) { return 5, nil }
func (s *stubReportStore) RevenueBetween(_ context.Context, _, _ time.Time) (decimal.Decimal, error) {
	return decimal.RequireFromString("100.00"), nil
}
func (s *stubReportStore) TopSellers(_ context.Context, _, _ time.Time, _ int) ([]report.ProductSales, error) {
	return nil, nil
}
func (s *stubReportStore) RangeStats(_ context.Context, _, _ time.Time, _ *time.Location) (*report.Stats, error) {
	return s.stats, nil
}

// allowAllKeys authenticates every presented key with the requested hash and
// full admin scope.
type allowAllKeys struct{}

func (allowAllKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	return &auth.APIKeyInfo{ID: "test", KeyHash: hash, Scopes: []string{auth.ScopeAdmin}}, nil
}

// --- Fixture ---

func newTestMux(t *testing.T, orders *stubOrderRepo) *http.ServeMux {
	t.Helper()

	customers := &stubCustomerRepo{
		cust: &customer.Customer{
			ID:            "cust-1",
			Email:         "alice@example.com",
			PointsBalance: decimal.RequireFromString("100"),
			Active:        true,
		},
		addr: &customer.Address{
			ID:          "addr-1",
			CustomerID:  "cust-1",
			Recipient:   "Alice",
			AddressText: "12 Main St",
		},
	}
	variants := &stubVariantRepo{variants: map[string]catalog.Variant{
		"var-1": {
			ID:             "var-1",
			ProductName:    "Espresso Blend",
			Price:          decimal.RequireFromString("100.00"),
			DiscountPct:    decimal.RequireFromString("10"),
			AvailableStock: 5,
		},
	}}

	orderSvc := order.NewService(
		customers, variants, stubCouponRepo{}, orders,
		order.NewMachine(order.DefaultTransitions()),
		order.NewCalculator(order.DefaultPricingConfig()),
		nil,
	)
	reportSvc := report.NewService(&stubReportStore{
		daily: []report.Bucket{{
			Date:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Revenue: decimal.RequireFromString("50.00"),
			Orders:  1,
			Units:   2,
		}},
		stats: &report.Stats{Orders: 3, Revenue: decimal.RequireFromString("150.00"), Units: 6},
	}, report.DefaultConfig())

	security := NewSecurityHandler(allowAllKeys{}, []byte("pepper"))
	h := NewHandler(orderSvc, reportSvc, security, time.UTC)

	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("api_key", "test-key")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// --- Security ---

func TestSecurityMissingKey(t *testing.T) {
	mux := newTestMux(t, &stubOrderRepo{byID: map[string]*order.Order{}})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSecurityInsufficientScope(t *testing.T) {
	security := NewSecurityHandler(scopedKeys{scopes: []string{auth.ScopeOrders}}, []byte("pepper"))
	called := false
	handler := security.Require(auth.ScopeAdmin, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil)
	req.Header.Set("api_key", "orders-only")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

type scopedKeys struct {
	scopes []string
}

func (s scopedKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	return &auth.APIKeyInfo{ID: "k", KeyHash: hash, Scopes: s.scopes}, nil
}

// failingKeys simulates a key store outage.
type failingKeys struct{}

func (failingKeys) FindByHash(_ context.Context, _ string) (*auth.APIKeyInfo, error) {
	return nil, errors.New("connection refused")
}

// noKeys knows no keys at all.
type noKeys struct{}

func (noKeys) FindByHash(_ context.Context, _ string) (*auth.APIKeyInfo, error) {
	return nil, auth.ErrNotFound
}

func TestSecurityUnknownKey(t *testing.T) {
	security := NewSecurityHandler(noKeys{}, []byte("pepper"))
	handler := security.Require(auth.ScopeOrders, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run for an unknown key")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
	req.Header.Set("api_key", "who-dis")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSecurityKeyStoreFailure(t *testing.T) {
	security := NewSecurityHandler(failingKeys{}, []byte("pepper"))
	handler := security.Require(auth.ScopeOrders, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run when the key store is down")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
	req.Header.Set("api_key", "valid-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// An outage is not a credential problem.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- Orders ---

func TestCreateOrderEndpoint(t *testing.T) {
	mux := newTestMux(t, &stubOrderRepo{byID: map[string]*order.Order{}})

	body := `{
		"userEmail": "alice@example.com",
		"addressId": "addr-1",
		"paymentMethod": "card",
		"lines": [{"variantId": "var-1", "quantity": 2}],
		"shippingFee": "10.00",
		"tax": "5.00"
	}`
	rec := doRequest(mux, http.MethodPost, "/api/orders", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "UNPAID", resp.PaymentStatus)
	// 100 * 2 * 0.9 + 10 + 5
	assert.True(t, decimal.RequireFromString("195.00").Equal(resp.TotalAmount), "total %s", resp.TotalAmount)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "Espresso Blend", resp.Lines[0].ProductName)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "PENDING", resp.History[0].Status)
}

func TestCreateOrderEndpointErrors(t *testing.T) {
	mux := newTestMux(t, &stubOrderRepo{byID: map[string]*order.Order{}})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed json", body: `{"userEmail":`, want: http.StatusBadRequest},
		{
			name: "missing required fields",
			body: `{"lines": [{"variantId": "var-1", "quantity": 1}]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "unknown customer",
			body: `{"userEmail": "ghost@example.com", "addressId": "addr-1", "paymentMethod": "card",
				"lines": [{"variantId": "var-1", "quantity": 1}]}`,
			want: http.StatusNotFound,
		},
		{
			name: "out of stock",
			body: `{"userEmail": "alice@example.com", "addressId": "addr-1", "paymentMethod": "card",
				"lines": [{"variantId": "var-1", "quantity": 99}]}`,
			want: http.StatusConflict,
		},
		{
			name: "unknown coupon",
			body: `{"userEmail": "alice@example.com", "addressId": "addr-1", "paymentMethod": "card",
				"couponCode": "NOPE", "lines": [{"variantId": "var-1", "quantity": 1}]}`,
			want: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(mux, http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestGetOrderEndpoint(t *testing.T) {
	orders := &stubOrderRepo{byID: map[string]*order.Order{
		"order-1": {
			ID:          "order-1",
			CustomerID:  "cust-1",
			Status:      order.StatusPending,
			TotalAmount: decimal.RequireFromString("42.00"),
		},
	}}
	mux := newTestMux(t, orders)

	rec := doRequest(mux, http.MethodGet, "/api/orders/order-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "order-1", resp.ID)

	rec = doRequest(mux, http.MethodGet, "/api/orders/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrderEndpoint(t *testing.T) {
	orders := &stubOrderRepo{byID: map[string]*order.Order{
		"order-1": {ID: "order-1", CustomerID: "cust-1", Status: order.StatusPending},
	}}
	mux := newTestMux(t, orders)

	rec := doRequest(mux, http.MethodPost, "/api/orders/order-1/cancel",
		`{"userEmail": "alice@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestCancelShippedOrderConflicts(t *testing.T) {
	orders := &stubOrderRepo{byID: map[string]*order.Order{
		"order-1": {ID: "order-1", CustomerID: "cust-1", Status: order.StatusShipped},
	}}
	mux := newTestMux(t, orders)

	rec := doRequest(mux, http.MethodPost, "/api/orders/order-1/cancel",
		`{"userEmail": "alice@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransitionOrderEndpoint(t *testing.T) {
	orders := &stubOrderRepo{byID: map[string]*order.Order{
		"order-1": {ID: "order-1", CustomerID: "cust-1", Status: order.StatusPending},
	}}
	mux := newTestMux(t, orders)

	rec := doRequest(mux, http.MethodPost, "/api/orders/order-1/status",
		`{"status": "PROCESSING", "notes": "picked"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PROCESSING", resp.Status)

	rec = doRequest(mux, http.MethodPost, "/api/orders/order-1/status",
		`{"status": "DELIVERED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// --- Reports ---

func TestChartDataEndpoint(t *testing.T) {
	mux := newTestMux(t, &stubOrderRepo{byID: map[string]*order.Order{}})

	rec := doRequest(mux, http.MethodGet, "/api/reports/chart?start=2026-03-01&end=2026-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "daily", resp.Interval)
	require.Len(t, resp.Dates, 1)
	assert.Equal(t, "2026-03-02", resp.Dates[0])
	assert.Equal(t, int64(2), resp.Units[0])
}

func TestChartDataEndpointBadRange(t *testing.T) {
	mux := newTestMux(t, &stubOrderRepo{byID: map[string]*order.Order{}})

	rec := doRequest(mux, http.MethodGet, "/api/reports/chart?start=notadate&end=2026-03-10", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(mux, http.MethodGet, "/api/reports/chart?start=2026-03-10&end=2026-03-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardSummaryEndpoint(t *testing.T) {
	mux := newTestMux(t, &stubOrderRepo{byID: map[string]*order.Order{}})

	rec := doRequest(mux, http.MethodGet, "/api/reports/summary", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(10), resp.TotalCustomers)
	assert.Equal(t, int64(2), resp.NewCustomers7d)
	assert.Equal(t, int64(5), resp.TotalOrders)
	// Both revenue windows return the same figure.
	assert.True(t, resp.RevenueChangePct.IsZero())
}

func TestSalesStatisticsEndpoint(t *testing.T) {
	mux := newTestMux(t, &stubOrderRepo{byID: map[string]*order.Order{}})

	rec := doRequest(mux, http.MethodGet, "/api/reports/statistics?start=2026-03-01&end=2026-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Orders)
	assert.Equal(t, int64(6), resp.Units)
	assert.True(t, decimal.RequireFromString("150.00").Equal(resp.Revenue))
}
