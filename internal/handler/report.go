package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type chartResponse struct {
	Dates    []string          `json:"dates"`
	Revenue  []decimal.Decimal `json:"revenue"`
	Orders   []int64           `json:"orders"`
	Units    []int64           `json:"units"`
	Interval string            `json:"interval"`
}

type summaryResponse struct {
	TotalCustomers   int64               `json:"totalCustomers"`
	NewCustomers7d   int64               `json:"newCustomers7d"`
	TotalOrders      int64               `json:"totalOrders"`
	RevenueChangePct decimal.Decimal     `json:"revenueChangePct"`
	TopSellers       []topSellerResponse `json:"topSellers"`
}

type topSellerResponse struct {
	VariantID   string `json:"variantId"`
	ProductName string `json:"productName"`
	Units       int64  `json:"units"`
}

type statsResponse struct {
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Units   int64           `json:"units"`
}

// parseRange reads start and end query parameters as calendar dates in the
// application time zone.
func (h *Handler) parseRange(r *http.Request) (start, end time.Time, ok bool) {
	var err error
	start, err = time.ParseInLocation(dateLayout, r.URL.Query().Get("start"), h.loc)
	if err != nil {
		return start, end, false
	}
	end, err = time.ParseInLocation(dateLayout, r.URL.Query().Get("end"), h.loc)
	if err != nil {
		return start, end, false
	}
	return start, end, true
}

func (h *Handler) chartData(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "start and end must be dates in YYYY-MM-DD form")
		return
	}

	buckets, err := h.reports.ChartData(r.Context(), start, end)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := chartResponse{
		Dates:    make([]string, len(buckets)),
		Revenue:  make([]decimal.Decimal, len(buckets)),
		Orders:   make([]int64, len(buckets)),
		Units:    make([]int64, len(buckets)),
		Interval: h.reports.Interval(start, end),
	}
	for i, b := range buckets {
		resp.Dates[i] = b.Date.Format(dateLayout)
		resp.Revenue[i] = b.Revenue
		resp.Orders[i] = b.Orders
		resp.Units[i] = b.Units
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.reports.Summary(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	sellers := make([]topSellerResponse, len(sum.TopSellers))
	for i, s := range sum.TopSellers {
		sellers[i] = topSellerResponse{
			VariantID:   s.VariantID,
			ProductName: s.ProductName,
			Units:       s.Units,
		}
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		TotalCustomers:   sum.TotalCustomers,
		NewCustomers7d:   sum.NewCustomers7d,
		TotalOrders:      sum.TotalOrders,
		RevenueChangePct: sum.RevenueChangePct,
		TopSellers:       sellers,
	})
}

func (h *Handler) salesStatistics(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "start and end must be dates in YYYY-MM-DD form")
		return
	}

	stats, err := h.reports.Statistics(r.Context(), start, end)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Orders:  stats.Orders,
		Revenue: stats.Revenue,
		Units:   stats.Units,
	})
}
