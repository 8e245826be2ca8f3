package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelours/orderdesk/internal/domain/order"
)

type createOrderRequest struct {
	UserEmail     string             `json:"userEmail"`
	AddressID     string             `json:"addressId"`
	Lines         []orderLineRequest `json:"lines"`
	CouponCode    string             `json:"couponCode,omitempty"`
	PointsToUse   decimal.Decimal    `json:"pointsToUse"`
	PaymentMethod string             `json:"paymentMethod"`
	ShippingFee   decimal.Decimal    `json:"shippingFee"`
	Tax           decimal.Decimal    `json:"tax"`
}

type orderLineRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type transitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type cancelRequest struct {
	UserEmail string `json:"userEmail"`
}

type orderResponse struct {
	ID             string                  `json:"id"`
	CustomerID     string                  `json:"customerId"`
	Recipient      string                  `json:"recipient"`
	Phone          string                  `json:"phone"`
	AddressText    string                  `json:"addressText"`
	Lines          []orderLineResponse     `json:"lines"`
	Subtotal       decimal.Decimal         `json:"subtotal"`
	CouponDiscount decimal.Decimal         `json:"couponDiscount"`
	PointsDiscount decimal.Decimal         `json:"pointsDiscount"`
	ShippingFee    decimal.Decimal         `json:"shippingFee"`
	Tax            decimal.Decimal         `json:"tax"`
	TotalAmount    decimal.Decimal         `json:"totalAmount"`
	PaymentMethod  string                  `json:"paymentMethod"`
	PaymentStatus  string                  `json:"paymentStatus"`
	Status         string                  `json:"status"`
	CouponCode     string                  `json:"couponCode,omitempty"`
	PointsEarned   decimal.Decimal         `json:"pointsEarned"`
	History        []statusHistoryResponse `json:"history"`
	CreatedDate    time.Time               `json:"createdDate"`
	UpdatedDate    time.Time               `json:"updatedDate"`
}

type orderLineResponse struct {
	VariantID       string          `json:"variantId"`
	ProductName     string          `json:"productName"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
	DiscountPct     decimal.Decimal `json:"productDiscountPercentage"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

type statusHistoryResponse struct {
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// orderToResponse maps the aggregate onto its transport shape field by field.
func orderToResponse(o *order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			VariantID:       l.VariantID,
			ProductName:     l.ProductName,
			ImageURL:        l.ImageURL,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase,
			DiscountPct:     l.DiscountPct,
			LineTotal:       l.LineTotal,
		}
	}
	history := make([]statusHistoryResponse, len(o.History))
	for i, h := range o.History {
		history[i] = statusHistoryResponse{
			Status:    string(h.Status),
			Notes:     h.Notes,
			Timestamp: h.CreatedDate,
		}
	}
	return orderResponse{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		Recipient:      o.Recipient,
		Phone:          o.Phone,
		AddressText:    o.AddressText,
		Lines:          lines,
		Subtotal:       o.Subtotal,
		CouponDiscount: o.CouponDiscount,
		PointsDiscount: o.PointsDiscount,
		ShippingFee:    o.ShippingFee,
		Tax:            o.Tax,
		TotalAmount:    o.TotalAmount,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  string(o.PaymentStatus),
		Status:         string(o.Status),
		CouponCode:     o.CouponCode,
		PointsEarned:   o.PointsEarned,
		History:        history,
		CreatedDate:    o.CreatedDate,
		UpdatedDate:    o.UpdatedDate,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserEmail == "" || req.AddressID == "" || req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "userEmail, addressId and paymentMethod are required")
		return
	}

	lines := make([]order.LineRequest, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = order.LineRequest{VariantID: l.VariantID, Quantity: l.Quantity}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		CustomerEmail: req.UserEmail,
		AddressID:     req.AddressID,
		Lines:         lines,
		CouponCode:    req.CouponCode,
		PointsToUse:   req.PointsToUse,
		PaymentMethod: req.PaymentMethod,
		ShippingFee:   req.ShippingFee,
		Tax:           req.Tax,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderToResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(o))
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	o, err := h.orders.Transition(r.Context(), order.TransitionRequest{
		OrderID: r.PathValue("id"),
		To:      order.Status(req.Status),
		Notes:   req.Notes,
		Actor:   order.ActorAdmin,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserEmail == "" {
		writeError(w, http.StatusBadRequest, "userEmail is required")
		return
	}

	o, err := h.orders.Transition(r.Context(), order.TransitionRequest{
		OrderID:       r.PathValue("id"),
		To:            order.StatusCancelled,
		Actor:         order.ActorCustomer,
		CustomerEmail: req.UserEmail,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(o))
}
