package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/avelours/orderdesk/internal/domain/catalog"
	"github.com/avelours/orderdesk/internal/domain/coupon"
	"github.com/avelours/orderdesk/internal/domain/customer"
	"github.com/avelours/orderdesk/internal/domain/order"
	"github.com/avelours/orderdesk/internal/domain/report"
)

// errorResponse is the uniform error body for all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondError maps domain errors onto the HTTP taxonomy: absent entities are
// 404, malformed requests 400, counter and lifecycle conflicts 409.
// Everything else is an internal error: logged with full context, surfaced to
// the client only as a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, customer.ErrAddressNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrEmptyLines),
		errors.Is(err, order.ErrNegativeAmount),
		errors.Is(err, report.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, coupon.ErrExhausted),
		errors.Is(err, customer.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, err.Error())

	default:
		var (
			invalidQty     *order.InvalidQuantityError
			outOfStock     *catalog.OutOfStockError
			invalidTrans   *order.InvalidStatusTransitionError
			notCancellable *order.OrderNotCancellableError
		)
		switch {
		case errors.As(err, &invalidQty):
			writeError(w, http.StatusBadRequest, invalidQty.Error())
		case errors.As(err, &outOfStock):
			writeError(w, http.StatusConflict, outOfStock.Error())
		case errors.As(err, &invalidTrans):
			writeError(w, http.StatusConflict, invalidTrans.Error())
		case errors.As(err, &notCancellable):
			writeError(w, http.StatusConflict, notCancellable.Error())
		default:
			zctx.From(r.Context()).Error("request failed",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}
