package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/logger"
	"pasarku-be/internal/order"

	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.L().Error("failed to encode response", zap.Error(err))
		}
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps domain errors onto the HTTP surface: not-found and
// ownership failures are 404/403, business-rule violations 400, dependency
// outages 503. Anything unrecognized is a 500 with a generic body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ite *order.InvalidTransitionError

	switch {
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrCartNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())

	case errors.Is(err, cart.ErrNotOwned),
		errors.Is(err, order.ErrNotOwned),
		errors.Is(err, order.ErrCartNotOwned):
		writeError(w, http.StatusForbidden, "NOT_OWNED", err.Error())

	case errors.As(err, &ite):
		writeError(w, http.StatusBadRequest, "INVALID_STATE_TRANSITION", err.Error())

	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidOwner),
		errors.Is(err, cart.ErrCartFull),
		errors.Is(err, cart.ErrStockUnavailable),
		errors.Is(err, order.ErrCartEmpty),
		errors.Is(err, order.ErrStockUnavailable):
		writeError(w, http.StatusBadRequest, "BUSINESS_RULE_VIOLATION", err.Error())

	case errors.Is(err, cart.ErrInventoryUnavailable):
		writeError(w, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", err.Error())

	default:
		logger.FromCtx(r.Context()).Error("unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return false
	}
	return true
}
