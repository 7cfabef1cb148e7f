package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopcore/storefront/internal/domain"
)

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	var body errorBody
	body.Error.Message = msg
	writeJSON(w, code, body)
}

// writeDomainError maps service errors onto status codes. Signature failures
// stay generic on purpose: the caller learns nothing about which check failed.
func writeDomainError(w http.ResponseWriter, err error) {
	var ise *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		writeError(w, http.StatusUnauthorized, "payment verification failed")
	case errors.Is(err, domain.ErrUnknownTransaction):
		writeError(w, http.StatusNotFound, "unknown transaction reference")
	case errors.Is(err, domain.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, "variant not found")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &ise):
		writeError(w, http.StatusConflict, ise.Error())
	case errors.Is(err, domain.ErrCartNotOpen):
		writeError(w, http.StatusConflict, "cart is no longer open")
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, "order is not in a state that allows this")
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "payment provider unavailable")
	case errors.Is(err, domain.ErrNegativeStock):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
