package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/f-lab-edu/ticketing-platform/internal/domain"
)

const (
	codeInvalidRequest    = "invalid_request"
	codeNotFound          = "not_found"
	codeInsufficientStock = "insufficient_stock"
	codeNotAdmitted       = "not_admitted"
	codeDuplicateEntry    = "duplicate_registration"
	codeTooManyRetries    = "too_many_retries"
	codeInternalError     = "internal_error"
)

// Every successful response wraps its payload under a data key; clients parse
// res.body.data.
type dataEnvelope struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeData(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: payload})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Code: code})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrNotAdmitted):
		writeError(w, http.StatusForbidden, codeNotAdmitted, err.Error())
	case errors.Is(err, domain.ErrDuplicateRegistration):
		writeError(w, http.StatusConflict, codeDuplicateEntry, err.Error())
	case errors.Is(err, domain.ErrTooManyRetries):
		writeError(w, http.StatusServiceUnavailable, codeTooManyRetries, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
