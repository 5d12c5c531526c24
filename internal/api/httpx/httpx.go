package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/baharkarakas/hodl-ledger/internal/api/validate"
	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/repository"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteErr maps service and ledger errors onto status codes.
func WriteErr(w http.ResponseWriter, err error) {
	var verrs validate.Errs
	switch {
	case errors.As(err, &verrs):
		WriteError(w, http.StatusBadRequest, "validation_failed", "invalid input", verrs)
	case errors.Is(err, repository.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, ledger.ErrAlignment):
		WriteError(w, http.StatusBadRequest, "misaligned_timestamp", err.Error(), nil)
	case errors.Is(err, ledger.ErrRange):
		WriteError(w, http.StatusBadRequest, "invalid_range", err.Error(), nil)
	case errors.Is(err, ledger.ErrDivisionByZero):
		WriteError(w, http.StatusUnprocessableEntity, "zero_denominator", err.Error(), nil)
	case errors.Is(err, ledger.ErrInvariantViolation):
		slog.Error("ledger invariant violated", "err", err)
		WriteError(w, http.StatusInternalServerError, "invariant_violation", err.Error(), nil)
	default:
		slog.Error("request failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

// DecodeJSON rejects unknown fields and trailing garbage.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// Page reads limit/offset with the given default limit, capped at max.
func Page(r *http.Request, def, max int) (limit, offset int) {
	limit = def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// Int64Param parses a required integer query parameter.
func Int64Param(r *http.Request, name string) (int64, *validate.ErrField) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, &validate.ErrField{Field: name, Msg: "required"}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &validate.ErrField{Field: name, Msg: "must be an integer"}
	}
	return n, nil
}
