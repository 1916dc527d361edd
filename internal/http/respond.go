package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"spendtrail/internal/auth"
	"spendtrail/internal/core"
	"spendtrail/internal/log"
	"spendtrail/internal/middleware/trace"
	"spendtrail/internal/storage"
)

// errorBody is the wire shape of every error response. The client
// surfaces Detail verbatim, so it must stay human readable.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// validationErrors are the domain sentinels that map to 422.
var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidYear,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrEmptyName,
	core.ErrInvalidFrequency,
	core.ErrMissingTerminator,
	core.ErrZeroDate,
	core.ErrCategoryTooLong,
	core.ErrNameTooLong,
	core.ErrEndBeforeStart,
	core.ErrNegativeRepeatCount,
}

// respondError maps a handler error onto the API's status taxonomy.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeDetail(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, storage.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicate):
		writeDetail(w, http.StatusUnprocessableEntity, "already exists")
	case isValidationError(err):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logs.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method,
			log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func authTokenFrom(r *http.Request) (string, error) {
	return auth.FromHeader(r.Header.Get("Authorization"))
}

// decodeBody parses a JSON request body into dst, answering a 400 on
// malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
