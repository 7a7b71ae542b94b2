// Package handler implements the HTTP API surface. Handlers declare the
// narrow service interfaces they need locally, so the package never depends
// on concrete service implementations.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps a domain error onto its HTTP status and writes it.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFromErr(err), err.Error())
}

// statusFromErr maps domain errors to HTTP status codes: malformed input is
// 400, permission failures 403, lifecycle conflicts 409, solvency failures
// 422, and anything unclassified 500.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrValueTooSmall),
		errors.Is(err, domain.ErrValueTooLarge),
		errors.Is(err, domain.ErrValueInvalid),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, domain.ErrStartTime),
		errors.Is(err, domain.ErrEndTime),
		errors.Is(err, domain.ErrResolutionSide):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrIncorrectAuthority),
		errors.Is(err, domain.ErrResolutionAuthority),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrCurveComplete),
		errors.Is(err, domain.ErrMarketCompleted),
		errors.Is(err, domain.ErrMarketNotCompleted),
		errors.Is(err, domain.ErrLaunchPhase),
		errors.Is(err, domain.ErrEndTimeElapsed),
		errors.Is(err, domain.ErrResolutionYesAmount),
		errors.Is(err, domain.ErrResolutionNoAmount),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrLockHeld):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInsufficientTokens),
		errors.Is(err, domain.ErrInsufficientSol),
		errors.Is(err, domain.ErrReturnTooSmall),
		errors.Is(err, domain.ErrWithdrawAmount),
		errors.Is(err, domain.ErrWithdrawNotLP):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests

	default:
		return http.StatusInternalServerError
	}
}

// callerID extracts the caller identity from the X-User-ID header.
func callerID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// decodeBody unmarshals the JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
