package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/crewsight/crewsight/internal/domain"
)

// The wire envelope is deliberately minimal: success is {"data": ...},
// failure is {"error": "..."}. Request ids travel in the X-Request-Id
// header, never in the body.

type successEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeHeaders(w, r)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: data})
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeHeaders(w, r)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: message})
}

// FromError maps a domain error onto the wire. Unknown errors become an
// opaque 500; the cause is logged server side and never echoed to the
// caller.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		Error(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrConflict):
		Error(w, r, http.StatusBadRequest, "already initialized")
	case errors.Is(err, domain.ErrUnauthorized):
		Error(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrAccountDisabled):
		Error(w, r, http.StatusUnauthorized, "account disabled")
	case errors.Is(err, domain.ErrForbidden):
		Error(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		Error(w, r, http.StatusNotFound, "not found")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		w.Header().Set("X-Request-Id", id)
	}
}
