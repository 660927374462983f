package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/http/middleware"
	"github.com/crewsight/crewsight/internal/http/response"
	"github.com/crewsight/crewsight/internal/repository"
	"github.com/crewsight/crewsight/internal/service"
)

// SessionHandler serves the plugin's session lifecycle endpoints and the
// dashboard's per-session activity feed.
type SessionHandler struct {
	registry   *service.SessionRegistry
	aggregator *service.ActivityAggregator
}

func NewSessionHandler(registry *service.SessionRegistry, aggregator *service.ActivityAggregator) *SessionHandler {
	return &SessionHandler{registry: registry, aggregator: aggregator}
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var in service.StartSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.FromError(w, r, domain.Validationf("invalid request body"))
		return
	}
	session, err := h.registry.Start(identity, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]string{"session_id": session.ID})
}

type heartbeatRequest struct {
	Files []string `json:"files"`
}

func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var in heartbeatRequest
	if r.Body != nil {
		// an empty body is a plain keepalive with no files
		_ = json.NewDecoder(r.Body).Decode(&in)
	}
	session, err := h.registry.Heartbeat(identity, chi.URLParam(r, "id"), in.Files)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"session_id":       session.ID,
		"last_activity_at": session.LastActivityAt,
	})
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.registry.End(identity, chi.URLParam(r, "id")); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"ended": true})
}

// Activities handles GET /sessions/{id}/activities with limit/offset
// pagination.
func (h *SessionHandler) Activities(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	q := r.URL.Query()
	window := repository.ParseWindow(q.Get("limit"), q.Get("offset"), repository.DefaultFeedLimit, repository.MaxFeedLimit)

	feed, err := h.aggregator.Feed(identity, chi.URLParam(r, "id"), window)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, feed)
}
