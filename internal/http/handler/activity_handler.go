package handler

import (
	"net/http"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/http/middleware"
	"github.com/crewsight/crewsight/internal/http/response"
	"github.com/crewsight/crewsight/internal/service"
)

// ActivityHandler serves the dashboard's activity views.
type ActivityHandler struct {
	aggregator *service.ActivityAggregator
}

func NewActivityHandler(aggregator *service.ActivityAggregator) *ActivityHandler {
	return &ActivityHandler{aggregator: aggregator}
}

// ByUser handles GET /activity?view=byUser&includeStale=bool.
func (h *ActivityHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if view := r.URL.Query().Get("view"); view != "byUser" {
		response.FromError(w, r, domain.Validationf("unsupported view %q", view))
		return
	}
	includeStale := r.URL.Query().Get("includeStale") == "true"

	summaries, err := h.aggregator.ByUserSummary(identity, includeStale)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, summaries)
}
