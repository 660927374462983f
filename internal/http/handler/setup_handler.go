package handler

import (
	"encoding/json"
	"net/http"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/http/response"
	"github.com/crewsight/crewsight/internal/observability"
	"github.com/crewsight/crewsight/internal/service"
)

// SetupHandler exposes the one-time bootstrap endpoints. They are the only
// unauthenticated mutating surface, usable exactly once per deployment.
type SetupHandler struct {
	setup *service.SetupService
}

func NewSetupHandler(setup *service.SetupService) *SetupHandler {
	return &SetupHandler{setup: setup}
}

func (h *SetupHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.setup.Status()
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *SetupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTeamInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.FromError(w, r, domain.Validationf("invalid request body"))
		return
	}
	result, err := h.setup.CreateTeam(in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditTeamBootstrapped, "team_id", result.TeamID)
	response.JSON(w, r, http.StatusCreated, result)
}
