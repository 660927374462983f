package handler

import (
	"encoding/json"
	"net/http"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/http/middleware"
	"github.com/crewsight/crewsight/internal/http/response"
	"github.com/crewsight/crewsight/internal/service"
)

// LogHandler receives plugin log batches.
type LogHandler struct {
	ingestor *service.LogIngestor
}

func NewLogHandler(ingestor *service.LogIngestor) *LogHandler {
	return &LogHandler{ingestor: ingestor}
}

type submitLogsRequest struct {
	Logs []service.LogEntryInput `json:"logs"`
}

func (h *LogHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var in submitLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.FromError(w, r, domain.Validationf("invalid request body"))
		return
	}
	received, err := h.ingestor.SubmitBatch(identity, in.Logs)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]int{"received": received})
}
