package handler

import (
	"net/http"
	"strconv"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/http/middleware"
	"github.com/crewsight/crewsight/internal/http/response"
	"github.com/crewsight/crewsight/internal/observability"
	"github.com/crewsight/crewsight/internal/repository"
	"github.com/crewsight/crewsight/internal/service"
)

const defaultPruneDays = 30

// AdminHandler serves the dashboard's administrative views. The log browse
// and prune routes sit behind the admin gate; repos and users narrow by
// capability instead.
type AdminHandler struct {
	ingestor  *service.LogIngestor
	directory *service.DirectoryService
}

func NewAdminHandler(ingestor *service.LogIngestor, directory *service.DirectoryService) *AdminHandler {
	return &AdminHandler{ingestor: ingestor, directory: directory}
}

func (h *AdminHandler) BrowseLogs(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	q := r.URL.Query()
	filter := repository.LogFilter{
		UserID: q.Get("user_id"),
		Level:  q.Get("level"),
		Window: repository.ParseWindow(q.Get("limit"), q.Get("offset"), repository.DefaultLogLimit, repository.MaxLogLimit),
	}
	logs, total, err := h.ingestor.Browse(identity, filter)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	// the user list drives the dashboard's submitter filter dropdown
	users, err := h.directory.TeamUsers(identity)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	refs := make([]userRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, userRef{ID: u.ID, Name: u.Name})
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"logs":    logs,
		"users":   refs,
		"total":   total,
		"hasMore": filter.Window.HasMore(len(logs), total),
		"limit":   filter.Window.Limit,
		"offset":  filter.Window.Offset,
	})
}

func (h *AdminHandler) PruneLogs(w http.ResponseWriter, r *http.Request) {
	days := defaultPruneDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.FromError(w, r, domain.Validationf("days must be a number"))
			return
		}
		days = v
	}
	deleted, err := h.ingestor.PruneOlderThan(days)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditLogsPruned, "days", days, "deleted", deleted)
	response.JSON(w, r, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *AdminHandler) ListRepos(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	repos, err := h.directory.VisibleRepos(identity)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if repos == nil {
		repos = []domain.Repo{}
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"repos":    repos,
		"is_admin": identity.User.IsAdmin(),
	})
}

type userRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userRow struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    *string `json:"email,omitempty"`
	Role     string  `json:"role"`
	IsActive bool    `json:"is_active"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	users, err := h.directory.TeamUsers(identity)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, IsActive: u.IsActive})
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"users":           rows,
		"current_user_id": identity.User.ID,
		"is_admin":        identity.User.IsAdmin(),
	})
}
