package handler

import (
	"encoding/json"
	"net/http"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/http/middleware"
	"github.com/crewsight/crewsight/internal/http/response"
	"github.com/crewsight/crewsight/internal/identifier"
	"github.com/crewsight/crewsight/internal/observability"
	"github.com/crewsight/crewsight/internal/security"
	"github.com/crewsight/crewsight/internal/service"
)

// AuthHandler handles dashboard login and logout. Success plants the signed
// session cookie plus the csrf double-submit cookie.
type AuthHandler struct {
	auth         *service.AuthService
	cookieSecure bool
}

func NewAuthHandler(auth *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.FromError(w, r, domain.Validationf("invalid request body"))
		return
	}
	if in.Password == "" {
		response.FromError(w, r, domain.Validationf("password is required"))
		return
	}
	token, err := h.auth.Login(in.Password)
	if err != nil {
		observability.Audit(r, observability.AuditDashboardLogin, "outcome", "failure")
		response.FromError(w, r, err)
		return
	}
	ttl := h.auth.SessionTTL()
	security.SetSessionCookie(w, token, ttl, h.cookieSecure)
	middleware.SetCSRFCookie(w, identifier.NewToken(), ttl, h.cookieSecure)
	observability.Audit(r, observability.AuditDashboardLogin, "outcome", "success")
	response.JSON(w, r, http.StatusOK, map[string]bool{"authenticated": true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	security.ClearSessionCookie(w, h.cookieSecure)
	observability.Audit(r, observability.AuditDashboardLogout)
	response.JSON(w, r, http.StatusOK, map[string]bool{"authenticated": false})
}
