package observability

import (
	"log/slog"
	"net/http"
)

// Audit event names for the security-sensitive operations. The audit trail
// is the structured log stream itself; operators filter on event.
const (
	AuditTeamBootstrapped = "team_bootstrapped"
	AuditDashboardLogin   = "dashboard_login"
	AuditDashboardLogout  = "dashboard_logout"
	AuditLogsPruned       = "logs_pruned"
)

// Audit emits one audit record for a handled request. Attrs carry the
// event-specific detail, never credentials or token material.
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}
