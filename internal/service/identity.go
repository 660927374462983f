package service

import (
	"errors"
	"net/http"
	"strings"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/observability"
	"github.com/crewsight/crewsight/internal/repository"
	"github.com/crewsight/crewsight/internal/security"
)

// Identity is the single internal representation both credential forms
// resolve to: the caller's team and user.
type Identity struct {
	Team *domain.Team
	User *domain.User
}

type FailReason string

const (
	ReasonUnauthorized    FailReason = "unauthorized"
	ReasonAccountDisabled FailReason = "account_disabled"
	ReasonInternal        FailReason = "internal"
)

type AuthFailure struct {
	Reason  FailReason
	Status  int
	Message string
}

// AuthOutcome is a tagged result: exactly one of Identity or Failure is set.
// Callers branch on the tag; nothing in the auth path panics or throws.
type AuthOutcome struct {
	Identity *Identity
	Failure  *AuthFailure
}

func (o AuthOutcome) Authenticated() bool { return o.Identity != nil }

func authenticated(team *domain.Team, user *domain.User) AuthOutcome {
	return AuthOutcome{Identity: &Identity{Team: team, User: user}}
}

func failed(reason FailReason, status int, message string) AuthOutcome {
	return AuthOutcome{Failure: &AuthFailure{Reason: reason, Status: status, Message: message}}
}

// IdentityResolver turns a request into an AuthOutcome. Two credential forms
// are tried in a fixed order: the signed dashboard cookie, then a bearer
// token matching a user or team token. The first form that validates wins.
type IdentityResolver struct {
	teams  repository.TeamRepository
	users  repository.UserRepository
	tokens *security.SessionTokenManager
}

func NewIdentityResolver(teams repository.TeamRepository, users repository.UserRepository, tokens *security.SessionTokenManager) *IdentityResolver {
	return &IdentityResolver{teams: teams, users: users, tokens: tokens}
}

func (r *IdentityResolver) Resolve(req *http.Request) AuthOutcome {
	if raw := security.GetCookie(req, security.SessionCookieName); raw != "" {
		outcome := r.resolveCookie(raw)
		if outcome.Authenticated() || outcome.Failure.Reason != ReasonUnauthorized {
			observability.RecordAuthResolution("cookie", string(outcomeTag(outcome)))
			return outcome
		}
		// fall through: an invalid cookie still allows a bearer token
	}

	if token := bearerToken(req); token != "" {
		outcome := r.resolveBearer(token)
		observability.RecordAuthResolution("bearer", string(outcomeTag(outcome)))
		return outcome
	}

	observability.RecordAuthResolution("none", "missing")
	return failed(ReasonUnauthorized, http.StatusUnauthorized, "authentication required")
}

func (r *IdentityResolver) resolveCookie(raw string) AuthOutcome {
	claims, err := r.tokens.Parse(raw)
	if err != nil {
		return failed(ReasonUnauthorized, http.StatusUnauthorized, "invalid session")
	}
	user, err := r.users.FindByID(claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failed(ReasonUnauthorized, http.StatusUnauthorized, "invalid session")
		}
		return failed(ReasonInternal, http.StatusInternalServerError, "authentication failed")
	}
	return r.finish(user)
}

func (r *IdentityResolver) resolveBearer(token string) AuthOutcome {
	user, err := r.users.FindByToken(token)
	if err == nil {
		return r.finish(user)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return failed(ReasonInternal, http.StatusInternalServerError, "authentication failed")
	}

	team, err := r.teams.FindByToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failed(ReasonUnauthorized, http.StatusUnauthorized, "invalid token")
		}
		return failed(ReasonInternal, http.StatusInternalServerError, "authentication failed")
	}
	// a team token acts as the team's founding admin
	admin, err := r.users.FirstAdminByTeam(team.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failed(ReasonUnauthorized, http.StatusUnauthorized, "invalid token")
		}
		return failed(ReasonInternal, http.StatusInternalServerError, "authentication failed")
	}
	return r.finishWithTeam(team, admin)
}

func (r *IdentityResolver) finish(user *domain.User) AuthOutcome {
	team, err := r.teams.Get()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failed(ReasonUnauthorized, http.StatusUnauthorized, "invalid session")
		}
		return failed(ReasonInternal, http.StatusInternalServerError, "authentication failed")
	}
	if user.TeamID != team.ID {
		return failed(ReasonUnauthorized, http.StatusUnauthorized, "invalid session")
	}
	return r.finishWithTeam(team, user)
}

func (r *IdentityResolver) finishWithTeam(team *domain.Team, user *domain.User) AuthOutcome {
	// a valid credential for a disabled account must never reach data access
	if !user.IsActive {
		return failed(ReasonAccountDisabled, http.StatusUnauthorized, "account disabled")
	}
	return authenticated(team, user)
}

func bearerToken(req *http.Request) string {
	auth := req.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

func outcomeTag(o AuthOutcome) FailReason {
	if o.Authenticated() {
		return "valid"
	}
	return o.Failure.Reason
}
