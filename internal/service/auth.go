package service

import (
	"errors"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/repository"
	"github.com/crewsight/crewsight/internal/security"
)

// AuthService handles dashboard login: the shared team password unlocks a
// signed browser session acting as the team's founding admin.
type AuthService struct {
	teams  repository.TeamRepository
	users  repository.UserRepository
	tokens *security.SessionTokenManager
	ttl    time.Duration
}

func NewAuthService(teams repository.TeamRepository, users repository.UserRepository, tokens *security.SessionTokenManager, ttl time.Duration) *AuthService {
	return &AuthService{teams: teams, users: users, tokens: tokens, ttl: ttl}
}

func (a *AuthService) SessionTTL() time.Duration { return a.ttl }

// Login checks the dashboard password and returns a signed session token for
// the team's founding admin. A wrong password and a missing team both read
// as unauthorized.
func (a *AuthService) Login(password string) (string, error) {
	team, err := a.teams.Get()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", err
	}
	if !security.VerifyPassword(team.DashboardPasswordHash, password) {
		return "", domain.ErrUnauthorized
	}
	admin, err := a.users.FirstAdminByTeam(team.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", err
	}
	if !admin.IsActive {
		return "", domain.ErrAccountDisabled
	}
	return a.tokens.Sign(admin.ID, a.ttl)
}
