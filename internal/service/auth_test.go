package service

import (
	"errors"
	"testing"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
)

func bootstrapTeam(t *testing.T, e *testEnv, password string) {
	t.Helper()
	if _, err := NewSetupService(e.teams).CreateTeam(CreateTeamInput{
		TeamName:          "alpha",
		AdminName:         "ana",
		DashboardPassword: password,
	}); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
}

func TestLoginIssuesSessionForFoundingAdmin(t *testing.T) {
	e := newTestEnv(t)
	bootstrapTeam(t, e, "dashboard-password")
	auth := NewAuthService(e.teams, e.users, e.tokens, time.Hour)

	signed, err := auth.Login("dashboard-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := e.tokens.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	team, err := e.teams.Get()
	if err != nil {
		t.Fatalf("team: %v", err)
	}
	admin, err := e.users.FirstAdminByTeam(team.ID)
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if claims.Subject != admin.ID {
		t.Fatalf("token subject %s, want founding admin %s", claims.Subject, admin.ID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	bootstrapTeam(t, e, "dashboard-password")
	auth := NewAuthService(e.teams, e.users, e.tokens, time.Hour)

	if _, err := auth.Login("wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginBeforeSetup(t *testing.T) {
	e := newTestEnv(t)
	auth := NewAuthService(e.teams, e.users, e.tokens, time.Hour)

	if _, err := auth.Login("anything"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized before setup, got %v", err)
	}
}

func TestLoginDisabledAdmin(t *testing.T) {
	e := newTestEnv(t)
	bootstrapTeam(t, e, "dashboard-password")
	if err := e.db.Model(&domain.User{}).Where("role = ?", domain.RoleAdmin).Update("is_active", false).Error; err != nil {
		t.Fatalf("disable admin: %v", err)
	}
	auth := NewAuthService(e.teams, e.users, e.tokens, time.Hour)

	if _, err := auth.Login("dashboard-password"); !errors.Is(err, domain.ErrAccountDisabled) {
		t.Fatalf("expected account disabled, got %v", err)
	}
}
