package service

import (
	"errors"
	"testing"

	"github.com/crewsight/crewsight/internal/domain"
)

func TestScopeAdminCapability(t *testing.T) {
	admin := NewScope(Identity{User: &domain.User{Role: domain.RoleAdmin}})
	if !admin.CanSeeAllTeamData() {
		t.Fatal("admin must see all team data")
	}
	if err := admin.RequireAdmin(); err != nil {
		t.Fatalf("admin gate must pass: %v", err)
	}
}

func TestScopeMemberIsDenied(t *testing.T) {
	member := NewScope(Identity{User: &domain.User{Role: domain.RoleMember}})
	if member.CanSeeAllTeamData() {
		t.Fatal("member must not see all team data")
	}
	if err := member.RequireAdmin(); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestScopeZeroValueDenies(t *testing.T) {
	var empty Scope
	if empty.CanSeeAllTeamData() {
		t.Fatal("zero scope must deny")
	}
	if err := empty.RequireAdmin(); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
