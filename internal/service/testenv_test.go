package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"
	"github.com/crewsight/crewsight/internal/repository"
	"github.com/crewsight/crewsight/internal/security"
)

// testEnv bundles a fresh in-memory store with every repository the
// services consume.
type testEnv struct {
	db         *gorm.DB
	teams      repository.TeamRepository
	users      repository.UserRepository
	catalog    repository.CatalogRepository
	sessions   repository.SessionRepository
	activities repository.ActivityRepository
	logs       repository.PluginLogRepository
	tokens     *security.SessionTokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &testEnv{
		db:         db,
		teams:      repository.NewTeamRepository(db),
		users:      repository.NewUserRepository(db),
		catalog:    repository.NewCatalogRepository(db),
		sessions:   repository.NewSessionRepository(db),
		activities: repository.NewActivityRepository(db),
		logs:       repository.NewPluginLogRepository(db),
		tokens:     security.NewSessionTokenManager("crewsight", "dashboard", strings.Repeat("k", 32)),
	}
}

func (e *testEnv) seedTeam(t *testing.T, name string) *domain.Team {
	t.Helper()
	team := &domain.Team{
		ID:                    identifier.New(),
		Name:                  name,
		TeamToken:             identifier.NewToken(),
		DashboardPasswordHash: "x",
	}
	if err := e.db.Create(team).Error; err != nil {
		t.Fatalf("seed team: %v", err)
	}
	return team
}

func (e *testEnv) seedUser(t *testing.T, teamID, name, role string, staleHours int) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:                identifier.New(),
		TeamID:            teamID,
		Name:              name,
		Role:              role,
		IsActive:          true,
		StaleTimeoutHours: staleHours,
		UserToken:         identifier.NewToken(),
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) seedSession(t *testing.T, userID string, lastActivity time.Time, ended *time.Time) *domain.Session {
	t.Helper()
	device := &domain.Device{ID: identifier.New(), Name: "dev-" + identifier.New()}
	if err := e.db.Create(device).Error; err != nil {
		t.Fatalf("seed device: %v", err)
	}
	var user domain.User
	if err := e.db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	repo := &domain.Repo{ID: identifier.New(), TeamID: user.TeamID, Name: "repo-" + identifier.New()}
	if err := e.db.Create(repo).Error; err != nil {
		t.Fatalf("seed repo: %v", err)
	}
	session := &domain.Session{
		ID:             identifier.New(),
		UserID:         userID,
		DeviceID:       device.ID,
		RepoID:         repo.ID,
		Branch:         "main",
		StartedAt:      lastActivity.Add(-time.Hour),
		LastActivityAt: lastActivity,
		EndedAt:        ended,
	}
	if err := e.db.Create(session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return session
}

func identityFor(team *domain.Team, user *domain.User) Identity {
	return Identity{Team: team, User: user}
}
