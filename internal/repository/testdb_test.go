package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTeam(t *testing.T, db *gorm.DB, name string) *domain.Team {
	t.Helper()
	team := &domain.Team{
		ID:                    identifier.New(),
		Name:                  name,
		TeamToken:             identifier.NewToken(),
		DashboardPasswordHash: "x",
	}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("seed team: %v", err)
	}
	return team
}

func seedUser(t *testing.T, db *gorm.DB, teamID, name, role string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:                identifier.New(),
		TeamID:            teamID,
		Name:              name,
		Role:              role,
		IsActive:          true,
		StaleTimeoutHours: 2,
		UserToken:         identifier.NewToken(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedSession(t *testing.T, db *gorm.DB, userID string, lastActivity time.Time, ended *time.Time) *domain.Session {
	t.Helper()
	device := &domain.Device{ID: identifier.New(), Name: "dev-" + identifier.New()}
	if err := db.Create(device).Error; err != nil {
		t.Fatalf("seed device: %v", err)
	}
	var user domain.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	repo := &domain.Repo{ID: identifier.New(), TeamID: user.TeamID, Name: "repo-" + identifier.New()}
	if err := db.Create(repo).Error; err != nil {
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
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return session
}
