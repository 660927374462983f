package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"
)

func TestSessionRepositoryTeamScoping(t *testing.T) {
	db := newDBForTest(t)
	repo := NewSessionRepository(db)

	teamA := seedTeam(t, db, "alpha")
	teamB := seedTeam(t, db, "beta")
	userA := seedUser(t, db, teamA.ID, "ana", domain.RoleMember)
	session := seedSession(t, db, userA.ID, time.Now(), nil)

	found, err := repo.FindByIDForTeam(session.ID, teamA.ID)
	if err != nil {
		t.Fatalf("find own team session: %v", err)
	}
	if found.User == nil || found.Device == nil || found.Repo == nil {
		t.Fatal("expected user/device/repo details to be loaded")
	}

	// the other team must see not-found, never forbidden
	if _, err := repo.FindByIDForTeam(session.ID, teamB.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-team lookup, got %v", err)
	}
}

func TestSessionRepositoryListLiveExcludesEnded(t *testing.T) {
	db := newDBForTest(t)
	repo := NewSessionRepository(db)

	team := seedTeam(t, db, "alpha")
	user := seedUser(t, db, team.ID, "ana", domain.RoleMember)

	now := time.Now()
	live := seedSession(t, db, user.ID, now, nil)
	idle := seedSession(t, db, user.ID, now.Add(-72*time.Hour), nil) // stale, still live
	endedAt := now.Add(-time.Minute)
	seedSession(t, db, user.ID, now, &endedAt)

	sessions, err := repo.ListLiveByTeam(team.ID)
	if err != nil {
		t.Fatalf("list live: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 live sessions, got %d", len(sessions))
	}
	if sessions[0].ID != live.ID || sessions[1].ID != idle.ID {
		t.Fatalf("expected newest-activity ordering, got %s then %s", sessions[0].ID, sessions[1].ID)
	}
	for _, s := range sessions {
		if s.User == nil {
			t.Fatal("expected user preloaded for staleness derivation")
		}
	}
}

func heartbeatActivity(sessionID string) *domain.Activity {
	return &domain.Activity{
		ID:        identifier.New(),
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   `{"files":[]}`,
	}
}

func TestSessionRepositoryRecordHeartbeat(t *testing.T) {
	db := newDBForTest(t)
	repo := NewSessionRepository(db)

	team := seedTeam(t, db, "alpha")
	user := seedUser(t, db, team.ID, "ana", domain.RoleMember)
	session := seedSession(t, db, user.ID, time.Now().Add(-time.Hour), nil)

	later := time.Now().UTC().Truncate(time.Second)
	if err := repo.RecordHeartbeat(session.ID, later, heartbeatActivity(session.ID)); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	got, err := repo.FindByIDForTeam(session.ID, team.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.LastActivityAt.Equal(later) {
		t.Fatalf("expected last_activity_at %s, got %s", later, got.LastActivityAt)
	}
	var activityCount int64
	if err := db.Model(&domain.Activity{}).Where("session_id = ?", session.ID).Count(&activityCount).Error; err != nil {
		t.Fatalf("count activities: %v", err)
	}
	if activityCount != 1 {
		t.Fatalf("expected 1 activity row, got %d", activityCount)
	}

	if err := repo.RecordHeartbeat("no-such-session", later, heartbeatActivity("no-such-session")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestSessionRepositoryRecordHeartbeatIsAtomic(t *testing.T) {
	db := newDBForTest(t)
	repo := NewSessionRepository(db)

	team := seedTeam(t, db, "alpha")
	user := seedUser(t, db, team.ID, "ana", domain.RoleMember)
	before := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	session := seedSession(t, db, user.ID, before, nil)

	existing := heartbeatActivity(session.ID)
	if err := db.Create(existing).Error; err != nil {
		t.Fatalf("seed activity: %v", err)
	}

	// reusing the activity id makes the insert fail; the timestamp bump
	// from the same call must roll back with it
	dup := heartbeatActivity(session.ID)
	dup.ID = existing.ID
	if err := repo.RecordHeartbeat(session.ID, time.Now().UTC(), dup); err == nil {
		t.Fatal("expected duplicate activity insert to fail")
	}

	got, err := repo.FindByIDForTeam(session.ID, team.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.LastActivityAt.Equal(before) {
		t.Fatalf("last_activity_at must be unchanged after rollback, got %s want %s", got.LastActivityAt, before)
	}
}

func TestSessionRepositoryEndIsIdempotent(t *testing.T) {
	db := newDBForTest(t)
	repo := NewSessionRepository(db)

	team := seedTeam(t, db, "alpha")
	user := seedUser(t, db, team.ID, "ana", domain.RoleMember)
	session := seedSession(t, db, user.ID, time.Now(), nil)

	first := time.Now().UTC().Truncate(time.Second)
	if err := repo.End(session.ID, first); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := repo.End(session.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("second end: %v", err)
	}

	got, err := repo.FindByIDForTeam(session.ID, team.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(first) {
		t.Fatalf("expected first ended_at to stick, got %v", got.EndedAt)
	}

	// heartbeats on an ended session must fail: activity cannot resurrect it
	if err := repo.RecordHeartbeat(session.ID, time.Now(), heartbeatActivity(session.ID)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound heartbeating ended session, got %v", err)
	}
}
