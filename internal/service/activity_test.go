package service

import (
	"errors"
	"testing"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/repository"
)

func newAggregator(e *testEnv) *ActivityAggregator {
	return NewActivityAggregator(e.sessions, e.activities)
}

func TestByUserSummaryGroupsAndOrders(t *testing.T) {
	e := newTestEnv(t)
	team := e.seedTeam(t, "alpha")
	ana := e.seedUser(t, team.ID, "ana", domain.RoleMember, 1)
	bob := e.seedUser(t, team.ID, "bob", domain.RoleMember, 1)

	now := time.Now()
	e.seedSession(t, ana.ID, now.Add(-10*time.Minute), nil)
	e.seedSession(t, ana.ID, now.Add(-5*time.Minute), nil)
	e.seedSession(t, bob.ID, now.Add(-2*time.Minute), nil)

	summaries, err := newAggregator(e).ByUserSummary(identityFor(team, ana), false)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(summaries))
	}
	if summaries[0].UserID != bob.ID {
		t.Fatalf("freshest user must come first, got %s", summaries[0].UserName)
	}
	if summaries[1].UserID != ana.ID || summaries[1].SessionCount != 2 {
		t.Fatalf("unexpected second row %+v", summaries[1])
	}
}

func TestByUserSummaryStaleFilterUsesPerUserThreshold(t *testing.T) {
	e := newTestEnv(t)
	team := e.seedTeam(t, "alpha")
	// same idle time, different thresholds: ana is stale, bob still active
	ana := e.seedUser(t, team.ID, "ana", domain.RoleMember, 1)
	bob := e.seedUser(t, team.ID, "bob", domain.RoleMember, 4)

	idle := time.Now().Add(-2 * time.Hour)
	e.seedSession(t, ana.ID, idle, nil)
	e.seedSession(t, bob.ID, idle, nil)

	agg := newAggregator(e)

	active, err := agg.ByUserSummary(identityFor(team, ana), false)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(active) != 1 || active[0].UserID != bob.ID {
		t.Fatalf("expected only bob without stale, got %+v", active)
	}

	all, err := agg.ByUserSummary(identityFor(team, ana), true)
	if err != nil {
		t.Fatalf("summary with stale: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both users with includeStale, got %+v", all)
	}
}

func TestByUserSummaryExcludesEndedSessions(t *testing.T) {
	e := newTestEnv(t)
	team := e.seedTeam(t, "alpha")
	ana := e.seedUser(t, team.ID, "ana", domain.RoleMember, 1)

	ended := time.Now().Add(-5 * time.Minute)
	e.seedSession(t, ana.ID, ended, &ended)

	summaries, err := newAggregator(e).ByUserSummary(identityFor(team, ana), true)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("ended sessions must never appear, got %+v", summaries)
	}
}

func TestByUserSummaryTieBreaksOnUserID(t *testing.T) {
	e := newTestEnv(t)
	team := e.seedTeam(t, "alpha")
	ana := e.seedUser(t, team.ID, "ana", domain.RoleMember, 1)
	bob := e.seedUser(t, team.ID, "bob", domain.RoleMember, 1)

	shared := time.Now().Add(-time.Minute).Truncate(time.Second)
	e.seedSession(t, ana.ID, shared, nil)
	e.seedSession(t, bob.ID, shared, nil)

	summaries, err := newAggregator(e).ByUserSummary(identityFor(team, ana), false)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(summaries))
	}
	// ULIDs are time ordered, so ana's id sorts before bob's
	if summaries[0].UserID != ana.ID {
		t.Fatalf("tie must break on user id ascending, got %s first", summaries[0].UserName)
	}
}

func TestFeedPaginatesWithoutGapsOrDuplicates(t *testing.T) {
	e := newTestEnv(t)
	team := e.seedTeam(t, "alpha")
	ana := e.seedUser(t, team.ID, "ana", domain.RoleMember, 1)
	session := e.seedSession(t, ana.ID, time.Now(), nil)
	registry := newRegistry(e)

	for i := 0; i < 7; i++ {
		if _, err := registry.Heartbeat(identityFor(team, ana), session.ID, []string{"a.go"}); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	agg := newAggregator(e)
	seen := make(map[string]bool)
	offset := 0
	for {
		feed, err := agg.Feed(identityFor(team, ana), session.ID, repository.Window{Limit: 3, Offset: offset})
		if err != nil {
			t.Fatalf("feed at offset %d: %v", offset, err)
		}
		if feed.Total != 7 {
			t.Fatalf("total=%d want 7", feed.Total)
		}
		for _, entry := range feed.Activities {
			if seen[entry.ID] {
				t.Fatalf("duplicate entry %s", entry.ID)
			}
			seen[entry.ID] = true
		}
		if !feed.HasMore {
			break
		}
		offset += 3
	}
	if len(seen) != 7 {
		t.Fatalf("concatenated pages yielded %d items, want 7", len(seen))
	}
}

func TestFeedNewestFirst(t *testing.T) {
	e := newTestEnv(t)
	team := e.seedTeam(t, "alpha")
	ana := e.seedUser(t, team.ID, "ana", domain.RoleMember, 1)
	session := e.seedSession(t, ana.ID, time.Now(), nil)
	registry := newRegistry(e)

	for i := 0; i < 3; i++ {
		if _, err := registry.Heartbeat(identityFor(team, ana), session.ID, nil); err != nil {
			t.Fatalf("heartbeat: %v", err)
		}
	}

	feed, err := newAggregator(e).Feed(identityFor(team, ana), session.ID, repository.Window{Limit: 10})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	for i := 1; i < len(feed.Activities); i++ {
		if feed.Activities[i-1].ID < feed.Activities[i].ID {
			t.Fatal("feed must be newest first")
		}
	}
	if feed.Session == nil || feed.Session.ID != session.ID {
		t.Fatalf("feed must carry the session header, got %+v", feed.Session)
	}
}

func TestFeedCrossTeamIsNotFound(t *testing.T) {
	e := newTestEnv(t)
	teamA := e.seedTeam(t, "alpha")
	teamB := e.seedTeam(t, "beta")
	ana := e.seedUser(t, teamA.ID, "ana", domain.RoleMember, 1)
	bea := e.seedUser(t, teamB.ID, "bea", domain.RoleAdmin, 1)
	session := e.seedSession(t, ana.ID, time.Now(), nil)

	_, err := newAggregator(e).Feed(identityFor(teamB, bea), session.ID, repository.Window{Limit: 10})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
