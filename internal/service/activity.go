package service

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/repository"
)

// ActivityAggregator produces the dashboard's read shapes: the by-user
// summary of ongoing work and the paginated per-session activity feed.
type ActivityAggregator struct {
	sessions   repository.SessionRepository
	activities repository.ActivityRepository
}

func NewActivityAggregator(sessions repository.SessionRepository, activities repository.ActivityRepository) *ActivityAggregator {
	return &ActivityAggregator{sessions: sessions, activities: activities}
}

// UserSummary is one row of the by-user view. Field names follow the
// dashboard's wire contract.
type UserSummary struct {
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName"`
	SessionCount   int       `json:"sessionCount"`
	LatestActivity time.Time `json:"latestActivity"`
}

// ByUserSummary groups the team's unended sessions by user. Staleness is
// derived per session against that user's own threshold; when includeStale
// is false, stale sessions do not count and users with only stale sessions
// drop out entirely. Rows order by latest activity, newest first, with the
// user id breaking ties deterministically.
func (a *ActivityAggregator) ByUserSummary(identity Identity, includeStale bool) ([]UserSummary, error) {
	sessions, err := a.sessions.ListLiveByTeam(identity.Team.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	byUser := make(map[string]*UserSummary)
	for i := range sessions {
		s := &sessions[i]
		if s.User == nil {
			continue
		}
		status := s.StatusAt(now, s.User.StaleTimeout())
		if status == domain.SessionEnded {
			continue
		}
		if status == domain.SessionStale && !includeStale {
			continue
		}
		row, ok := byUser[s.UserID]
		if !ok {
			row = &UserSummary{UserID: s.UserID, UserName: s.User.Name}
			byUser[s.UserID] = row
		}
		row.SessionCount++
		if s.LastActivityAt.After(row.LatestActivity) {
			row.LatestActivity = s.LastActivityAt
		}
	}

	summaries := make([]UserSummary, 0, len(byUser))
	for _, row := range byUser {
		summaries = append(summaries, *row)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].LatestActivity.Equal(summaries[j].LatestActivity) {
			return summaries[i].LatestActivity.After(summaries[j].LatestActivity)
		}
		return summaries[i].UserID < summaries[j].UserID
	})
	return summaries, nil
}

// ActivityEntry is one feed item. Payload is stored as JSON text and passed
// through untouched.
type ActivityEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type SessionFeed struct {
	Session    *SessionDetail  `json:"session"`
	Activities []ActivityEntry `json:"activities"`
	Total      int64           `json:"total"`
	HasMore    bool            `json:"hasMore"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// Feed returns one page of a session's activities, newest first. The session
// lookup is team checked first so sessions outside the caller's team read as
// absent.
func (a *ActivityAggregator) Feed(identity Identity, sessionID string, w repository.Window) (*SessionFeed, error) {
	session, err := a.sessions.FindByIDForTeam(sessionID, identity.Team.ID)
	if err != nil {
		return nil, err
	}

	activities, total, err := a.activities.ListBySession(session.ID, w)
	if err != nil {
		return nil, err
	}

	entries := make([]ActivityEntry, 0, len(activities))
	for _, act := range activities {
		payload := json.RawMessage(act.Payload)
		if !json.Valid(payload) {
			payload, _ = json.Marshal(act.Payload)
		}
		entries = append(entries, ActivityEntry{ID: act.ID, Timestamp: act.Timestamp, Payload: payload})
	}

	return &SessionFeed{
		Session:    newSessionDetail(session, time.Now()),
		Activities: entries,
		Total:      total,
		HasMore:    w.HasMore(len(entries), total),
		Limit:      w.Limit,
		Offset:     w.Offset,
	}, nil
}
