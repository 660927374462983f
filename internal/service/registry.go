package service

import (
	"encoding/json"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"
	"github.com/crewsight/crewsight/internal/observability"
	"github.com/crewsight/crewsight/internal/repository"
)

// SessionRegistry owns plugin session lifecycle: start, heartbeat, end, and
// the team-checked detail read. Status is always derived at read time.
type SessionRegistry struct {
	sessions repository.SessionRepository
	catalog  repository.CatalogRepository
}

func NewSessionRegistry(sessions repository.SessionRepository, catalog repository.CatalogRepository) *SessionRegistry {
	return &SessionRegistry{sessions: sessions, catalog: catalog}
}

type StartSessionInput struct {
	DeviceName string `json:"device_name"`
	IsRemote   bool   `json:"is_remote"`
	RepoName   string `json:"repo_name"`
	RemoteURL  string `json:"remote_url"`
	Branch     string `json:"branch"`
	Worktree   string `json:"worktree"`
}

func (s *SessionRegistry) Start(identity Identity, in StartSessionInput) (*domain.Session, error) {
	if in.DeviceName == "" {
		return nil, domain.Validationf("device_name is required")
	}
	if in.RepoName == "" {
		return nil, domain.Validationf("repo_name is required")
	}

	device, err := s.catalog.UpsertDevice(in.DeviceName, in.IsRemote)
	if err != nil {
		return nil, err
	}
	repo, err := s.catalog.UpsertRepo(identity.Team.ID, in.RepoName, in.RemoteURL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:             identifier.New(),
		UserID:         identity.User.ID,
		DeviceID:       device.ID,
		RepoID:         repo.ID,
		Branch:         in.Branch,
		Worktree:       in.Worktree,
		StartedAt:      now,
		LastActivityAt: now,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	observability.RecordSessionEvent("started")
	return session, nil
}

// Heartbeat bumps the session's last activity and appends one activity row
// recording the touched files. Ended sessions reject heartbeats; activity
// cannot resurrect them.
func (s *SessionRegistry) Heartbeat(identity Identity, sessionID string, files []string) (*domain.Session, error) {
	session, err := s.sessions.FindByIDForTeam(sessionID, identity.Team.ID)
	if err != nil {
		return nil, err
	}
	if session.EndedAt != nil {
		return nil, domain.Validationf("session has ended")
	}

	now := time.Now().UTC()
	payload, err := json.Marshal(map[string]any{"files": files})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RecordHeartbeat(session.ID, now, &domain.Activity{
		ID:        identifier.New(),
		SessionID: session.ID,
		Timestamp: now,
		Payload:   string(payload),
	}); err != nil {
		return nil, err
	}
	session.LastActivityAt = now
	observability.RecordSessionEvent("heartbeat")
	return session, nil
}

func (s *SessionRegistry) End(identity Identity, sessionID string) error {
	session, err := s.sessions.FindByIDForTeam(sessionID, identity.Team.ID)
	if err != nil {
		return err
	}
	if session.EndedAt != nil {
		return nil
	}
	if err := s.sessions.End(session.ID, time.Now().UTC()); err != nil {
		return err
	}
	observability.RecordSessionEvent("ended")
	return nil
}

// SessionDetail is the serialized session header for the activity feed.
type SessionDetail struct {
	ID             string               `json:"id"`
	User           *UserRef             `json:"user"`
	Device         *DeviceRef           `json:"device"`
	Repo           *RepoRef             `json:"repo"`
	Branch         string               `json:"branch"`
	Worktree       string               `json:"worktree"`
	Status         domain.SessionStatus `json:"status"`
	StartedAt      time.Time            `json:"started_at"`
	LastActivityAt time.Time            `json:"last_activity_at"`
	EndedAt        *time.Time           `json:"ended_at"`
}

type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DeviceRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsRemote bool   `json:"is_remote"`
}

type RepoRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GetSessionWithDetails loads one session for the caller's team. Sessions
// outside the team surface as domain.ErrNotFound.
func (s *SessionRegistry) GetSessionWithDetails(identity Identity, sessionID string) (*SessionDetail, error) {
	session, err := s.sessions.FindByIDForTeam(sessionID, identity.Team.ID)
	if err != nil {
		return nil, err
	}
	return newSessionDetail(session, time.Now()), nil
}

func newSessionDetail(session *domain.Session, now time.Time) *SessionDetail {
	detail := &SessionDetail{
		ID:             session.ID,
		Branch:         session.Branch,
		Worktree:       session.Worktree,
		StartedAt:      session.StartedAt,
		LastActivityAt: session.LastActivityAt,
		EndedAt:        session.EndedAt,
	}
	staleTimeout := domain.DefaultStaleTimeoutHours * time.Hour
	if session.User != nil {
		staleTimeout = session.User.StaleTimeout()
		detail.User = &UserRef{ID: session.User.ID, Name: session.User.Name}
	}
	if session.Device != nil {
		detail.Device = &DeviceRef{ID: session.Device.ID, Name: session.Device.Name, IsRemote: session.Device.IsRemote}
	}
	if session.Repo != nil {
		detail.Repo = &RepoRef{ID: session.Repo.ID, Name: session.Repo.Name}
	}
	detail.Status = session.StatusAt(now, staleTimeout)
	return detail
}
