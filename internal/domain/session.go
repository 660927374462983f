package domain

import "time"

// Device identifies the machine a session ran on. Devices are shared across
// users and deduplicated by name.
type Device struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	IsRemote  bool      `gorm:"not null;default:false" json:"is_remote"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	TeamID    string    `gorm:"size:26;not null;index:idx_repos_team_name,unique" json:"team_id"`
	Name      string    `gorm:"size:255;not null;index:idx_repos_team_name,unique" json:"name"`
	RemoteURL string    `gorm:"size:512" json:"remote_url"`
	IsPublic  bool      `gorm:"not null;default:false" json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionStale  SessionStatus = "stale"
	SessionEnded  SessionStatus = "ended"
)

// Session is one plugin working session on a device/repo/branch. Its status
// is derived on every read from the stored timestamps; it is never persisted,
// so it cannot diverge from the activity stream that drives it.
type Session struct {
	ID             string     `gorm:"primaryKey;size:26" json:"id"`
	UserID         string     `gorm:"size:26;index;not null" json:"user_id"`
	DeviceID       string     `gorm:"size:26;index;not null" json:"device_id"`
	RepoID         string     `gorm:"size:26;index;not null" json:"repo_id"`
	Branch         string     `gorm:"size:255" json:"branch"`
	Worktree       string     `gorm:"size:512" json:"worktree"`
	StartedAt      time.Time  `gorm:"not null" json:"started_at"`
	LastActivityAt time.Time  `gorm:"index;not null" json:"last_activity_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`

	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Device *Device `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	Repo   *Repo   `gorm:"foreignKey:RepoID" json:"repo,omitempty"`
}

// StatusAt classifies the session at the given instant. An explicit end
// always wins; otherwise the session is active while the elapsed time since
// the last activity is within the staleness threshold.
func (s *Session) StatusAt(now time.Time, staleTimeout time.Duration) SessionStatus {
	if s.EndedAt != nil {
		return SessionEnded
	}
	if now.Sub(s.LastActivityAt) <= staleTimeout {
		return SessionActive
	}
	return SessionStale
}
