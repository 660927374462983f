package domain

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// DefaultStaleTimeoutHours is applied to users created without an explicit
// staleness threshold.
const DefaultStaleTimeoutHours = 1

// Team is the single tenant boundary of a deployment. Setup creates exactly
// one row; every user, repo and session hangs off it.
type Team struct {
	ID                    string    `gorm:"primaryKey;size:26" json:"id"`
	Name                  string    `gorm:"size:100;not null" json:"name"`
	TeamToken             string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	DashboardPasswordHash string    `gorm:"size:128;not null" json:"-"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type User struct {
	ID                string    `gorm:"primaryKey;size:26" json:"id"`
	TeamID            string    `gorm:"size:26;index;not null" json:"team_id"`
	Name              string    `gorm:"size:100;not null" json:"name"`
	Email             *string   `gorm:"size:255" json:"email,omitempty"`
	Role              string    `gorm:"size:16;not null;default:member" json:"role"`
	IsActive          bool      `gorm:"not null;default:true" json:"is_active"`
	StaleTimeoutHours int       `gorm:"not null;default:1" json:"stale_timeout_hours"`
	UserToken         string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// StaleTimeout converts the per-user threshold into a duration, falling back
// to the default for rows that predate the column.
func (u *User) StaleTimeout() time.Duration {
	hours := u.StaleTimeoutHours
	if hours <= 0 {
		hours = DefaultStaleTimeoutHours
	}
	return time.Duration(hours) * time.Hour
}
