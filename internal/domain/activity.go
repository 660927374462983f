package domain

import "time"

// Activity is an append-only event within a session. The ULID primary key is
// time-ordered, so feeds page on it instead of the wall-clock timestamp.
type Activity struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	SessionID string    `gorm:"size:26;index;not null" json:"session_id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Payload   string    `gorm:"type:text" json:"payload"`
}

const (
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

func ValidLogLevel(level string) bool {
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// PluginLog is a log line emitted by the plugin. Data and Error hold
// opaque JSON; this subsystem never interprets their shape.
type PluginLog struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	UserID    string    `gorm:"size:26;index;not null" json:"user_id"`
	Level     string    `gorm:"size:8;index;not null" json:"level"`
	Hook      *string   `gorm:"size:64" json:"hook,omitempty"`
	SessionID *string   `gorm:"size:26;index" json:"session_id,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Data      *string   `gorm:"type:text" json:"data,omitempty"`
	Error     *string   `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
