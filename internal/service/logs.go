package service

import (
	"encoding/json"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"
	"github.com/crewsight/crewsight/internal/observability"
	"github.com/crewsight/crewsight/internal/repository"
)

const (
	maxLogBatchSize  = 100
	minRetentionDays = 1
	maxRetentionDays = 365
)

// LogIngestor validates and persists plugin log batches and runs the
// caller-triggered retention sweep.
type LogIngestor struct {
	logs repository.PluginLogRepository
}

func NewLogIngestor(logs repository.PluginLogRepository) *LogIngestor {
	return &LogIngestor{logs: logs}
}

// LogEntryInput is one log line as the plugin submits it. Data and Error are
// kept as raw JSON and stored without interpretation.
type LogEntryInput struct {
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Hook      *string         `json:"hook"`
	SessionID *string         `json:"session_id"`
	Data      json.RawMessage `json:"data"`
	Error     json.RawMessage `json:"error"`
}

// SubmitBatch persists all entries or none. Validation runs over the whole
// batch before the first write, so a bad entry anywhere rejects everything.
func (l *LogIngestor) SubmitBatch(identity Identity, entries []LogEntryInput) (int, error) {
	if len(entries) > maxLogBatchSize {
		return 0, domain.Validationf("batch exceeds %d entries", maxLogBatchSize)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([]domain.PluginLog, 0, len(entries))
	for i, e := range entries {
		if !domain.ValidLogLevel(e.Level) {
			return 0, domain.Validationf("entry %d: invalid level %q", i, e.Level)
		}
		if e.Message == "" {
			return 0, domain.Validationf("entry %d: message is required", i)
		}
		rows = append(rows, domain.PluginLog{
			ID:        identifier.New(),
			UserID:    identity.User.ID,
			Level:     e.Level,
			Hook:      e.Hook,
			SessionID: e.SessionID,
			Message:   e.Message,
			Data:      opaqueJSON(e.Data),
			Error:     opaqueJSON(e.Error),
			CreatedAt: now,
		})
	}

	if err := l.logs.CreateBatch(rows); err != nil {
		return 0, err
	}
	observability.RecordLogIngest(len(rows))
	return len(rows), nil
}

// Browse returns one page of the team's logs for the admin view.
func (l *LogIngestor) Browse(identity Identity, f repository.LogFilter) ([]domain.PluginLog, int64, error) {
	if f.Level != "" && !domain.ValidLogLevel(f.Level) {
		return nil, 0, domain.Validationf("invalid level %q", f.Level)
	}
	return l.logs.ListByTeam(identity.Team.ID, f)
}

// PruneOlderThan deletes log rows older than the given number of days across
// the whole store. Callers gate it behind the admin check.
func (l *LogIngestor) PruneOlderThan(days int) (int64, error) {
	if days < minRetentionDays || days > maxRetentionDays {
		return 0, domain.Validationf("days must be between %d and %d", minRetentionDays, maxRetentionDays)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := l.logs.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	observability.RecordLogPrune(deleted)
	return deleted, nil
}

// opaqueJSON normalizes an optional raw JSON field to its stored text form.
// Absent and explicit-null values both store as NULL.
func opaqueJSON(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	if s == "null" {
		return nil
	}
	return &s
}
