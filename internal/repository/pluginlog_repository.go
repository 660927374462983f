package repository

import (
	"context"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/observability"

	"gorm.io/gorm"
)

// LogFilter narrows the admin log browse query.
type LogFilter struct {
	UserID string
	Level  string
	Window Window
}

type PluginLogRepository interface {
	// CreateBatch inserts all rows in one transaction; a failure persists
	// nothing. An empty batch is a no-op.
	CreateBatch(logs []domain.PluginLog) error
	// ListByTeam returns one page of logs for the team, newest first,
	// plus the total matching count.
	ListByTeam(teamID string, f LogFilter) ([]domain.PluginLog, int64, error)
	// DeleteOlderThan removes rows created before the cutoff across the
	// whole store and reports how many went away.
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

type GormPluginLogRepository struct{ db *gorm.DB }

func NewPluginLogRepository(db *gorm.DB) PluginLogRepository {
	return &GormPluginLogRepository{db: db}
}

func (r *GormPluginLogRepository) CreateBatch(logs []domain.PluginLog) error {
	if len(logs) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&logs).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "plugin_log", "create_batch", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "plugin_log", "create_batch", "success")
	return nil
}

func (r *GormPluginLogRepository) ListByTeam(teamID string, f LogFilter) ([]domain.PluginLog, int64, error) {
	base := r.db.Model(&domain.PluginLog{}).
		Joins("JOIN users u ON u.id = plugin_logs.user_id").
		Where("u.team_id = ?", teamID)
	if f.UserID != "" {
		base = base.Where("plugin_logs.user_id = ?", f.UserID)
	}
	if f.Level != "" {
		base = base.Where("plugin_logs.level = ?", f.Level)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "plugin_log", "list_by_team", "error")
		return nil, 0, err
	}

	var logs []domain.PluginLog
	err := base.
		Order("plugin_logs.id DESC").
		Offset(f.Window.Offset).
		Limit(f.Window.Limit).
		Find(&logs).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "plugin_log", "list_by_team", "error")
		return nil, 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "plugin_log", "list_by_team", "success")
	return logs, total, nil
}

func (r *GormPluginLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&domain.PluginLog{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "plugin_log", "delete_older_than", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "plugin_log", "delete_older_than", "success")
	return res.RowsAffected, nil
}
