package repository

import (
	"context"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/observability"

	"gorm.io/gorm"
)

type ActivityRepository interface {
	Create(a *domain.Activity) error
	// ListBySession returns one reverse-chronological page plus the total
	// count regardless of the window. Ordering is on the ULID primary key:
	// immutable and monotonically increasing, so pages stay stable while
	// new activities arrive.
	ListBySession(sessionID string, w Window) ([]domain.Activity, int64, error)
}

type GormActivityRepository struct{ db *gorm.DB }

func NewActivityRepository(db *gorm.DB) ActivityRepository { return &GormActivityRepository{db: db} }

func (r *GormActivityRepository) Create(a *domain.Activity) error {
	err := r.db.Create(a).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "activity", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "activity", "create", "success")
	return nil
}

func (r *GormActivityRepository) ListBySession(sessionID string, w Window) ([]domain.Activity, int64, error) {
	var total int64
	if err := r.db.Model(&domain.Activity{}).Where("session_id = ?", sessionID).Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "activity", "list_by_session", "error")
		return nil, 0, err
	}

	var activities []domain.Activity
	err := r.db.Where("session_id = ?", sessionID).
		Order("id DESC").
		Offset(w.Offset).
		Limit(w.Limit).
		Find(&activities).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "activity", "list_by_session", "error")
		return nil, 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "activity", "list_by_session", "success")
	return activities, total, nil
}
