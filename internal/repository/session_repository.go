package repository

import (
	"context"
	"errors"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/observability"

	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(s *domain.Session) error
	// FindByIDForTeam loads a session with user/device/repo details only
	// when its owner belongs to the given team; cross-team ids surface as
	// domain.ErrNotFound so existence is never confirmed.
	FindByIDForTeam(sessionID, teamID string) (*domain.Session, error)
	// ListLiveByTeam returns all non-ended sessions for the team with
	// users preloaded. Staleness is derived by the caller, not the query:
	// the threshold is per-user and status must never be stored.
	ListLiveByTeam(teamID string) ([]domain.Session, error)
	// RecordHeartbeat bumps last_activity_at and appends the activity row in
	// one transaction, so the session timestamp never advances without a
	// matching activity. Ended and unknown sessions surface ErrNotFound.
	RecordHeartbeat(sessionID string, at time.Time, activity *domain.Activity) error
	End(sessionID string, at time.Time) error
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(s *domain.Session) error {
	err := r.db.Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "create", "success")
	return nil
}

func (r *GormSessionRepository) FindByIDForTeam(sessionID, teamID string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.
		Joins("JOIN users u ON u.id = sessions.user_id").
		Where("sessions.id = ? AND u.team_id = ?", sessionID, teamID).
		Preload("User").
		Preload("Device").
		Preload("Repo").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "find_by_id_for_team", "not_found")
			return nil, domain.ErrNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "find_by_id_for_team", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "find_by_id_for_team", "success")
	return &s, nil
}

func (r *GormSessionRepository) ListLiveByTeam(teamID string) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.
		Joins("JOIN users u ON u.id = sessions.user_id").
		Where("u.team_id = ? AND sessions.ended_at IS NULL", teamID).
		Preload("User").
		Preload("Device").
		Preload("Repo").
		Order("sessions.last_activity_at DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "list_live_by_team", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "list_live_by_team", "success")
	return sessions, nil
}

func (r *GormSessionRepository) RecordHeartbeat(sessionID string, at time.Time, activity *domain.Activity) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Session{}).
			Where("id = ? AND ended_at IS NULL", sessionID).
			Update("last_activity_at", at)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Create(activity).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "record_heartbeat", "not_found")
			return domain.ErrNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "record_heartbeat", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "record_heartbeat", "success")
	return nil
}

func (r *GormSessionRepository) End(sessionID string, at time.Time) error {
	// idempotent: ending an already-ended session keeps the first ended_at
	res := r.db.Model(&domain.Session{}).
		Where("id = ? AND ended_at IS NULL", sessionID).
		Update("ended_at", at)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "end", "error")
		return res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "end", "success")
	return nil
}
