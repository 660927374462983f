package repository

import (
	"context"
	"errors"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/observability"

	"gorm.io/gorm"
)

type TeamRepository interface {
	// Get returns the deployment's single team, or domain.ErrNotFound
	// before setup has run.
	Get() (*domain.Team, error)
	FindByToken(token string) (*domain.Team, error)
	// CreateWithAdmin inserts the team and its first admin user in one
	// transaction; either both rows land or neither does.
	CreateWithAdmin(team *domain.Team, admin *domain.User) error
}

type GormTeamRepository struct{ db *gorm.DB }

func NewTeamRepository(db *gorm.DB) TeamRepository { return &GormTeamRepository{db: db} }

func (r *GormTeamRepository) Get() (*domain.Team, error) {
	var t domain.Team
	err := r.db.Order("created_at ASC").First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "team", "get", "not_found")
			return nil, domain.ErrNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "team", "get", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "team", "get", "success")
	return &t, nil
}

func (r *GormTeamRepository) FindByToken(token string) (*domain.Team, error) {
	var t domain.Team
	err := r.db.Where("team_token = ?", token).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "team", "find_by_token", "not_found")
			return nil, domain.ErrNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "team", "find_by_token", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "team", "find_by_token", "success")
	return &t, nil
}

func (r *GormTeamRepository) CreateWithAdmin(team *domain.Team, admin *domain.User) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		return tx.Create(admin).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "team", "create_with_admin", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "team", "create_with_admin", "success")
	return nil
}
