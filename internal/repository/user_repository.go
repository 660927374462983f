package repository

import (
	"context"
	"errors"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/observability"

	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(id string) (*domain.User, error)
	FindByToken(token string) (*domain.User, error)
	// FirstAdminByTeam resolves the identity behind team-token and
	// dashboard-cookie credentials.
	FirstAdminByTeam(teamID string) (*domain.User, error)
	ListByTeam(teamID string) ([]domain.User, error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "not_found")
			return nil, domain.ErrNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "success")
	return &u, nil
}

func (r *GormUserRepository) FindByToken(token string) (*domain.User, error) {
	var u domain.User
	err := r.db.Where("user_token = ?", token).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "user", "find_by_token", "not_found")
			return nil, domain.ErrNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "find_by_token", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "find_by_token", "success")
	return &u, nil
}

func (r *GormUserRepository) FirstAdminByTeam(teamID string) (*domain.User, error) {
	var u domain.User
	err := r.db.Where("team_id = ? AND role = ?", teamID, domain.RoleAdmin).
		Order("created_at ASC").
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "user", "first_admin_by_team", "not_found")
			return nil, domain.ErrNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "first_admin_by_team", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "first_admin_by_team", "success")
	return &u, nil
}

func (r *GormUserRepository) ListByTeam(teamID string) ([]domain.User, error) {
	var users []domain.User
	err := r.db.Where("team_id = ?", teamID).Order("created_at ASC").Find(&users).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "list_by_team", "error")
		return users, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "list_by_team", "success")
	return users, nil
}
