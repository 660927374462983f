package repository

import (
	"context"
	"errors"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"
	"github.com/crewsight/crewsight/internal/observability"

	"gorm.io/gorm"
)

// CatalogRepository manages the devices and repos sessions hang off.
type CatalogRepository interface {
	// UpsertDevice finds a device by name or creates it.
	UpsertDevice(name string, isRemote bool) (*domain.Device, error)
	// UpsertRepo finds a repo by team+name or creates it.
	UpsertRepo(teamID, name, remoteURL string) (*domain.Repo, error)
	ListReposByTeam(teamID string) ([]domain.Repo, error)
	// ListReposWorkedOn returns only repos the user has at least one
	// session against — the non-admin view.
	ListReposWorkedOn(teamID, userID string) ([]domain.Repo, error)
}

type GormCatalogRepository struct{ db *gorm.DB }

func NewCatalogRepository(db *gorm.DB) CatalogRepository { return &GormCatalogRepository{db: db} }

func (r *GormCatalogRepository) UpsertDevice(name string, isRemote bool) (*domain.Device, error) {
	var d domain.Device
	err := r.db.Where("name = ?", name).First(&d).Error
	if err == nil {
		if d.IsRemote != isRemote {
			if err := r.db.Model(&d).Update("is_remote", isRemote).Error; err != nil {
				observability.RecordRepositoryOperation(context.Background(), "device", "upsert", "error")
				return nil, err
			}
			d.IsRemote = isRemote
		}
		observability.RecordRepositoryOperation(context.Background(), "device", "upsert", "success")
		return &d, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		observability.RecordRepositoryOperation(context.Background(), "device", "upsert", "error")
		return nil, err
	}
	d = domain.Device{ID: identifier.New(), Name: name, IsRemote: isRemote}
	if err := r.db.Create(&d).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "device", "upsert", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "upsert", "success")
	return &d, nil
}

func (r *GormCatalogRepository) UpsertRepo(teamID, name, remoteURL string) (*domain.Repo, error) {
	var repo domain.Repo
	err := r.db.Where("team_id = ? AND name = ?", teamID, name).First(&repo).Error
	if err == nil {
		if remoteURL != "" && repo.RemoteURL != remoteURL {
			if err := r.db.Model(&repo).Update("remote_url", remoteURL).Error; err != nil {
				observability.RecordRepositoryOperation(context.Background(), "repo", "upsert", "error")
				return nil, err
			}
			repo.RemoteURL = remoteURL
		}
		observability.RecordRepositoryOperation(context.Background(), "repo", "upsert", "success")
		return &repo, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		observability.RecordRepositoryOperation(context.Background(), "repo", "upsert", "error")
		return nil, err
	}
	repo = domain.Repo{ID: identifier.New(), TeamID: teamID, Name: name, RemoteURL: remoteURL}
	if err := r.db.Create(&repo).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "repo", "upsert", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "repo", "upsert", "success")
	return &repo, nil
}

func (r *GormCatalogRepository) ListReposByTeam(teamID string) ([]domain.Repo, error) {
	var repos []domain.Repo
	err := r.db.Where("team_id = ?", teamID).Order("name ASC").Find(&repos).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "repo", "list_by_team", "error")
		return repos, err
	}
	observability.RecordRepositoryOperation(context.Background(), "repo", "list_by_team", "success")
	return repos, nil
}

func (r *GormCatalogRepository) ListReposWorkedOn(teamID, userID string) ([]domain.Repo, error) {
	var repos []domain.Repo
	err := r.db.
		Joins("JOIN sessions s ON s.repo_id = repos.id").
		Where("repos.team_id = ? AND s.user_id = ?", teamID, userID).
		Distinct("repos.*").
		Order("repos.name ASC").
		Find(&repos).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "repo", "list_worked_on", "error")
		return repos, err
	}
	observability.RecordRepositoryOperation(context.Background(), "repo", "list_worked_on", "success")
	return repos, nil
}
