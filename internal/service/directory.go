package service

import (
	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/repository"
)

// DirectoryService serves the dashboard's dropdown data: team repos and
// team users.
type DirectoryService struct {
	catalog repository.CatalogRepository
	users   repository.UserRepository
}

func NewDirectoryService(catalog repository.CatalogRepository, users repository.UserRepository) *DirectoryService {
	return &DirectoryService{catalog: catalog, users: users}
}

// VisibleRepos narrows by capability instead of rejecting: admins see every
// team repo, everyone else only the repos they have sessions against.
func (d *DirectoryService) VisibleRepos(identity Identity) ([]domain.Repo, error) {
	if NewScope(identity).CanSeeAllTeamData() {
		return d.catalog.ListReposByTeam(identity.Team.ID)
	}
	return d.catalog.ListReposWorkedOn(identity.Team.ID, identity.User.ID)
}

// TeamUsers lists every user on the caller's team. Visible to any
// authenticated caller; the dashboard needs it for its filter dropdown.
func (d *DirectoryService) TeamUsers(identity Identity) ([]domain.User, error) {
	return d.users.ListByTeam(identity.Team.ID)
}
