package service

import (
	"errors"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"
	"github.com/crewsight/crewsight/internal/repository"
	"github.com/crewsight/crewsight/internal/security"
)

// SetupService performs the one-time team bootstrap. A deployment holds
// exactly one team; a second attempt is a conflict, never a second row.
type SetupService struct {
	teams repository.TeamRepository
}

func NewSetupService(teams repository.TeamRepository) *SetupService {
	return &SetupService{teams: teams}
}

type SetupStatus struct {
	Initialized bool   `json:"initialized"`
	TeamName    string `json:"team_name,omitempty"`
}

func (s *SetupService) Status() (*SetupStatus, error) {
	team, err := s.teams.Get()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &SetupStatus{Initialized: false}, nil
		}
		return nil, err
	}
	return &SetupStatus{Initialized: true, TeamName: team.Name}, nil
}

type CreateTeamInput struct {
	TeamName          string `json:"team_name"`
	AdminName         string `json:"admin_name"`
	AdminEmail        string `json:"admin_email"`
	DashboardPassword string `json:"dashboard_password"`
}

// SetupResult carries the freshly minted tokens. This response is the only
// place either token is ever shown.
type SetupResult struct {
	TeamID    string `json:"team_id"`
	TeamToken string `json:"team_token"`
	AdminID   string `json:"admin_id"`
	UserToken string `json:"user_token"`
}

func (s *SetupService) CreateTeam(in CreateTeamInput) (*SetupResult, error) {
	if in.TeamName == "" {
		return nil, domain.Validationf("team_name is required")
	}
	if in.AdminName == "" {
		return nil, domain.Validationf("admin_name is required")
	}
	if len(in.DashboardPassword) < 8 {
		return nil, domain.Validationf("dashboard_password must be at least 8 characters")
	}

	if _, err := s.teams.Get(); err == nil {
		return nil, domain.ErrConflict
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := security.HashPassword(in.DashboardPassword)
	if err != nil {
		return nil, err
	}

	team := &domain.Team{
		ID:                    identifier.New(),
		Name:                  in.TeamName,
		TeamToken:             identifier.NewToken(),
		DashboardPasswordHash: hash,
	}
	admin := &domain.User{
		ID:                identifier.New(),
		TeamID:            team.ID,
		Name:              in.AdminName,
		Role:              domain.RoleAdmin,
		IsActive:          true,
		StaleTimeoutHours: domain.DefaultStaleTimeoutHours,
		UserToken:         identifier.NewToken(),
	}
	if in.AdminEmail != "" {
		admin.Email = &in.AdminEmail
	}

	if err := s.teams.CreateWithAdmin(team, admin); err != nil {
		return nil, err
	}
	return &SetupResult{
		TeamID:    team.ID,
		TeamToken: team.TeamToken,
		AdminID:   admin.ID,
		UserToken: admin.UserToken,
	}, nil
}
