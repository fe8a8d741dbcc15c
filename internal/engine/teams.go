package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chantierpro/internal/domain"
	"chantierpro/internal/events"
	"chantierpro/internal/policy"
	"chantierpro/internal/repo"
)

func (e Engine) CreateTeam(ctx context.Context, id domain.Identity, projectID, name, description string) (domain.Team, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Team{}, err
	}
	if !policy.CanManageTeam(id, p) {
		return domain.Team{}, repo.ErrNotFound
	}
	if strings.TrimSpace(name) == "" {
		return domain.Team{}, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if _, err := e.Repo.GetTeamByProject(ctx, p.ID); err == nil {
		return domain.Team{}, fmt.Errorf("project %s already has a team: %w", p.ID, ErrConflict)
	} else if err != repo.ErrNotFound {
		return domain.Team{}, err
	}
	t := domain.Team{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		Name:        name,
		Description: description,
		CreatedAt:   e.nowRFC3339(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Team{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTeam(ctx, tx, t); err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.Team{}, fmt.Errorf("project %s already has a team: %w", p.ID, ErrConflict)
		}
		return domain.Team{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTeamCreated, p.ID, "team", t.ID, id.ID, events.EventPayload{"name": t.Name}); err != nil {
		return domain.Team{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Team{}, err
	}
	return t, nil
}

func (e Engine) AddTeamMember(ctx context.Context, id domain.Identity, teamID, userID string, roleInTeam domain.Role) (domain.TeamMember, error) {
	t, err := e.Repo.GetTeam(ctx, teamID)
	if err != nil {
		return domain.TeamMember{}, err
	}
	p, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		return domain.TeamMember{}, err
	}
	if !policy.CanManageTeam(id, p) {
		return domain.TeamMember{}, repo.ErrNotFound
	}
	switch roleInTeam {
	case domain.RoleManager, domain.RoleWorker:
	default:
		return domain.TeamMember{}, fmt.Errorf("role_in_team %s: %w", roleInTeam, ErrInvalidInput)
	}
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		if err == repo.ErrNotFound {
			return domain.TeamMember{}, fmt.Errorf("user %s not found: %w", userID, ErrInvalidInput)
		}
		return domain.TeamMember{}, err
	}
	if !u.IsActive {
		return domain.TeamMember{}, fmt.Errorf("user %s is inactive: %w", userID, ErrInvalidInput)
	}
	m := domain.TeamMember{
		ID:         uuid.NewString(),
		TeamID:     t.ID,
		UserID:     u.ID,
		RoleInTeam: roleInTeam,
		IsActive:   true,
		JoinedAt:   e.nowRFC3339(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TeamMember{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTeamMember(ctx, tx, m); err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.TeamMember{}, fmt.Errorf("user %s already in team: %w", userID, ErrConflict)
		}
		return domain.TeamMember{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeMemberAdded, p.ID, "team_member", m.ID, id.ID, events.EventPayload{"user_id": u.ID, "role_in_team": roleInTeam}); err != nil {
		return domain.TeamMember{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TeamMember{}, err
	}
	return m, nil
}

// RemoveTeamMember hard-deletes the membership row.
func (e Engine) RemoveTeamMember(ctx context.Context, id domain.Identity, teamID, userID string) error {
	t, err := e.Repo.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	p, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	if !policy.CanManageTeam(id, p) {
		return repo.ErrNotFound
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteTeamMember(ctx, tx, t.ID, userID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeMemberRemoved, p.ID, "team_member", "", id.ID, events.EventPayload{"user_id": userID}); err != nil {
		return err
	}
	return tx.Commit()
}

// ProjectTeam is the team with its members' user summaries, used by task
// assignment UIs to enumerate eligible workers.
type ProjectTeam struct {
	Team    domain.Team         `json:"team"`
	Members []ProjectTeamMember `json:"members"`
}

type ProjectTeamMember struct {
	Member domain.TeamMember  `json:"member"`
	User   domain.UserSummary `json:"user"`
}

func (e Engine) GetProjectTeam(ctx context.Context, id domain.Identity, projectID string) (ProjectTeam, error) {
	p, err := e.visibleProject(ctx, id, projectID)
	if err != nil {
		return ProjectTeam{}, err
	}
	t, err := e.Repo.GetTeamByProject(ctx, p.ID)
	if err != nil {
		return ProjectTeam{}, err
	}
	rows, err := e.Repo.ListTeamMembers(ctx, t.ID)
	if err != nil {
		return ProjectTeam{}, err
	}
	res := ProjectTeam{Team: t, Members: []ProjectTeamMember{}}
	for _, row := range rows {
		res.Members = append(res.Members, ProjectTeamMember{Member: row.Member, User: row.User})
	}
	return res, nil
}
