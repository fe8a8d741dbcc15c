package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chantierpro/internal/domain"
	"chantierpro/internal/events"
	"chantierpro/internal/policy"
	"chantierpro/internal/repo"
)

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	Name        string
	Description string
	Address     string
	Priority    domain.TaskPriority
	StartDate   string
	EndDate     string
	Budget      *float64
}

func (e Engine) CreateProject(ctx context.Context, id domain.Identity, opts ProjectCreateOptions) (domain.Project, error) {
	if id.Role != domain.RoleBoss || !id.Active {
		return domain.Project{}, fmt.Errorf("create project: %w", ErrForbidden)
	}
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Project{}, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityNormal
	}
	if !opts.Priority.Valid() {
		return domain.Project{}, fmt.Errorf("priority %s: %w", opts.Priority, ErrInvalidInput)
	}
	now := e.nowRFC3339()
	start := opts.StartDate
	if start == "" {
		start = now
	}
	p := domain.Project{
		ID:            uuid.NewString(),
		ReferenceCode: e.newReferenceCode(),
		Name:          opts.Name,
		Description:   opts.Description,
		Address:       opts.Address,
		Status:        domain.ProjectPlanned,
		Priority:      opts.Priority,
		BossID:        id.ID,
		StartDate:     start,
		EndDate:       optionalString(opts.EndDate),
		Budget:        opts.Budget,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		if repo.IsUniqueViolation(err) {
			// Reference code collision; the caller can simply retry.
			return domain.Project{}, fmt.Errorf("reference code taken: %w", ErrConflict)
		}
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeProjectCreated, p.ID, "project", p.ID, id.ID, events.EventPayload{"name": p.Name, "reference_code": p.ReferenceCode}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	e.Log.WithFields(logrus.Fields{"project_id": p.ID, "boss_id": id.ID}).Info("project created")
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, id domain.Identity, projectID string) (domain.Project, error) {
	return e.visibleProject(ctx, id, projectID)
}

func (e Engine) ListProjects(ctx context.Context, id domain.Identity, f repo.ProjectFilters) ([]domain.Project, error) {
	switch id.Role {
	case domain.RoleBoss, domain.RoleManager:
	default:
		return nil, fmt.Errorf("list projects: %w", ErrForbidden)
	}
	if !id.Active {
		return nil, fmt.Errorf("list projects: %w", ErrForbidden)
	}
	if f.Status != "" && !domain.ProjectStatus(f.Status).Valid() {
		return nil, fmt.Errorf("status %s: %w", f.Status, ErrInvalidInput)
	}
	return e.Repo.ListProjectsFor(ctx, id.ID, f)
}

// ProjectUpdateOptions is the full-field patch applied by the owner boss.
type ProjectUpdateOptions struct {
	Name        string
	Description string
	Address     string
	Priority    domain.TaskPriority
	StartDate   string
	EndDate     *string
	Budget      *float64
}

func (e Engine) UpdateProject(ctx context.Context, id domain.Identity, projectID string, opts ProjectUpdateOptions) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !policy.CanMutateProject(id, p) {
		return domain.Project{}, repo.ErrNotFound
	}
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Project{}, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if opts.Priority != "" && !opts.Priority.Valid() {
		return domain.Project{}, fmt.Errorf("priority %s: %w", opts.Priority, ErrInvalidInput)
	}
	p.Name = opts.Name
	p.Description = opts.Description
	p.Address = opts.Address
	if opts.Priority != "" {
		p.Priority = opts.Priority
	}
	if opts.StartDate != "" {
		p.StartDate = opts.StartDate
	}
	p.EndDate = opts.EndDate
	p.Budget = opts.Budget
	p.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeProjectUpdated, p.ID, "project", p.ID, id.ID, events.EventPayload{"name": p.Name}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// UpdateProjectStatus sets any of the six statuses from any other. No
// transition graph is enforced, on purpose.
func (e Engine) UpdateProjectStatus(ctx context.Context, id domain.Identity, projectID string, status domain.ProjectStatus) (domain.Project, error) {
	if !status.Valid() {
		return domain.Project{}, fmt.Errorf("status %s: %w", status, ErrInvalidInput)
	}
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !policy.CanSetProjectStatus(id, p) {
		return domain.Project{}, repo.ErrNotFound
	}
	from := p.Status
	p.Status = status
	p.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateProjectStatus(ctx, tx, p.ID, status, p.UpdatedAt); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeProjectStatus, p.ID, "project", p.ID, id.ID, events.EventPayload{"from": from, "to": status}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// DeleteProject hard-deletes the project; teams, tasks and reports go with
// it through the schema cascades.
func (e Engine) DeleteProject(ctx context.Context, id domain.Identity, projectID string) error {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !policy.CanMutateProject(id, p) {
		return repo.ErrNotFound
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteProject(ctx, tx, p.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeProjectDeleted, p.ID, "project", p.ID, id.ID, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.Log.WithField("project_id", p.ID).Info("project deleted")
	return nil
}

// AssignManager points the project at a new manager; the previous
// assignment is overwritten, no history is kept.
func (e Engine) AssignManager(ctx context.Context, id domain.Identity, projectID, managerID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !policy.CanMutateProject(id, p) {
		return domain.Project{}, repo.ErrNotFound
	}
	mgr, err := e.Repo.GetUser(ctx, managerID)
	if err != nil {
		if err == repo.ErrNotFound {
			return domain.Project{}, fmt.Errorf("manager %s not found: %w", managerID, ErrInvalidInput)
		}
		return domain.Project{}, err
	}
	if mgr.Role != domain.RoleManager || !mgr.IsActive {
		return domain.Project{}, fmt.Errorf("user %s is not an active manager: %w", managerID, ErrInvalidInput)
	}
	p.ManagerID = &mgr.ID
	p.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.SetProjectManager(ctx, tx, p.ID, p.ManagerID, p.UpdatedAt); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeManagerAssigned, p.ID, "project", p.ID, id.ID, events.EventPayload{"manager_id": mgr.ID}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	e.Log.WithFields(logrus.Fields{"project_id": p.ID, "manager_id": mgr.ID}).Info("manager assigned")
	return p, nil
}

// ProjectSummary aggregates task counts for a project dashboard.
type ProjectSummary struct {
	Project       domain.Project `json:"project"`
	TasksByStatus map[string]int `json:"tasks_by_status"`
	TotalTasks    int            `json:"total_tasks"`
	OverdueTasks  int            `json:"overdue_tasks"`
	DaysRemaining *int           `json:"days_remaining,omitempty"`
}

func (e Engine) GetProjectSummary(ctx context.Context, id domain.Identity, projectID string) (ProjectSummary, error) {
	p, err := e.visibleProject(ctx, id, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}
	counts, err := e.Repo.CountTasksByStatus(ctx, p.ID)
	if err != nil {
		return ProjectSummary{}, err
	}
	now := e.now().UTC()
	overdue, err := e.Repo.CountOverdueTasks(ctx, p.ID, now.Format(time.RFC3339))
	if err != nil {
		return ProjectSummary{}, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return ProjectSummary{
		Project:       p,
		TasksByStatus: counts,
		TotalTasks:    total,
		OverdueTasks:  overdue,
		DaysRemaining: p.DaysRemaining(now),
	}, nil
}

// ListProjectEvents pages the project audit feed, newest first.
func (e Engine) ListProjectEvents(ctx context.Context, id domain.Identity, projectID string, limit int, cursor int64) ([]domain.Event, error) {
	if _, err := e.visibleProject(ctx, id, projectID); err != nil {
		return nil, err
	}
	return e.Repo.LatestEventsFrom(ctx, limit, cursor, projectID, "")
}
