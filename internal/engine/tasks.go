package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chantierpro/internal/domain"
	"chantierpro/internal/events"
	"chantierpro/internal/policy"
	"chantierpro/internal/repo"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	Title       string
	Description string
	Priority    domain.TaskPriority
	AssignedTo  string
	DueDate     string
}

func (e Engine) CreateTask(ctx context.Context, id domain.Identity, projectID string, opts TaskCreateOptions) (domain.Task, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Task{}, err
	}
	if !policy.ManagesProject(id, p) {
		return domain.Task{}, repo.ErrNotFound
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Task{}, fmt.Errorf("title is required: %w", ErrInvalidInput)
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityNormal
	}
	if !opts.Priority.Valid() {
		return domain.Task{}, fmt.Errorf("priority %s: %w", opts.Priority, ErrInvalidInput)
	}
	if opts.AssignedTo != "" {
		if err := e.checkAssignee(ctx, opts.AssignedTo); err != nil {
			return domain.Task{}, err
		}
	}
	now := e.nowRFC3339()
	t := domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      domain.TaskTodo,
		Priority:    opts.Priority,
		AssignedTo:  optionalString(opts.AssignedTo),
		CreatedBy:   id.ID,
		DueDate:     optionalString(opts.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.recomputeProgressTx(ctx, tx, p.ID); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTaskCreated, p.ID, "task", t.ID, id.ID, events.EventPayload{"title": t.Title}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// checkAssignee validates that a task assignee references an active worker.
func (e Engine) checkAssignee(ctx context.Context, userID string) error {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		if err == repo.ErrNotFound {
			return fmt.Errorf("assignee %s not found: %w", userID, ErrInvalidInput)
		}
		return err
	}
	if u.Role != domain.RoleWorker || !u.IsActive {
		return fmt.Errorf("assignee %s is not an active worker: %w", userID, ErrInvalidInput)
	}
	return nil
}

func (e Engine) GetTask(ctx context.Context, id domain.Identity, taskID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	p, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if !policy.CanViewTask(id, p, t) {
		return domain.Task{}, repo.ErrNotFound
	}
	return t, nil
}

// TaskUpdateOptions is the field patch a managing manager may apply. Nil
// pointers leave the field unchanged; AssignedTo set to an empty string
// clears the assignment.
type TaskUpdateOptions struct {
	Title       *string
	Description *string
	Priority    *domain.TaskPriority
	AssignedTo  *string
	DueDate     *string
}

func (e Engine) UpdateTaskFields(ctx context.Context, id domain.Identity, taskID string, opts TaskUpdateOptions) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	p, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if !policy.CanMutateTask(id, p) {
		return domain.Task{}, fmt.Errorf("task %s: %w", taskID, ErrForbidden)
	}
	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return domain.Task{}, fmt.Errorf("title is required: %w", ErrInvalidInput)
		}
		t.Title = *opts.Title
	}
	if opts.Description != nil {
		t.Description = *opts.Description
	}
	if opts.Priority != nil {
		if !opts.Priority.Valid() {
			return domain.Task{}, fmt.Errorf("priority %s: %w", *opts.Priority, ErrInvalidInput)
		}
		t.Priority = *opts.Priority
	}
	if opts.AssignedTo != nil {
		if *opts.AssignedTo == "" {
			t.AssignedTo = nil
		} else {
			if err := e.checkAssignee(ctx, *opts.AssignedTo); err != nil {
				return domain.Task{}, err
			}
			t.AssignedTo = opts.AssignedTo
		}
	}
	if opts.DueDate != nil {
		t.DueDate = optionalString(*opts.DueDate)
	}
	t.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTaskUpdated, p.ID, "task", t.ID, id.ID, events.EventPayload{"title": t.Title}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// UpdateTaskStatus sets any status from any other; entering IN_PROGRESS for
// the first time stamps started_at, entering COMPLETED stamps completed_at
// and forces task progress to 100. The project progress recompute runs in
// the same transaction as the task write.
func (e Engine) UpdateTaskStatus(ctx context.Context, id domain.Identity, taskID string, status domain.TaskStatus) (domain.Task, error) {
	if !status.Valid() {
		return domain.Task{}, fmt.Errorf("status %s: %w", status, ErrInvalidInput)
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	p, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if !policy.CanSetTaskStatus(id, p, t) {
		return domain.Task{}, fmt.Errorf("task %s: %w", taskID, ErrForbidden)
	}
	now := e.nowRFC3339()
	from := t.Status
	t.Status = status
	t.UpdatedAt = now
	switch status {
	case domain.TaskInProgress:
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
		if t.ProgressPercentage < 50 {
			t.ProgressPercentage = 50
		}
	case domain.TaskCompleted:
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		t.ProgressPercentage = 100
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.recomputeProgressTx(ctx, tx, p.ID); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTaskStatus, p.ID, "task", t.ID, id.ID, events.EventPayload{"from": from, "to": status}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.Log.WithFields(logrus.Fields{"task_id": t.ID, "from": from, "to": status}).Info("task status changed")
	return t, nil
}

func (e Engine) ListProjectTasks(ctx context.Context, id domain.Identity, projectID string, f repo.TaskFilters) ([]domain.Task, error) {
	p, err := e.visibleProject(ctx, id, projectID)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !domain.TaskStatus(f.Status).Valid() {
		return nil, fmt.Errorf("status %s: %w", f.Status, ErrInvalidInput)
	}
	f.ProjectID = p.ID
	return e.Repo.ListTasks(ctx, f)
}

// ListMyTasks returns the worker's assigned tasks, due-soonest first.
func (e Engine) ListMyTasks(ctx context.Context, id domain.Identity) ([]domain.Task, error) {
	if id.Role != domain.RoleWorker || !id.Active {
		return nil, fmt.Errorf("list assigned tasks: %w", ErrForbidden)
	}
	return e.Repo.ListAssignedTasks(ctx, id.ID)
}

func (e Engine) DeleteTask(ctx context.Context, id domain.Identity, taskID string) error {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	p, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	if !policy.CanMutateTask(id, p) {
		return fmt.Errorf("task %s: %w", taskID, ErrForbidden)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteTask(ctx, tx, t.ID); err != nil {
		return err
	}
	if err := e.recomputeProgressTx(ctx, tx, p.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTaskDeleted, p.ID, "task", t.ID, id.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}
