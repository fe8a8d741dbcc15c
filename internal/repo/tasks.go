package repo

import (
	"context"
	"database/sql"
	"strings"

	"chantierpro/internal/domain"
)

const taskColumns = `id,project_id,title,COALESCE(description,'') AS description,status,priority,assigned_to,created_by,due_date,progress_percentage,started_at,completed_at,created_at,updated_at`

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var assignedTo, dueDate, startedAt, completedAt sql.NullString
	err := scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assignedTo, &t.CreatedBy, &dueDate, &t.ProgressPercentage, &startedAt, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id,project_id,title,description,status,priority,assigned_to,created_by,due_date,progress_percentage,started_at,completed_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableStringPtr(t.AssignedTo), t.CreatedBy, nullableStringPtr(t.DueDate), t.ProgressPercentage,
		nullableStringPtr(t.StartedAt), nullableStringPtr(t.CompletedAt), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, assigned_to=?, due_date=?, progress_percentage=?, started_at=?, completed_at=?, updated_at=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, t.Priority, nullableStringPtr(t.AssignedTo),
		nullableStringPtr(t.DueDate), t.ProgressPercentage, nullableStringPtr(t.StartedAt),
		nullableStringPtr(t.CompletedAt), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTaskRow(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTaskRow(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type TaskFilters struct {
	ProjectID  string
	Status     string
	AssignedTo string
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	return r.queryTasks(ctx, query, args...)
}

// ListAssignedTasks returns a worker's tasks ordered by due date ascending
// with null due dates last, then priority rank descending, then newest first.
func (r Repo) ListAssignedTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to=? ORDER BY
		CASE WHEN due_date IS NULL THEN 1 ELSE 0 END,
		due_date ASC,
		CASE priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'NORMAL' THEN 2 ELSE 1 END DESC,
		created_at DESC, id DESC`
	return r.queryTasks(ctx, query, userID)
}

func (r Repo) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
