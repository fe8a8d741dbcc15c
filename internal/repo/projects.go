package repo

import (
	"context"
	"database/sql"
	"strings"

	"chantierpro/internal/domain"
)

const projectColumns = `id,reference_code,name,COALESCE(description,'') AS description,COALESCE(address,'') AS address,status,priority,boss_id,manager_id,progress_percentage,start_date,end_date,budget,created_at,updated_at`

func scanProjectRow(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var managerID, endDate sql.NullString
	var budget sql.NullFloat64
	err := scan(&p.ID, &p.ReferenceCode, &p.Name, &p.Description, &p.Address, &p.Status, &p.Priority,
		&p.BossID, &managerID, &p.ProgressPercentage, &p.StartDate, &endDate, &budget, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if managerID.Valid {
		p.ManagerID = &managerID.String
	}
	if endDate.Valid {
		p.EndDate = &endDate.String
	}
	if budget.Valid {
		p.Budget = &budget.Float64
	}
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,reference_code,name,description,address,status,priority,boss_id,manager_id,progress_percentage,start_date,end_date,budget,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ReferenceCode, p.Name, nullable(p.Description), nullable(p.Address), p.Status, p.Priority,
		p.BossID, nullableStringPtr(p.ManagerID), p.ProgressPercentage, p.StartDate, nullableStringPtr(p.EndDate),
		nullableFloatPtr(p.Budget), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	p, err := scanProjectRow(row.Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	p, err := scanProjectRow(row.Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

type ProjectFilters struct {
	Status string
	Search string
}

// ListProjectsFor returns projects where the user is boss or manager,
// newest first.
func (r Repo) ListProjectsFor(ctx context.Context, userID string, f ProjectFilters) ([]domain.Project, error) {
	clauses := []string{"(boss_id=? OR manager_id=?)"}
	args := []any{userID, userID}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		clauses = append(clauses, "name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Search+"%")
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProjectRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ListProjects returns every project, newest first. Admin tooling only; the
// API always lists through ListProjectsFor.
func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProjectRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET name=?, description=?, address=?, priority=?, start_date=?, end_date=?, budget=?, updated_at=? WHERE id=?`,
		p.Name, nullable(p.Description), nullable(p.Address), p.Priority, p.StartDate,
		nullableStringPtr(p.EndDate), nullableFloatPtr(p.Budget), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateProjectStatus(ctx context.Context, tx *sql.Tx, id string, status domain.ProjectStatus, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetProjectManager(ctx context.Context, tx *sql.Tx, id string, managerID *string, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET manager_id=?, updated_at=? WHERE id=?`, nullableStringPtr(managerID), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetProjectProgressTx(ctx context.Context, tx *sql.Tx, id string, progress int, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE projects SET progress_percentage=?, updated_at=? WHERE id=?`, progress, updatedAt, id)
	return err
}

func (r Repo) DeleteProject(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTasksTx returns total and completed task counts for a project, read
// inside the mutating transaction so the progress recompute cannot race a
// concurrent task change.
func (r Repo) CountTasksTx(ctx context.Context, tx *sql.Tx, projectID string) (total, completed int, err error) {
	err = tx.QueryRowContext(ctx, `SELECT count(*), count(CASE WHEN status='COMPLETED' THEN 1 END) FROM tasks WHERE project_id=?`, projectID).
		Scan(&total, &completed)
	return total, completed, err
}

func (r Repo) CountTasksByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM tasks WHERE project_id=? GROUP BY status`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

// CountOverdueTasks counts tasks past their due date and not completed.
func (r Repo) CountOverdueTasks(ctx context.Context, projectID, now string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM tasks WHERE project_id=? AND due_date IS NOT NULL AND due_date < ? AND status != 'COMPLETED'`, projectID, now).Scan(&n)
	return n, err
}
