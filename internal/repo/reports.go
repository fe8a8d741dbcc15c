package repo

import (
	"context"
	"database/sql"

	"chantierpro/internal/domain"
)

func scanReport(row *sql.Row) (domain.Report, error) {
	var rep domain.Report
	err := row.Scan(&rep.ID, &rep.ProjectID, &rep.UserID, &rep.Type, &rep.Title, &rep.Content, &rep.ReportDate, &rep.CreatedAt)
	if err == sql.ErrNoRows {
		return rep, ErrNotFound
	}
	return rep, err
}

func (r Repo) InsertReport(ctx context.Context, tx *sql.Tx, rep domain.Report) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO reports(id,project_id,user_id,type,title,content,report_date,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		rep.ID, rep.ProjectID, rep.UserID, rep.Type, rep.Title, rep.Content, rep.ReportDate, rep.CreatedAt)
	return err
}

func (r Repo) GetReport(ctx context.Context, id string) (domain.Report, error) {
	return scanReport(r.DB.QueryRowContext(ctx, `SELECT id,project_id,user_id,type,title,content,report_date,created_at FROM reports WHERE id=?`, id))
}

func (r Repo) ListReports(ctx context.Context, projectID string) ([]domain.Report, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,user_id,type,title,content,report_date,created_at FROM reports WHERE project_id=? ORDER BY report_date DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Report
	for rows.Next() {
		var rep domain.Report
		if err := rows.Scan(&rep.ID, &rep.ProjectID, &rep.UserID, &rep.Type, &rep.Title, &rep.Content, &rep.ReportDate, &rep.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rep)
	}
	return res, rows.Err()
}
