package repo

import (
	"context"
	"database/sql"

	"chantierpro/internal/domain"
)

func scanTeam(row *sql.Row) (domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) InsertTeam(ctx context.Context, tx *sql.Tx, t domain.Team) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO teams(id,project_id,name,description,created_at) VALUES (?,?,?,?,?)`,
		t.ID, t.ProjectID, t.Name, nullable(t.Description), t.CreatedAt)
	return err
}

func (r Repo) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	return scanTeam(r.DB.QueryRowContext(ctx, `SELECT id,project_id,name,COALESCE(description,'') AS description,created_at FROM teams WHERE id=?`, id))
}

func (r Repo) GetTeamByProject(ctx context.Context, projectID string) (domain.Team, error) {
	return scanTeam(r.DB.QueryRowContext(ctx, `SELECT id,project_id,name,COALESCE(description,'') AS description,created_at FROM teams WHERE project_id=?`, projectID))
}

func (r Repo) InsertTeamMember(ctx context.Context, tx *sql.Tx, m domain.TeamMember) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO team_members(id,team_id,user_id,role_in_team,is_active,joined_at) VALUES (?,?,?,?,?,?)`,
		m.ID, m.TeamID, m.UserID, m.RoleInTeam, m.IsActive, m.JoinedAt)
	return err
}

func (r Repo) DeleteTeamMember(ctx context.Context, tx *sql.Tx, teamID, userID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id=? AND user_id=?`, teamID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TeamMemberRow is a membership joined with its user summary.
type TeamMemberRow struct {
	Member domain.TeamMember
	User   domain.UserSummary
}

func (r Repo) ListTeamMembers(ctx context.Context, teamID string) ([]TeamMemberRow, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT m.id,m.team_id,m.user_id,m.role_in_team,m.is_active,m.joined_at,u.first_name,u.last_name,u.role
FROM team_members m JOIN users u ON u.id=m.user_id WHERE m.team_id=? ORDER BY m.joined_at ASC, m.id ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []TeamMemberRow
	for rows.Next() {
		var row TeamMemberRow
		if err := rows.Scan(&row.Member.ID, &row.Member.TeamID, &row.Member.UserID, &row.Member.RoleInTeam,
			&row.Member.IsActive, &row.Member.JoinedAt, &row.User.FirstName, &row.User.LastName, &row.User.Role); err != nil {
			return nil, err
		}
		row.User.ID = row.Member.UserID
		res = append(res, row)
	}
	return res, rows.Err()
}
