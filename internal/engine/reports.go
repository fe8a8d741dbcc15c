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

// ReportCreateOptions are parameters for filing a report. Reports are
// append-only; there is no update or delete.
type ReportCreateOptions struct {
	Type       domain.ReportType
	Title      string
	Content    string
	ReportDate string
}

func (e Engine) CreateReport(ctx context.Context, id domain.Identity, projectID string, opts ReportCreateOptions) (domain.Report, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Report{}, err
	}
	if !policy.ManagesProject(id, p) {
		return domain.Report{}, repo.ErrNotFound
	}
	if !opts.Type.Valid() {
		return domain.Report{}, fmt.Errorf("report type %s: %w", opts.Type, ErrInvalidInput)
	}
	if strings.TrimSpace(opts.Title) == "" || strings.TrimSpace(opts.Content) == "" {
		return domain.Report{}, fmt.Errorf("title and content are required: %w", ErrInvalidInput)
	}
	now := e.nowRFC3339()
	date := opts.ReportDate
	if date == "" {
		date = now
	}
	rep := domain.Report{
		ID:         uuid.NewString(),
		ProjectID:  p.ID,
		UserID:     id.ID,
		Type:       opts.Type,
		Title:      opts.Title,
		Content:    opts.Content,
		ReportDate: date,
		CreatedAt:  now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Report{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertReport(ctx, tx, rep); err != nil {
		return domain.Report{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeReportCreated, p.ID, "report", rep.ID, id.ID, events.EventPayload{"type": rep.Type, "title": rep.Title}); err != nil {
		return domain.Report{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Report{}, err
	}
	return rep, nil
}

func (e Engine) ListProjectReports(ctx context.Context, id domain.Identity, projectID string) ([]domain.Report, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !policy.CanListReports(id, p) {
		return nil, fmt.Errorf("reports for project %s: %w", projectID, ErrForbidden)
	}
	return e.Repo.ListReports(ctx, p.ID)
}

// GetReport scopes single reads by authorship for managers and by project
// ownership for bosses.
func (e Engine) GetReport(ctx context.Context, id domain.Identity, reportID string) (domain.Report, error) {
	rep, err := e.Repo.GetReport(ctx, reportID)
	if err != nil {
		return domain.Report{}, err
	}
	p, err := e.Repo.GetProject(ctx, rep.ProjectID)
	if err != nil {
		return domain.Report{}, err
	}
	if !policy.CanReadReport(id, p, rep) {
		return domain.Report{}, fmt.Errorf("report %s: %w", reportID, ErrForbidden)
	}
	return rep, nil
}
