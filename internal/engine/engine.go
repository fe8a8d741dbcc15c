package engine

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"chantierpro/internal/config"
	"chantierpro/internal/domain"
	"chantierpro/internal/events"
	"chantierpro/internal/policy"
	"chantierpro/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Log    *logrus.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, log *logrus.Logger) Engine {
	if log == nil {
		log = logrus.New()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Log:    log,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// newReferenceCode builds a human-readable project code, e.g. PRJ-2026-4821.
func (e Engine) newReferenceCode() string {
	return fmt.Sprintf("PRJ-%d-%04d", e.now().UTC().Year(), rand.Intn(10000))
}

// recomputeProgressTx recalculates a project's progress from its task set
// inside the mutating transaction. Zero when the project has no tasks. Any
// failure here fails the triggering mutation.
func (e Engine) recomputeProgressTx(ctx context.Context, tx *sql.Tx, projectID string) error {
	total, completed, err := e.Repo.CountTasksTx(ctx, tx, projectID)
	if err != nil {
		return fmt.Errorf("count tasks: %w", err)
	}
	progress := 0
	if total > 0 {
		progress = int(math.Round(100 * float64(completed) / float64(total)))
	}
	return e.Repo.SetProjectProgressTx(ctx, tx, projectID, progress, e.nowRFC3339())
}

// visibleProject loads a project the identity may read, reporting NotFound
// rather than Forbidden so the lookup does not reveal existence.
func (e Engine) visibleProject(ctx context.Context, id domain.Identity, projectID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !policy.CanViewProject(id, p) {
		return domain.Project{}, repo.ErrNotFound
	}
	return p, nil
}
