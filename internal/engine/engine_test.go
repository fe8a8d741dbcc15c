package engine_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"chantierpro/internal/config"
	"chantierpro/internal/db"
	"chantierpro/internal/domain"
	"chantierpro/internal/engine"
	"chantierpro/internal/migrate"
	"chantierpro/internal/repo"
)

type testEnv struct {
	Engine  engine.Engine
	Ctx     context.Context
	Boss    domain.Identity
	Manager domain.Identity
	Worker  domain.Identity
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	eng := engine.New(conn, config.Default(), log)
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	env := testEnv{Engine: eng, Ctx: ctx}
	env.Boss = seedUser(t, env, "Bruno", "Beton", domain.RoleBoss)
	env.Manager = seedUser(t, env, "Marie", "Mortier", domain.RoleManager)
	env.Worker = seedUser(t, env, "Walid", "Charpente", domain.RoleWorker)
	return env
}

func seedUser(t *testing.T, env testEnv, first, last string, role domain.Role) domain.Identity {
	t.Helper()
	u, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{
		FirstName: first,
		LastName:  last,
		Email:     first + "." + last + "@example.test",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", first, err)
	}
	return domain.Identity{ID: u.ID, Role: u.Role, Active: true}
}

func seedProject(t *testing.T, env testEnv) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, env.Boss, engine.ProjectCreateOptions{
		Name:      "Tour Horizon",
		Address:   "12 quai des Chantiers",
		StartDate: "2026-03-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	p, err = env.Engine.AssignManager(env.Ctx, env.Boss, p.ID, env.Manager.ID)
	if err != nil {
		t.Fatalf("assign manager: %v", err)
	}
	return p
}

func TestProjectProgressFollowsTasks(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)

	if p.ProgressPercentage != 0 {
		t.Fatalf("empty project should sit at 0%%, got %d", p.ProgressPercentage)
	}
	t1, err := env.Engine.CreateTask(env.Ctx, env.Manager, p.ID, engine.TaskCreateOptions{Title: "Couler les fondations"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, env.Manager, t1.ID, domain.TaskCompleted); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	p, err = env.Engine.GetProject(env.Ctx, env.Boss, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.ProgressPercentage != 100 {
		t.Fatalf("1/1 completed should be 100%%, got %d", p.ProgressPercentage)
	}

	t2, err := env.Engine.CreateTask(env.Ctx, env.Manager, p.ID, engine.TaskCreateOptions{Title: "Monter le gros oeuvre"})
	if err != nil {
		t.Fatal(err)
	}
	p, _ = env.Engine.GetProject(env.Ctx, env.Boss, p.ID)
	if p.ProgressPercentage != 50 {
		t.Fatalf("1/2 completed should be 50%%, got %d", p.ProgressPercentage)
	}

	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, env.Manager, t2.ID, domain.TaskCompleted); err != nil {
		t.Fatal(err)
	}
	p, _ = env.Engine.GetProject(env.Ctx, env.Boss, p.ID)
	if p.ProgressPercentage != 100 {
		t.Fatalf("2/2 completed should be 100%%, got %d", p.ProgressPercentage)
	}

	if err := env.Engine.DeleteTask(env.Ctx, env.Manager, t1.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	p, _ = env.Engine.GetProject(env.Ctx, env.Boss, p.ID)
	if p.ProgressPercentage != 100 {
		t.Fatalf("after deleting a completed task 1/1 remains 100%%, got %d", p.ProgressPercentage)
	}
}

func TestTaskStatusStampsTimestamps(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	task, err := env.Engine.CreateTask(env.Ctx, env.Manager, p.ID, engine.TaskCreateOptions{
		Title:      "Poser la charpente",
		AssignedTo: env.Worker.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	task, err = env.Engine.UpdateTaskStatus(env.Ctx, env.Worker, task.ID, domain.TaskInProgress)
	if err != nil {
		t.Fatalf("worker starts own task: %v", err)
	}
	if task.StartedAt == nil {
		t.Fatalf("expected started_at to be set")
	}
	if task.ProgressPercentage < 50 {
		t.Fatalf("starting a task should bump progress to at least 50, got %d", task.ProgressPercentage)
	}
	started := *task.StartedAt

	task, err = env.Engine.UpdateTaskStatus(env.Ctx, env.Worker, task.ID, domain.TaskCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if task.CompletedAt == nil || task.ProgressPercentage != 100 {
		t.Fatalf("completed task should have completed_at and 100%% progress")
	}

	// going back and forth never rewrites the first started_at
	task, _ = env.Engine.UpdateTaskStatus(env.Ctx, env.Worker, task.ID, domain.TaskInProgress)
	if task.StartedAt == nil || *task.StartedAt != started {
		t.Fatalf("started_at must keep its first value")
	}
}

func TestWorkerScopedToOwnTasks(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	other := seedUser(t, env, "Omar", "Placo", domain.RoleWorker)
	task, err := env.Engine.CreateTask(env.Ctx, env.Manager, p.ID, engine.TaskCreateOptions{
		Title:      "Tirer les gaines",
		AssignedTo: env.Worker.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, other, task.ID, domain.TaskInProgress); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("another worker should get forbidden, got %v", err)
	}
	if _, err := env.Engine.GetTask(env.Ctx, other, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("another worker should not even see the task, got %v", err)
	}
	mine, err := env.Engine.ListMyTasks(env.Ctx, env.Worker)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].ID != task.ID {
		t.Fatalf("expected exactly the assigned task, got %d", len(mine))
	}
	if _, err := env.Engine.ListMyTasks(env.Ctx, env.Manager); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("my-tasks is worker-only, got %v", err)
	}
}

func TestProjectVisibilityHidesExistence(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	stranger := seedUser(t, env, "Max", "Levier", domain.RoleManager)
	if _, err := env.Engine.GetProject(env.Ctx, stranger, p.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unassigned manager should see not-found, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, stranger, p.ID, engine.TaskCreateOptions{Title: "sneak"}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("task creation on a foreign project should see not-found, got %v", err)
	}
	items, err := env.Engine.ListProjects(env.Ctx, stranger, repo.ProjectFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("stranger should list no projects, got %d", len(items))
	}
}

func TestCreateProjectIsBossOnly(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateProject(env.Ctx, env.Manager, engine.ProjectCreateOptions{
		Name: "nope", StartDate: "2026-03-01T00:00:00Z",
	}); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("manager creating a project should be forbidden, got %v", err)
	}
	p, err := env.Engine.CreateProject(env.Ctx, env.Boss, engine.ProjectCreateOptions{
		Name: "Halle des Sports", StartDate: "2026-03-01T00:00:00Z",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ReferenceCode == "" || p.Status != domain.ProjectPlanned {
		t.Fatalf("new project should carry a reference code and PLANNED status")
	}
}

func TestAssignManagerValidatesTarget(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	if _, err := env.Engine.AssignManager(env.Ctx, env.Boss, p.ID, env.Worker.ID); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("assigning a worker as manager should be invalid, got %v", err)
	}
	if _, err := env.Engine.AssignManager(env.Ctx, env.Boss, p.ID, "no-such-user"); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("assigning an unknown user should be invalid, got %v", err)
	}
	replacement := seedUser(t, env, "Rita", "Grue", domain.RoleManager)
	p, err := env.Engine.AssignManager(env.Ctx, env.Boss, p.ID, replacement.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.ManagerID == nil || *p.ManagerID != replacement.ID {
		t.Fatalf("manager assignment should overwrite")
	}
}

func TestTeamMembershipConflicts(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	team, err := env.Engine.CreateTeam(env.Ctx, env.Manager, p.ID, "Equipe A", "")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, err := env.Engine.CreateTeam(env.Ctx, env.Manager, p.ID, "Equipe B", ""); !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("second team on a project should conflict, got %v", err)
	}
	if _, err := env.Engine.AddTeamMember(env.Ctx, env.Manager, team.ID, env.Worker.ID, domain.RoleWorker); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := env.Engine.AddTeamMember(env.Ctx, env.Manager, team.ID, env.Worker.ID, domain.RoleWorker); !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("duplicate membership should conflict, got %v", err)
	}
	if err := env.Engine.RemoveTeamMember(env.Ctx, env.Manager, team.ID, env.Worker.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if err := env.Engine.RemoveTeamMember(env.Ctx, env.Manager, team.ID, env.Worker.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("removing a missing member should be not-found, got %v", err)
	}
}

func TestReportAuthorship(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	rep, err := env.Engine.CreateReport(env.Ctx, env.Manager, p.ID, engine.ReportCreateOptions{
		Type:    domain.ReportDaily,
		Title:   "Journal du 1er mars",
		Content: "Fondations coulées, RAS.",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if rep.UserID != env.Manager.ID {
		t.Fatalf("report author should be the caller")
	}
	if _, err := env.Engine.GetReport(env.Ctx, env.Boss, rep.ID); err != nil {
		t.Fatalf("owner boss should read the report: %v", err)
	}
	otherManager := seedUser(t, env, "Eva", "Coffrage", domain.RoleManager)
	if _, err := env.Engine.GetReport(env.Ctx, otherManager, rep.ID); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("non-author manager should be forbidden, got %v", err)
	}
	if _, err := env.Engine.CreateReport(env.Ctx, otherManager, p.ID, engine.ReportCreateOptions{
		Type: domain.ReportDaily, Title: "x", Content: "y",
	}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("reporting on an unmanaged project should be not-found, got %v", err)
	}
	items, err := env.Engine.ListProjectReports(env.Ctx, env.Boss, p.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("boss should list the single report, got %d (%v)", len(items), err)
	}
}

func TestEventsAppendedOnMutations(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	task, err := env.Engine.CreateTask(env.Ctx, env.Manager, p.ID, engine.TaskCreateOptions{Title: "evented"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, env.Manager, task.ID, domain.TaskCompleted); err != nil {
		t.Fatal(err)
	}
	evts, err := env.Engine.ListProjectEvents(env.Ctx, env.Boss, p.ID, 50, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	// project.created, manager assigned, task created, task status
	if len(evts) < 4 {
		t.Fatalf("expected at least 4 events, got %d", len(evts))
	}
	for i := 1; i < len(evts); i++ {
		if evts[i-1].ID < evts[i].ID {
			t.Fatalf("events should come newest first")
		}
	}
}

func TestDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{
		FirstName: "Bruno", LastName: "Bis", Email: "Bruno.Beton@example.test", Role: domain.RoleBoss,
	}); !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("duplicate email (case-insensitive) should conflict, got %v", err)
	}
}

func TestProjectSummary(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	due := "2026-02-01T00:00:00Z"
	if _, err := env.Engine.CreateTask(env.Ctx, env.Manager, p.ID, engine.TaskCreateOptions{Title: "late", DueDate: due}); err != nil {
		t.Fatal(err)
	}
	done, err := env.Engine.CreateTask(env.Ctx, env.Manager, p.ID, engine.TaskCreateOptions{Title: "done"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, env.Manager, done.ID, domain.TaskCompleted); err != nil {
		t.Fatal(err)
	}
	s, err := env.Engine.GetProjectSummary(env.Ctx, env.Boss, p.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalTasks != 2 {
		t.Fatalf("expected 2 tasks, got %d", s.TotalTasks)
	}
	if s.TasksByStatus[string(domain.TaskCompleted)] != 1 {
		t.Fatalf("expected 1 completed task, got %v", s.TasksByStatus)
	}
	if s.OverdueTasks != 1 {
		t.Fatalf("expected 1 overdue task, got %d", s.OverdueTasks)
	}
	if s.Project.ProgressPercentage != 50 {
		t.Fatalf("expected 50%% progress, got %d", s.Project.ProgressPercentage)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env)
	task, err := env.Engine.CreateTask(env.Ctx, env.Manager, p.ID, engine.TaskCreateOptions{Title: "orphan-to-be"})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteProject(env.Ctx, env.Manager, p.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("manager deleting a project should see not-found, got %v", err)
	}
	if err := env.Engine.DeleteProject(env.Ctx, env.Boss, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("tasks should cascade with the project, got %v", err)
	}
}
