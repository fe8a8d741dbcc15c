package policy_test

import (
	"testing"

	"chantierpro/internal/domain"
	"chantierpro/internal/policy"
)

func strPtr(s string) *string { return &s }

var (
	boss    = domain.Identity{ID: "boss-1", Role: domain.RoleBoss, Active: true}
	manager = domain.Identity{ID: "mgr-1", Role: domain.RoleManager, Active: true}
	worker  = domain.Identity{ID: "wrk-1", Role: domain.RoleWorker, Active: true}

	project = domain.Project{ID: "p-1", BossID: "boss-1", ManagerID: strPtr("mgr-1")}
)

func TestProjectVisibility(t *testing.T) {
	if !policy.CanViewProject(boss, project) {
		t.Fatalf("owner boss should view project")
	}
	if !policy.CanViewProject(manager, project) {
		t.Fatalf("assigned manager should view project")
	}
	if policy.CanViewProject(worker, project) {
		t.Fatalf("worker should never view projects directly")
	}
	otherBoss := domain.Identity{ID: "boss-2", Role: domain.RoleBoss, Active: true}
	if policy.CanViewProject(otherBoss, project) {
		t.Fatalf("non-owner boss should not view project")
	}
	otherManager := domain.Identity{ID: "mgr-2", Role: domain.RoleManager, Active: true}
	if policy.CanViewProject(otherManager, project) {
		t.Fatalf("unassigned manager should not view project")
	}
}

func TestInactiveIdentityDeniedEverywhere(t *testing.T) {
	inactive := domain.Identity{ID: "boss-1", Role: domain.RoleBoss, Active: false}
	task := domain.Task{ID: "t-1", ProjectID: "p-1"}
	report := domain.Report{ID: "r-1", ProjectID: "p-1", UserID: "mgr-1"}
	if policy.CanViewProject(inactive, project) ||
		policy.CanMutateProject(inactive, project) ||
		policy.CanSetProjectStatus(inactive, project) ||
		policy.CanManageTeam(inactive, project) ||
		policy.CanViewTask(inactive, project, task) ||
		policy.CanListReports(inactive, project) ||
		policy.CanReadReport(inactive, project, report) {
		t.Fatalf("inactive identity should be denied all access")
	}
}

func TestUnknownRoleDenied(t *testing.T) {
	odd := domain.Identity{ID: "x", Role: domain.Role("ADMIN"), Active: true}
	if policy.CanViewProject(odd, project) || policy.CanManageTeam(odd, project) {
		t.Fatalf("unknown role should be denied")
	}
}

func TestMutationIsBossOnly(t *testing.T) {
	if !policy.CanMutateProject(boss, project) {
		t.Fatalf("owner boss should mutate project")
	}
	if policy.CanMutateProject(manager, project) {
		t.Fatalf("manager must not mutate project fields")
	}
	if policy.CanMutateProject(worker, project) {
		t.Fatalf("worker must not mutate project fields")
	}
}

func TestStatusChangeAllowsAssignedManager(t *testing.T) {
	if !policy.CanSetProjectStatus(boss, project) || !policy.CanSetProjectStatus(manager, project) {
		t.Fatalf("boss and assigned manager should change project status")
	}
	orphan := domain.Project{ID: "p-2", BossID: "boss-1"}
	if policy.CanSetProjectStatus(manager, orphan) {
		t.Fatalf("manager without assignment should not change status")
	}
}

func TestTaskScoping(t *testing.T) {
	assigned := domain.Task{ID: "t-1", ProjectID: "p-1", AssignedTo: strPtr("wrk-1")}
	unassigned := domain.Task{ID: "t-2", ProjectID: "p-1"}

	if !policy.CanViewTask(boss, project, assigned) || !policy.CanViewTask(manager, project, assigned) {
		t.Fatalf("boss and manager should view project tasks")
	}
	if !policy.CanViewTask(worker, project, assigned) {
		t.Fatalf("assigned worker should view own task")
	}
	if policy.CanViewTask(worker, project, unassigned) {
		t.Fatalf("worker should not view unassigned task")
	}

	if policy.CanSetTaskStatus(boss, project, assigned) {
		t.Fatalf("boss does not work tasks; status changes belong to manager and assignee")
	}
	if !policy.CanSetTaskStatus(manager, project, unassigned) {
		t.Fatalf("managing manager should set task status")
	}
	if !policy.CanSetTaskStatus(worker, project, assigned) {
		t.Fatalf("assigned worker should set task status")
	}
	otherWorker := domain.Identity{ID: "wrk-2", Role: domain.RoleWorker, Active: true}
	if policy.CanSetTaskStatus(otherWorker, project, assigned) {
		t.Fatalf("worker should not touch another worker's task")
	}

	if !policy.CanMutateTask(manager, project) {
		t.Fatalf("managing manager should edit tasks")
	}
	if policy.CanMutateTask(boss, project) || policy.CanMutateTask(worker, project) {
		t.Fatalf("task edits are manager-only")
	}
}

func TestReportScoping(t *testing.T) {
	mine := domain.Report{ID: "r-1", ProjectID: "p-1", UserID: "mgr-1"}
	theirs := domain.Report{ID: "r-2", ProjectID: "p-1", UserID: "mgr-9"}

	if !policy.CanListReports(boss, project) || !policy.CanListReports(manager, project) {
		t.Fatalf("boss and managing manager should list reports")
	}
	if policy.CanListReports(worker, project) {
		t.Fatalf("workers have no report access")
	}
	if !policy.CanReadReport(boss, project, theirs) {
		t.Fatalf("owner boss should read any report on the project")
	}
	if !policy.CanReadReport(manager, project, mine) {
		t.Fatalf("manager should read own report")
	}
	if policy.CanReadReport(manager, project, theirs) {
		t.Fatalf("manager should not read another author's report")
	}
}
