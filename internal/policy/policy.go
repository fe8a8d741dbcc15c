// Package policy holds the access rules as pure functions over the closed
// Role enum. Every rule switches exhaustively; unknown roles and inactive
// identities deny. Callers pass already-loaded records, so no rule touches
// storage.
package policy

import "chantierpro/internal/domain"

// CanViewProject reports whether the identity may read the project at all.
// Workers never see projects directly; their access goes through tasks.
func CanViewProject(id domain.Identity, p domain.Project) bool {
	if !id.Active {
		return false
	}
	switch id.Role {
	case domain.RoleBoss:
		return p.BossID == id.ID
	case domain.RoleManager:
		return p.ManagerID != nil && *p.ManagerID == id.ID
	case domain.RoleWorker:
		return false
	}
	return false
}

// CanMutateProject gates full-field updates and deletion: owner boss only.
func CanMutateProject(id domain.Identity, p domain.Project) bool {
	if !id.Active {
		return false
	}
	switch id.Role {
	case domain.RoleBoss:
		return p.BossID == id.ID
	case domain.RoleManager, domain.RoleWorker:
		return false
	}
	return false
}

// CanSetProjectStatus allows the owner boss and the assigned manager.
// Status is the only project field a manager may change.
func CanSetProjectStatus(id domain.Identity, p domain.Project) bool {
	if !id.Active {
		return false
	}
	switch id.Role {
	case domain.RoleBoss:
		return p.BossID == id.ID
	case domain.RoleManager:
		return p.ManagerID != nil && *p.ManagerID == id.ID
	case domain.RoleWorker:
		return false
	}
	return false
}

// ManagesProject reports whether the identity is the project's assigned
// manager. Task and report creation hang off this rule.
func ManagesProject(id domain.Identity, p domain.Project) bool {
	if !id.Active || id.Role != domain.RoleManager {
		return false
	}
	return p.ManagerID != nil && *p.ManagerID == id.ID
}

// CanManageTeam allows the owner boss and the assigned manager to create the
// team and change its membership.
func CanManageTeam(id domain.Identity, p domain.Project) bool {
	if !id.Active {
		return false
	}
	switch id.Role {
	case domain.RoleBoss:
		return p.BossID == id.ID
	case domain.RoleManager:
		return p.ManagerID != nil && *p.ManagerID == id.ID
	case domain.RoleWorker:
		return false
	}
	return false
}

// CanViewTask scopes task reads: the managing manager, the owner boss, or
// the assigned worker.
func CanViewTask(id domain.Identity, p domain.Project, t domain.Task) bool {
	if !id.Active {
		return false
	}
	switch id.Role {
	case domain.RoleBoss:
		return p.BossID == id.ID
	case domain.RoleManager:
		return p.ManagerID != nil && *p.ManagerID == id.ID
	case domain.RoleWorker:
		return t.AssignedTo != nil && *t.AssignedTo == id.ID
	}
	return false
}

// CanSetTaskStatus allows the managing manager and the assigned worker.
func CanSetTaskStatus(id domain.Identity, p domain.Project, t domain.Task) bool {
	if !id.Active {
		return false
	}
	switch id.Role {
	case domain.RoleBoss:
		return false
	case domain.RoleManager:
		return p.ManagerID != nil && *p.ManagerID == id.ID
	case domain.RoleWorker:
		return t.AssignedTo != nil && *t.AssignedTo == id.ID
	}
	return false
}

// CanMutateTask gates field updates and deletion: managing manager only.
func CanMutateTask(id domain.Identity, p domain.Project) bool {
	return ManagesProject(id, p)
}

// CanListReports scopes the per-project report listing: the owner boss or
// the managing manager.
func CanListReports(id domain.Identity, p domain.Project) bool {
	if !id.Active {
		return false
	}
	switch id.Role {
	case domain.RoleBoss:
		return p.BossID == id.ID
	case domain.RoleManager:
		return p.ManagerID != nil && *p.ManagerID == id.ID
	case domain.RoleWorker:
		return false
	}
	return false
}

// CanReadReport scopes a single report read: a boss reads any report on an
// owned project, a manager reads only reports they authored.
func CanReadReport(id domain.Identity, p domain.Project, r domain.Report) bool {
	if !id.Active {
		return false
	}
	switch id.Role {
	case domain.RoleBoss:
		return p.BossID == id.ID
	case domain.RoleManager:
		return r.UserID == id.ID
	case domain.RoleWorker:
		return false
	}
	return false
}
