package server

import (
	"chantierpro/internal/domain"
	"chantierpro/internal/engine"
)

// Request payloads

type CreateProjectRequest struct {
	Name        string   `json:"name" minLength:"1"`
	Description *string  `json:"description,omitempty"`
	Address     *string  `json:"address,omitempty"`
	Priority    *string  `json:"priority,omitempty" enum:"LOW,NORMAL,HIGH,URGENT"`
	StartDate   *string  `json:"start_date,omitempty" format:"date-time"`
	EndDate     *string  `json:"end_date,omitempty" format:"date-time"`
	Budget      *float64 `json:"budget,omitempty"`
}

type UpdateProjectRequest struct {
	Name        string   `json:"name" minLength:"1"`
	Description *string  `json:"description,omitempty"`
	Address     *string  `json:"address,omitempty"`
	Priority    *string  `json:"priority,omitempty" enum:"LOW,NORMAL,HIGH,URGENT"`
	StartDate   *string  `json:"start_date,omitempty" format:"date-time"`
	EndDate     *string  `json:"end_date,omitempty" format:"date-time"`
	Budget      *float64 `json:"budget,omitempty"`
}

type ProjectStatusRequest struct {
	Status string `json:"status" enum:"PLANNED,IN_PROGRESS,ON_HOLD,DELAYED,COMPLETED,CANCELLED"`
}

type AssignManagerRequest struct {
	ManagerID string `json:"manager_id" minLength:"1"`
}

type CreateTeamRequest struct {
	Name        string  `json:"name" minLength:"1"`
	Description *string `json:"description,omitempty"`
}

type AddMemberRequest struct {
	UserID     string `json:"user_id" minLength:"1"`
	RoleInTeam string `json:"role_in_team" enum:"MANAGER,WORKER"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title" minLength:"1"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty" enum:"LOW,NORMAL,HIGH,URGENT"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty" enum:"LOW,NORMAL,HIGH,URGENT"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
}

type TaskStatusRequest struct {
	Status string `json:"status" enum:"TODO,IN_PROGRESS,BLOCKED,COMPLETED"`
}

type CreateReportRequest struct {
	Type       string  `json:"type" enum:"DAILY,WEEKLY,SUMMARY,INCIDENT"`
	Title      string  `json:"title" minLength:"1"`
	Content    string  `json:"content" minLength:"1"`
	ReportDate *string `json:"report_date,omitempty" format:"date-time"`
}

// Response payloads

type TokenResponse struct {
	Token  string      `json:"token"`
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

type MeResponse struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	Active bool        `json:"active"`
	Source string      `json:"source"`
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nonNilSlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func projectCreateOptions(req CreateProjectRequest) engine.ProjectCreateOptions {
	opts := engine.ProjectCreateOptions{
		Name:        req.Name,
		Description: stringOrEmpty(req.Description),
		Address:     stringOrEmpty(req.Address),
		StartDate:   stringOrEmpty(req.StartDate),
		EndDate:     stringOrEmpty(req.EndDate),
		Budget:      req.Budget,
	}
	if req.Priority != nil {
		opts.Priority = domain.TaskPriority(*req.Priority)
	}
	return opts
}

func projectUpdateOptions(req UpdateProjectRequest) engine.ProjectUpdateOptions {
	opts := engine.ProjectUpdateOptions{
		Name:        req.Name,
		Description: stringOrEmpty(req.Description),
		Address:     stringOrEmpty(req.Address),
		EndDate:     req.EndDate,
		Budget:      req.Budget,
	}
	if req.Priority != nil {
		opts.Priority = domain.TaskPriority(*req.Priority)
	}
	if req.StartDate != nil {
		opts.StartDate = *req.StartDate
	}
	return opts
}

func taskCreateOptions(req CreateTaskRequest) engine.TaskCreateOptions {
	opts := engine.TaskCreateOptions{
		Title:       req.Title,
		Description: stringOrEmpty(req.Description),
		AssignedTo:  stringOrEmpty(req.AssignedTo),
		DueDate:     stringOrEmpty(req.DueDate),
	}
	if req.Priority != nil {
		opts.Priority = domain.TaskPriority(*req.Priority)
	}
	return opts
}

func taskUpdateOptions(req UpdateTaskRequest) engine.TaskUpdateOptions {
	opts := engine.TaskUpdateOptions{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		opts.Priority = &p
	}
	return opts
}
