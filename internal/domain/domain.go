package domain

import "time"

// Role is the closed set of actor roles. Every policy decision switches
// exhaustively over it; an unknown role denies.
type Role string

const (
	RoleBoss    Role = "BOSS"
	RoleManager Role = "MANAGER"
	RoleWorker  Role = "WORKER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBoss, RoleManager, RoleWorker:
		return true
	}
	return false
}

// Identity is the authenticated caller as resolved by the transport layer.
// Role and Active come from the users table, not from the token.
type Identity struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

type ProjectStatus string

const (
	ProjectPlanned    ProjectStatus = "PLANNED"
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectOnHold     ProjectStatus = "ON_HOLD"
	ProjectDelayed    ProjectStatus = "DELAYED"
	ProjectCompleted  ProjectStatus = "COMPLETED"
	ProjectCancelled  ProjectStatus = "CANCELLED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanned, ProjectInProgress, ProjectOnHold, ProjectDelayed, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskBlocked    TaskStatus = "BLOCKED"
	TaskCompleted  TaskStatus = "COMPLETED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskBlocked, TaskCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityNormal TaskPriority = "NORMAL"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities for task listings: URGENT > HIGH > NORMAL > LOW.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type ReportType string

const (
	ReportDaily    ReportType = "DAILY"
	ReportWeekly   ReportType = "WEEKLY"
	ReportSummary  ReportType = "SUMMARY"
	ReportIncident ReportType = "INCIDENT"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportDaily, ReportWeekly, ReportSummary, ReportIncident:
		return true
	}
	return false
}

type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role" enum:"BOSS,MANAGER,WORKER"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// UserSummary is the member/assignee shape embedded in team and task reads.
type UserSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

type Project struct {
	ID                 string        `json:"id"`
	ReferenceCode      string        `json:"reference_code"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	Address            string        `json:"address,omitempty"`
	Status             ProjectStatus `json:"status" enum:"PLANNED,IN_PROGRESS,ON_HOLD,DELAYED,COMPLETED,CANCELLED"`
	Priority           TaskPriority  `json:"priority" enum:"LOW,NORMAL,HIGH,URGENT"`
	BossID             string        `json:"boss_id"`
	ManagerID          *string       `json:"manager_id,omitempty"`
	ProgressPercentage int           `json:"progress_percentage"`
	StartDate          string        `json:"start_date" format:"date-time"`
	EndDate            *string       `json:"end_date,omitempty" format:"date-time"`
	Budget             *float64      `json:"budget,omitempty"`
	CreatedAt          string        `json:"created_at" format:"date-time"`
	UpdatedAt          string        `json:"updated_at" format:"date-time"`
}

type Team struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type TeamMember struct {
	ID         string `json:"id"`
	TeamID     string `json:"team_id"`
	UserID     string `json:"user_id"`
	RoleInTeam Role   `json:"role_in_team" enum:"MANAGER,WORKER"`
	IsActive   bool   `json:"is_active"`
	JoinedAt   string `json:"joined_at" format:"date-time"`
}

type Task struct {
	ID                 string       `json:"id"`
	ProjectID          string       `json:"project_id"`
	Title              string       `json:"title"`
	Description        string       `json:"description,omitempty"`
	Status             TaskStatus   `json:"status" enum:"TODO,IN_PROGRESS,BLOCKED,COMPLETED"`
	Priority           TaskPriority `json:"priority" enum:"LOW,NORMAL,HIGH,URGENT"`
	AssignedTo         *string      `json:"assigned_to,omitempty"`
	CreatedBy          string       `json:"created_by"`
	DueDate            *string      `json:"due_date,omitempty" format:"date-time"`
	ProgressPercentage int          `json:"progress_percentage"`
	StartedAt          *string      `json:"started_at,omitempty" format:"date-time"`
	CompletedAt        *string      `json:"completed_at,omitempty" format:"date-time"`
	CreatedAt          string       `json:"created_at" format:"date-time"`
	UpdatedAt          string       `json:"updated_at" format:"date-time"`
}

// IsOverdue reports whether the task is past its due date and not completed.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskCompleted {
		return false
	}
	due, err := time.Parse(time.RFC3339, *t.DueDate)
	if err != nil {
		return false
	}
	return now.After(due)
}

// DaysRemaining returns whole days until the project end date, nil when the
// end date is unset. Past-due projects return a negative count.
func (p Project) DaysRemaining(now time.Time) *int {
	if p.EndDate == nil {
		return nil
	}
	end, err := time.Parse(time.RFC3339, *p.EndDate)
	if err != nil {
		return nil
	}
	d := int(end.Sub(now).Hours() / 24)
	return &d
}

type Report struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	UserID     string     `json:"user_id"`
	Type       ReportType `json:"type" enum:"DAILY,WEEKLY,SUMMARY,INCIDENT"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	ReportDate string     `json:"report_date" format:"date-time"`
	CreatedAt  string     `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
