package chantiersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal ChantierPro HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Project represents the API project model (partial).
type Project struct {
	ID                 string   `json:"id"`
	ReferenceCode      string   `json:"reference_code"`
	Name               string   `json:"name"`
	Status             string   `json:"status"`
	Priority           string   `json:"priority"`
	BossID             string   `json:"boss_id"`
	ManagerID          *string  `json:"manager_id,omitempty"`
	ProgressPercentage int      `json:"progress_percentage"`
	StartDate          string   `json:"start_date"`
	EndDate            *string  `json:"end_date,omitempty"`
	Budget             *float64 `json:"budget,omitempty"`
}

// Task represents the API task model (partial).
type Task struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	StartedAt   *string `json:"started_at,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// Report represents a site report.
type Report struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	UserID     string `json:"user_id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	ReportDate string `json:"report_date"`
}

// Team represents a project crew.
type Team struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// TeamMember is one membership row.
type TeamMember struct {
	ID         string `json:"id"`
	TeamID     string `json:"team_id"`
	UserID     string `json:"user_id"`
	RoleInTeam string `json:"role_in_team"`
	JoinedAt   string `json:"joined_at"`
}

// Event represents an audit log entry.
type Event struct {
	ID        int64          `json:"id"`
	TS        string         `json:"ts"`
	Type      string         `json:"type"`
	ProjectID string         `json:"project_id"`
	EntityID  string         `json:"entity_id"`
	ActorID   string         `json:"actor_id"`
	Payload   map[string]any `json:"payload"`
}

// ProjectSummary is the dashboard aggregate for a project.
type ProjectSummary struct {
	Project       Project        `json:"project"`
	TasksByStatus map[string]int `json:"tasks_by_status"`
	TotalTasks    int            `json:"total_tasks"`
	OverdueTasks  int            `json:"overdue_tasks"`
	DaysRemaining *int           `json:"days_remaining,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges an email for a bearer token via the dev login endpoint and
// stores it on the client. Only works against servers with dev login enabled.
func (c *Client) Login(ctx context.Context, email string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "v1/auth/dev/login", map[string]any{"email": email}, &resp); err != nil {
		return err
	}
	c.BearerToken = resp.Token
	return nil
}

// CreateProject creates a project. BOSS only.
func (c *Client) CreateProject(ctx context.Context, name, startDate string, extra map[string]any) (Project, error) {
	body := map[string]any{"name": name, "start_date": startDate}
	for k, v := range extra {
		body[k] = v
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v1/projects", body, &resp)
	return resp, err
}

// ListProjects returns projects visible to the caller.
func (c *Client) ListProjects(ctx context.Context, status, search string) ([]Project, error) {
	endpoint := "v1/projects" + query(map[string]string{"status": status, "search": search})
	var resp []Project
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "v1/projects/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SetProjectStatus changes the project status.
func (c *Client) SetProjectStatus(ctx context.Context, id, status string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPatch, "v1/projects/"+url.PathEscape(id)+"/status", map[string]any{"status": status}, &resp)
	return resp, err
}

// AssignManager puts a MANAGER in charge of the project.
func (c *Client) AssignManager(ctx context.Context, projectID, managerID string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPatch, "v1/projects/"+url.PathEscape(projectID)+"/assign-manager", map[string]any{"manager_id": managerID}, &resp)
	return resp, err
}

// DeleteProject removes a project and everything under it.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v1/projects/"+url.PathEscape(id), nil, nil)
}

// Summary returns the project dashboard aggregate.
func (c *Client) Summary(ctx context.Context, projectID string) (ProjectSummary, error) {
	var resp ProjectSummary
	err := c.do(ctx, http.MethodGet, "v1/projects/"+url.PathEscape(projectID)+"/summary", nil, &resp)
	return resp, err
}

// Events returns recent audit events for a project, newest first.
func (c *Client) Events(ctx context.Context, projectID string, limit int, cursor int64) ([]Event, error) {
	endpoint := "v1/projects/" + url.PathEscape(projectID) + "/events"
	params := map[string]string{}
	if limit > 0 {
		params["limit"] = fmt.Sprint(limit)
	}
	if cursor > 0 {
		params["cursor"] = fmt.Sprint(cursor)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint+query(params), nil, &resp)
	return resp, err
}

// CreateTeam creates the project's crew record.
func (c *Client) CreateTeam(ctx context.Context, projectID, name string) (Team, error) {
	var resp Team
	err := c.do(ctx, http.MethodPost, "v1/projects/"+url.PathEscape(projectID)+"/team", map[string]any{"name": name}, &resp)
	return resp, err
}

// AddTeamMember adds a user to a team.
func (c *Client) AddTeamMember(ctx context.Context, teamID, userID, roleInTeam string) (TeamMember, error) {
	var resp TeamMember
	err := c.do(ctx, http.MethodPost, "v1/teams/"+url.PathEscape(teamID)+"/members",
		map[string]any{"user_id": userID, "role_in_team": roleInTeam}, &resp)
	return resp, err
}

// RemoveTeamMember drops a user from a team.
func (c *Client) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	return c.do(ctx, http.MethodDelete, "v1/teams/"+url.PathEscape(teamID)+"/members/"+url.PathEscape(userID), nil, nil)
}

// CreateTask creates a task on a project. MANAGER only.
func (c *Client) CreateTask(ctx context.Context, projectID, title string, extra map[string]any) (Task, error) {
	body := map[string]any{"title": title}
	for k, v := range extra {
		body[k] = v
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v1/projects/"+url.PathEscape(projectID)+"/tasks", body, &resp)
	return resp, err
}

// ListTasks returns a project's tasks.
func (c *Client) ListTasks(ctx context.Context, projectID, status, assignedTo string) ([]Task, error) {
	endpoint := "v1/projects/" + url.PathEscape(projectID) + "/tasks" + query(map[string]string{"status": status, "assigned_to": assignedTo})
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MyTasks returns the calling worker's assigned tasks.
func (c *Client) MyTasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, "v1/tasks/mine", nil, &resp)
	return resp, err
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "v1/tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SetTaskStatus changes a task's status.
func (c *Client) SetTaskStatus(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "v1/tasks/"+url.PathEscape(id)+"/status", map[string]any{"status": status}, &resp)
	return resp, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v1/tasks/"+url.PathEscape(id), nil, nil)
}

// CreateReport files a site report on a project. MANAGER only.
func (c *Client) CreateReport(ctx context.Context, projectID, reportType, title, content string) (Report, error) {
	body := map[string]any{"type": reportType, "title": title, "content": content}
	var resp Report
	err := c.do(ctx, http.MethodPost, "v1/projects/"+url.PathEscape(projectID)+"/reports", body, &resp)
	return resp, err
}

// ListReports returns a project's reports, newest first.
func (c *Client) ListReports(ctx context.Context, projectID string) ([]Report, error) {
	var resp []Report
	err := c.do(ctx, http.MethodGet, "v1/projects/"+url.PathEscape(projectID)+"/reports", nil, &resp)
	return resp, err
}

// GetReport fetches a report by id.
func (c *Client) GetReport(ctx context.Context, id string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodGet, "v1/reports/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func query(params map[string]string) string {
	vals := url.Values{}
	for k, v := range params {
		if v != "" {
			vals.Set(k, v)
		}
	}
	if len(vals) == 0 {
		return ""
	}
	return "?" + vals.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
