package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"chantierpro/internal/config"
	"chantierpro/internal/db"
	"chantierpro/internal/domain"
	"chantierpro/internal/engine"
	"chantierpro/internal/migrate"
)

type testServer struct {
	URL     string
	Engine  engine.Engine
	client  *http.Client
	close   func()
	boss    string
	manager string
	worker  string
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	e := engine.New(conn, config.Default(), log)
	ctx := context.Background()
	seed := func(first, last string, role domain.Role) string {
		u, err := e.CreateUser(ctx, engine.UserCreateOptions{
			FirstName: first, LastName: last,
			Email: first + "@example.test",
			Role:  role,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", first, err)
		}
		return u.Email
	}
	srv := &testServer{
		Engine:  e,
		boss:    seed("boss", "One", domain.RoleBoss),
		manager: seed("manager", "One", domain.RoleManager),
		worker:  seed("worker", "One", domain.RoleWorker),
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth: AuthConfig{
			JWTSecret:       "test-secret",
			TokenTTL:        time.Hour,
			DevLoginEnabled: true,
			Logger:          log,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	httpSrv := &http.Server{Handler: handler}
	go httpSrv.Serve(ln)
	srv.URL = "http://" + ln.Addr().String()
	srv.client = &http.Client{}
	srv.close = func() {
		httpSrv.Shutdown(context.Background())
		ln.Close()
		conn.Close()
	}
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func login(t *testing.T, srv *testServer, email string) map[string]string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/dev/login", map[string]any{"email": email}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login for %s: %d %s", email, res.StatusCode, string(data))
	}
	var tok TokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + tok.Token}
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return envelope.Error.Code
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %q", code)
	}
	// health stays open
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health should not need auth, got %d", res.StatusCode)
	}
}

func TestProjectCreationIsBossOnly(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]any{"name": "Gare Sud", "start_date": "2026-03-01T00:00:00Z"}

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects", body, login(t, srv, srv.manager))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("manager should get 403, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "forbidden" {
		t.Fatalf("expected forbidden code, got %q", code)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects", body, login(t, srv, srv.boss))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("boss create should 201, got %d %s", res.StatusCode, string(data))
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	if p.ReferenceCode == "" || p.Status != domain.ProjectPlanned || p.ProgressPercentage != 0 {
		t.Fatalf("unexpected fresh project: %+v", p)
	}
}

func TestTaskFlowDrivesProgress(t *testing.T) {
	srv := newTestServer(t)
	bossAuth := login(t, srv, srv.boss)
	managerAuth := login(t, srv, srv.manager)
	workerAuth := login(t, srv, srv.worker)

	_, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects",
		map[string]any{"name": "Pont Neuf", "start_date": "2026-03-01T00:00:00Z"}, bossAuth)
	var p domain.Project
	_ = json.Unmarshal(data, &p)

	managerID := userID(t, srv, srv.manager)
	res, data := doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v1/projects/"+p.ID+"/assign-manager",
		map[string]any{"manager_id": managerID}, bossAuth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("assign manager: %d %s", res.StatusCode, string(data))
	}

	workerID := userID(t, srv, srv.worker)
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects/"+p.ID+"/tasks",
		map[string]any{"title": "Percer les appuis", "assigned_to": workerID}, managerAuth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task domain.Task
	_ = json.Unmarshal(data, &task)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/tasks/mine", nil, workerAuth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("tasks/mine: %d %s", res.StatusCode, string(data))
	}
	var mine []domain.Task
	_ = json.Unmarshal(data, &mine)
	if len(mine) != 1 || mine[0].ID != task.ID {
		t.Fatalf("worker should see the one assigned task, got %d", len(mine))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v1/tasks/"+task.ID+"/status",
		map[string]any{"status": "COMPLETED"}, workerAuth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete task: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects/"+p.ID, nil, bossAuth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get project: %d %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &p)
	if p.ProgressPercentage != 100 {
		t.Fatalf("1/1 completed should read 100%%, got %d", p.ProgressPercentage)
	}
}

func TestForeignProjectReadsNotFound(t *testing.T) {
	srv := newTestServer(t)
	bossAuth := login(t, srv, srv.boss)
	managerAuth := login(t, srv, srv.manager)

	_, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects",
		map[string]any{"name": "Silo Nord", "start_date": "2026-03-01T00:00:00Z"}, bossAuth)
	var p domain.Project
	_ = json.Unmarshal(data, &p)

	// manager was never assigned: the project must not leak
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects/"+p.ID, nil, managerAuth)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "not_found" {
		t.Fatalf("expected not_found code, got %q", code)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects", nil, managerAuth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list projects: %d %s", res.StatusCode, string(data))
	}
	var items []domain.Project
	_ = json.Unmarshal(data, &items)
	if len(items) != 0 {
		t.Fatalf("unassigned manager should list nothing, got %d", len(items))
	}
}

func TestDuplicateTeamConflictsOverREST(t *testing.T) {
	srv := newTestServer(t)
	bossAuth := login(t, srv, srv.boss)

	_, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects",
		map[string]any{"name": "Depot Est", "start_date": "2026-03-01T00:00:00Z"}, bossAuth)
	var p domain.Project
	_ = json.Unmarshal(data, &p)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects/"+p.ID+"/team",
		map[string]any{"name": "Crew"}, bossAuth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create team: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects/"+p.ID+"/team",
		map[string]any{"name": "Crew 2"}, bossAuth)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "conflict" {
		t.Fatalf("expected conflict code, got %q", code)
	}
}

func TestValidationErrorsMapToBadRequest(t *testing.T) {
	srv := newTestServer(t)
	bossAuth := login(t, srv, srv.boss)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects",
		map[string]any{"start_date": "2026-03-01T00:00:00Z"}, bossAuth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing name should 400, got %d %s", res.StatusCode, string(data))
	}
}

func TestMeReflectsIdentity(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, login(t, srv, srv.worker))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me: %d %s", res.StatusCode, string(data))
	}
	var me MeResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.Role != domain.RoleWorker {
		t.Fatalf("expected WORKER, got %s", me.Role)
	}
}

func userID(t *testing.T, srv *testServer, email string) string {
	t.Helper()
	u, err := srv.Engine.Repo.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("lookup %s: %v", email, err)
	}
	return u.ID
}
