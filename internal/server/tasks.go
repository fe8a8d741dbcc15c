package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"chantierpro/internal/domain"
	"chantierpro/internal/engine"
	"chantierpro/internal/repo"
)

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string            `path:"project_id"`
		Body      CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		id, authErr := requireRole(ctx, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, id, input.ProjectID, taskCreateOptions(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List project tasks",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID  string `path:"project_id"`
		Status     string `query:"status" enum:"TODO,IN_PROGRESS,BLOCKED,COMPLETED" required:"false"`
		AssignedTo string `query:"assigned_to" required:"false"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjectTasks(ctx, id, input.ProjectID, repo.TaskFilters{Status: input.Status, AssignedTo: input.AssignedTo})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/mine",
		Summary:     "List the caller's assigned tasks",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleWorker)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListMyTasks(ctx, id)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTask(ctx, id, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task fields",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		id, authErr := requireRole(ctx, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTaskFields(ctx, id, input.TaskID, taskUpdateOptions(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Set task status",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   TaskStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleManager, domain.RoleWorker)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTaskStatus(ctx, id, input.TaskID, domain.TaskStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct{}, error) {
		id, authErr := requireRole(ctx, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, id, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
