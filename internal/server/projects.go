package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"chantierpro/internal/domain"
	"chantierpro/internal/engine"
	"chantierpro/internal/repo"
)

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		id, authErr := requireRole(ctx, domain.RoleBoss)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, id, projectCreateOptions(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects visible to the caller",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"PLANNED,IN_PROGRESS,ON_HOLD,DELAYED,COMPLETED,CANCELLED" required:"false"`
		Search string `query:"search" required:"false"`
	}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjects(ctx, id, repo.ProjectFilters{Status: input.Status, Search: input.Search})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.GetProject(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}",
		Summary:     "Update project fields",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		id, authErr := requireRole(ctx, domain.RoleBoss)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProject(ctx, id, input.ProjectID, projectUpdateOptions(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project-status",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/status",
		Summary:     "Set project status",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      ProjectStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProjectStatus(ctx, id, input.ProjectID, domain.ProjectStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct{}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProject(ctx, id, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-manager",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/assign-manager",
		Summary:     "Assign project manager",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      AssignManagerRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.AssignManager(ctx, id, input.ProjectID, input.Body.ManagerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-summary",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/summary",
		Summary:     "Project progress summary",
		Errors:      []int{http.StatusNotFound, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body engine.ProjectSummary `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.GetProjectSummary(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ProjectSummary `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-events",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/events",
		Summary:     "Project audit events",
		Errors:      []int{http.StatusNotFound, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Limit     int    `query:"limit" minimum:"1" maximum:"500" default:"100" required:"false"`
		Cursor    int64  `query:"cursor" required:"false"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjectEvents(ctx, id, input.ProjectID, input.Limit, input.Cursor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})
}
