package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"chantierpro/internal/domain"
	"chantierpro/internal/engine"
)

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-report",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/reports",
		Summary:       "File a report",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string              `path:"project_id"`
		Body      CreateReportRequest `json:"body"`
	}) (*struct {
		Body domain.Report `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		id, authErr := requireRole(ctx, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.CreateReport(ctx, id, input.ProjectID, engine.ReportCreateOptions{
			Type:       domain.ReportType(input.Body.Type),
			Title:      input.Body.Title,
			Content:    input.Body.Content,
			ReportDate: stringOrEmpty(input.Body.ReportDate),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Report `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-reports",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/reports",
		Summary:     "List project reports",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.Report `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjectReports(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Report `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-report",
		Method:      http.MethodGet,
		Path:        "/reports/{report_id}",
		Summary:     "Get report",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReportID string `path:"report_id"`
	}) (*struct {
		Body domain.Report `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.GetReport(ctx, id, input.ReportID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Report `json:"body"`
		}{Body: rep}, nil
	})
}
