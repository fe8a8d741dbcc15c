package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"chantierpro/internal/domain"
	"chantierpro/internal/engine"
)

func registerTeams(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-team",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/team",
		Summary:       "Create project team",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID string            `path:"project_id"`
		Body      CreateTeamRequest `json:"body"`
	}) (*struct {
		Body domain.Team `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTeam(ctx, id, input.ProjectID, input.Body.Name, stringOrEmpty(input.Body.Description))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Team `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-team",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/team",
		Summary:     "Project team with member summaries",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body engine.ProjectTeam `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetProjectTeam(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ProjectTeam `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-team-member",
		Method:        http.MethodPost,
		Path:          "/teams/{team_id}/members",
		Summary:       "Add team member",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		TeamID string           `path:"team_id"`
		Body   AddMemberRequest `json:"body"`
	}) (*struct {
		Body domain.TeamMember `json:"body"`
	}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.AddTeamMember(ctx, id, input.TeamID, input.Body.UserID, domain.Role(input.Body.RoleInTeam))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TeamMember `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-team-member",
		Method:      http.MethodDelete,
		Path:        "/teams/{team_id}/members/{user_id}",
		Summary:     "Remove team member",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
		UserID string `path:"user_id"`
	}) (*struct{}, error) {
		id, authErr := requireRole(ctx, domain.RoleBoss, domain.RoleManager)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveTeamMember(ctx, id, input.TeamID, input.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
