package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/opencivic/caseflow/internal/app"
	"github.com/opencivic/caseflow/internal/auth"
	"github.com/opencivic/caseflow/internal/domain"
)

// WorkflowEntryResponse is the API representation of one audit record.
type WorkflowEntryResponse struct {
	Action          string `json:"action" doc:"Applied action"`
	PerformedBy     string `json:"performed_by" doc:"Actor identity or \"system\""`
	PerformedByName string `json:"performed_by_name,omitempty" doc:"Actor display name"`
	Comment         string `json:"comment,omitempty" doc:"Free-text note from the actor"`
	ResultingStatus string `json:"resulting_status" doc:"Status the case moved to"`
	Timestamp       string `json:"timestamp" doc:"Commit time (ISO 8601)"`
}

// CaseResponse is the API representation of a case. Every transition
// response carries the full updated case so callers never need a second
// round trip to stay consistent.
type CaseResponse struct {
	ID              string                  `json:"id" doc:"Unique identifier"`
	CaseNumber      string                  `json:"case_number" doc:"Human-readable identifier"`
	CaseType        string                  `json:"case_type" doc:"Registration kind"`
	Status          string                  `json:"status" doc:"Current workflow state"`
	SubmitterData   map[string]any          `json:"submitter_data" doc:"Opaque intake payload"`
	Documents       []string                `json:"documents" doc:"Attached document references"`
	SubmittedBy     string                  `json:"submitted_by,omitempty" doc:"Submitter identity"`
	AssignedTo      string                  `json:"assigned_to,omitempty" doc:"Assigned user id"`
	WorkflowHistory []WorkflowEntryResponse `json:"workflow_history" doc:"Append-only audit trail"`
	CreatedAt       string                  `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt       string                  `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

// UserResponse is the API representation of a registry user. The password
// hash never leaves the server.
type UserResponse struct {
	ID       string `json:"id" doc:"Unique identifier"`
	Username string `json:"username" doc:"Login name"`
	FullName string `json:"full_name" doc:"Display name"`
	Email    string `json:"email" doc:"Contact address"`
	Role     string `json:"role" doc:"Authorization class"`
}

const timeFormat = "2006-01-02T15:04:05.000Z"

func toCaseResponse(c domain.Case) CaseResponse {
	history := make([]WorkflowEntryResponse, len(c.History))
	for i, e := range c.History {
		history[i] = WorkflowEntryResponse{
			Action:          string(e.Action),
			PerformedBy:     e.PerformedBy,
			PerformedByName: e.PerformedByName,
			Comment:         e.Comment,
			ResultingStatus: string(e.ResultingStatus),
			Timestamp:       e.Timestamp.UTC().Format(timeFormat),
		}
	}
	data := c.SubmitterData
	if data == nil {
		data = map[string]any{}
	}
	docs := c.Documents
	if docs == nil {
		docs = []string{}
	}
	return CaseResponse{
		ID:              c.ID,
		CaseNumber:      c.CaseNumber,
		CaseType:        string(c.Type),
		Status:          string(c.Status),
		SubmitterData:   data,
		Documents:       docs,
		SubmittedBy:     c.SubmittedBy,
		AssignedTo:      c.AssignedTo,
		WorkflowHistory: history,
		CreatedAt:       c.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:       c.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     string(u.Role),
	}
}

// --- Login ---

type LoginInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" doc:"Login name"`
		Password string `json:"password" minLength:"1" doc:"Password"`
	}
}

type LoginOutput struct {
	Body struct {
		AccessToken string       `json:"access_token" doc:"Bearer token"`
		TokenType   string       `json:"token_type" doc:"Always \"bearer\""`
		User        UserResponse `json:"user" doc:"Authenticated user"`
	}
}

// --- Create Case ---

type CreateCaseInput struct {
	Body struct {
		CaseType      string         `json:"case_type" enum:"birth_registration,business_registration,land_registration" doc:"Registration kind"`
		SubmitterData map[string]any `json:"submitter_data" doc:"Intake form payload"`
		Documents     []string       `json:"documents,omitempty" doc:"Attached document references"`
	}
}

type CaseOutput struct {
	Body CaseResponse
}

// --- Get / List Cases ---

type GetCaseInput struct {
	ID string `path:"id" doc:"Case ID"`
}

type ListCasesInput struct {
	Status     string `query:"status" required:"false" doc:"Filter by status"`
	CaseType   string `query:"case_type" required:"false" doc:"Filter by case type"`
	AssignedTo string `query:"assigned_to" required:"false" doc:"Filter by assigned user"`
	Limit      int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset     int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListCasesOutput struct {
	Body []CaseResponse
}

// --- Workflow ---

type WorkflowInput struct {
	ID   string `path:"id" doc:"Case ID"`
	Body struct {
		Action     string `json:"action" enum:"assign,review,approve,reject,request_documents,resubmit" doc:"Workflow action to apply"`
		AssignedTo string `json:"assigned_to,omitempty" doc:"Assignee user id (required by assign)"`
		Comment    string `json:"comment,omitempty" doc:"Optional note recorded in the audit trail"`
	}
}

// --- Users ---

type ListUsersOutput struct {
	Body []UserResponse
}

// --- Dashboard ---

type StatsOutput struct {
	Body struct {
		ByStatus   map[string]int `json:"by_status" doc:"Committed case counts per status"`
		ByType     map[string]int `json:"by_type" doc:"Committed case counts per type"`
		MyAssigned *int           `json:"my_assigned,omitempty" doc:"Cases assigned to the caller"`
	}
}

// Register adds all case-workflow API routes to the Huma API.
func Register(api huma.API, svc *app.CaseService, authSvc *auth.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        auth.LoginPath,
		Summary:     "Exchange credentials for a bearer token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		result, err := authSvc.Login(ctx, input.Body.Username, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("incorrect username or password")
			}
			return nil, huma.Error500InternalServerError("internal server error")
		}
		out := &LoginOutput{}
		out.Body.AccessToken = result.Token
		out.Body.TokenType = "bearer"
		out.Body.User = toUserResponse(result.User)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-case",
		Method:      http.MethodPost,
		Path:        "/api/cases",
		Summary:     "Submit a new case",
		Tags:        []string{"Cases"},
	}, func(ctx context.Context, input *CreateCaseInput) (*CaseOutput, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}
		c, err := svc.Submit(ctx, domain.CaseType(input.Body.CaseType),
			input.Body.SubmitterData, input.Body.Documents, actor.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CaseOutput{Body: toCaseResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-case",
		Method:      http.MethodGet,
		Path:        "/api/cases/{id}",
		Summary:     "Get a case by ID",
		Tags:        []string{"Cases"},
	}, func(ctx context.Context, input *GetCaseInput) (*CaseOutput, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}
		c, err := svc.GetForActor(ctx, input.ID, actor)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CaseOutput{Body: toCaseResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cases",
		Method:      http.MethodGet,
		Path:        "/api/cases",
		Summary:     "List cases",
		Tags:        []string{"Cases"},
	}, func(ctx context.Context, input *ListCasesInput) (*ListCasesOutput, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}

		filter := domain.CaseFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}
		if input.CaseType != "" {
			t := domain.CaseType(input.CaseType)
			filter.Type = &t
		}
		if input.AssignedTo != "" {
			a := input.AssignedTo
			filter.AssignedTo = &a
		}

		cases, err := svc.ListForActor(ctx, actor, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]CaseResponse, len(cases))
		for i, c := range cases {
			resp[i] = toCaseResponse(c)
		}
		return &ListCasesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "apply-workflow-action",
		Method:      http.MethodPost,
		Path:        "/api/cases/{id}/workflow",
		Summary:     "Apply a workflow transition to a case",
		Tags:        []string{"Cases"},
	}, func(ctx context.Context, input *WorkflowInput) (*CaseOutput, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}
		c, err := svc.ApplyTransition(ctx, input.ID, actor,
			domain.Action(input.Body.Action), input.Body.AssignedTo, input.Body.Comment)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CaseOutput{Body: toCaseResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/api/users",
		Summary:     "List active users for assignment",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}
		users, err := svc.ListUsers(ctx, actor)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]UserResponse, len(users))
		for i, u := range users {
			resp[i] = toUserResponse(u)
		}
		return &ListUsersOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-stats",
		Method:      http.MethodGet,
		Path:        "/api/dashboard/stats",
		Summary:     "Aggregate case counts for the dashboard",
		Tags:        []string{"Dashboard"},
	}, func(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}
		stats, err := svc.Stats(ctx, actor)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &StatsOutput{}
		out.Body.ByStatus = make(map[string]int, len(stats.ByStatus))
		for s, n := range stats.ByStatus {
			out.Body.ByStatus[string(s)] = n
		}
		out.Body.ByType = make(map[string]int, len(stats.ByType))
		for t, n := range stats.ByType {
			out.Body.ByType[string(t)] = n
		}
		out.Body.MyAssigned = stats.MyAssigned
		return out, nil
	})
}

// requireActor fetches the authenticated actor placed in the context by
// the auth middleware.
func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, huma.Error401Unauthorized("authentication required")
	}
	return actor, nil
}

// toHumaError translates domain errors to Huma HTTP errors. The mapping
// is part of the engine's contract: validation failures are 400, denied
// actors 403, unknown cases 404, and stale or conflicting transitions 409.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrCaseNotFound):
		return huma.Error404NotFound("case not found")
	case errors.Is(err, domain.ErrCaseAccessDenied):
		return huma.Error403Forbidden("access denied")
	case errors.Is(err, domain.ErrVersionConflict):
		return huma.Error409Conflict("case was modified concurrently, retry")
	}

	var illegalErr *domain.IllegalTransitionError
	if errors.As(err, &illegalErr) {
		return huma.Error409Conflict(illegalErr.Error())
	}

	var unauthorizedErr *domain.UnauthorizedError
	if errors.As(err, &unauthorizedErr) {
		return huma.Error403Forbidden(unauthorizedErr.Error())
	}

	var missingErr *domain.MissingAssigneeError
	if errors.As(err, &missingErr) {
		return huma.Error400BadRequest(missingErr.Error())
	}

	var assigneeErr *domain.InvalidAssigneeRoleError
	if errors.As(err, &assigneeErr) {
		return huma.Error400BadRequest(assigneeErr.Error())
	}

	var numberErr *domain.CaseNumberConflictError
	if errors.As(err, &numberErr) {
		return huma.Error409Conflict(numberErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
