package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opencivic/caseflow/internal/domain"
)

// transitionAttempts bounds the internal retry loop around the store's
// check-and-set primitive. A retry re-reads the case, so a request that
// became stale fails with IllegalTransition rather than being applied
// twice.
const transitionAttempts = 3

// numberAttempts bounds retries when a generated case number collides
// with a concurrent submission.
const numberAttempts = 3

// CaseService is the workflow engine: it validates and applies transitions
// against the transition table, persists each result atomically, and keeps
// the append-only audit trail.
type CaseService struct {
	cases     domain.CaseRepository
	users     domain.UserRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
}

// NewCaseService creates a service with the given adapters.
func NewCaseService(cases domain.CaseRepository, users domain.UserRepository, publisher domain.EventPublisher, validator domain.TransitionValidator) *CaseService {
	return &CaseService{
		cases:     cases,
		users:     users,
		publisher: publisher,
		validator: validator,
	}
}

// Submit creates a new case in the initial "submitted" status with an
// empty workflow history and a generated case number.
func (s *CaseService) Submit(ctx context.Context, t domain.CaseType, submitterData map[string]any, documents []string, submittedBy string) (domain.Case, error) {
	if !t.Valid() {
		return domain.Case{}, fmt.Errorf("unknown case type %q", t)
	}

	var lastErr error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := s.nextCaseNumber(ctx, t)
		if err != nil {
			return domain.Case{}, err
		}

		c := domain.NewCase(newID(), number, t, submitterData, documents, submittedBy)

		err = s.cases.Create(ctx, c)
		if err == nil {
			return c, nil
		}

		// Another submission of the same type may have taken the
		// number; recount and try again.
		var numErr *domain.CaseNumberConflictError
		if errors.As(err, &numErr) {
			lastErr = err
			continue
		}
		return domain.Case{}, fmt.Errorf("creating case: %w", err)
	}
	return domain.Case{}, fmt.Errorf("allocating case number: %w", lastErr)
}

// nextCaseNumber produces the next human-readable identifier for the
// type, e.g. LAND-2026-0042. Sequences restart each calendar year.
func (s *CaseService) nextCaseNumber(ctx context.Context, t domain.CaseType) (string, error) {
	year := time.Now().UTC().Year()
	count, err := s.cases.CountByTypeInYear(ctx, t, year)
	if err != nil {
		return "", fmt.Errorf("counting cases for number sequence: %w", err)
	}
	return fmt.Sprintf("%s-%d-%04d", t.NumberPrefix(), year, count+1), nil
}

// GetByID returns a case by its unique identifier.
func (s *CaseService) GetByID(ctx context.Context, id string) (domain.Case, error) {
	return s.cases.GetByID(ctx, id)
}

// GetForActor returns a case if the actor may view it. Registrars,
// supervisors, and admins see every case; other actors see unassigned
// intake and their own assignments.
func (s *CaseService) GetForActor(ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return domain.Case{}, err
	}
	if !canViewAll(actor.Role) && c.AssignedTo != actor.ID && c.Status != domain.StatusSubmitted {
		return domain.Case{}, domain.ErrCaseAccessDenied
	}
	return c, nil
}

// List returns cases matching the filter without role scoping.
func (s *CaseService) List(ctx context.Context, filter domain.CaseFilter) ([]domain.Case, error) {
	return s.cases.List(ctx, filter)
}

// ListForActor returns cases matching the filter, scoped to what the
// actor's role may see.
func (s *CaseService) ListForActor(ctx context.Context, actor domain.Actor, filter domain.CaseFilter) ([]domain.Case, error) {
	if !canViewAll(actor.Role) {
		id := actor.ID
		filter.SubmittedOrAssignedTo = &id
	}
	return s.cases.List(ctx, filter)
}

func canViewAll(r domain.Role) bool {
	return r == domain.RoleAdmin || r == domain.RoleRegistrar || r == domain.RoleSupervisor
}

// ApplyTransition validates and applies a single workflow action to a
// case. Exactly one transition is ever committed per case at a time: the
// case is re-read and the table re-checked on every attempt, and the write
// goes through the store's check-and-set primitive. A failed validation
// never mutates state.
func (s *CaseService) ApplyTransition(ctx context.Context, caseID string, actor domain.Actor, action domain.Action, assigneeID, comment string) (domain.Case, error) {
	var lastErr error
	for attempt := 0; attempt < transitionAttempts; attempt++ {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return domain.Case{}, err
		}

		dst, err := s.validator.Apply(ctx, c.Status, action)
		if err != nil {
			return domain.Case{}, err
		}

		edge, ok := domain.EdgeFor(c.Status, action)
		if !ok {
			return domain.Case{}, &domain.IllegalTransitionError{Action: action, Current: c.Status}
		}

		if !edge.Authorizes(actor, c) {
			return domain.Case{}, &domain.UnauthorizedError{Action: action, Role: actor.Role}
		}

		if edge.RequiresAssignee {
			if assigneeID == "" {
				return domain.Case{}, &domain.MissingAssigneeError{Action: action}
			}
			assignee, err := s.users.GetByID(ctx, assigneeID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return domain.Case{}, &domain.InvalidAssigneeRoleError{Assignee: assigneeID}
				}
				return domain.Case{}, fmt.Errorf("resolving assignee: %w", err)
			}
			if !assignee.Active || !assignee.Role.Assignable() {
				return domain.Case{}, &domain.InvalidAssigneeRoleError{Assignee: assigneeID, Role: assignee.Role}
			}
		}

		entry := domain.WorkflowEntry{
			Action:          action,
			PerformedBy:     actor.ID,
			PerformedByName: actor.Name,
			Comment:         comment,
			ResultingStatus: dst,
			Timestamp:       time.Now().UTC(),
		}

		expected := c.Version
		c.Status = dst
		if edge.RequiresAssignee {
			c.AssignedTo = assigneeID
		}
		if edge.ClearsAssignee {
			c.AssignedTo = ""
		}
		c.History = append(c.History, entry)
		c.UpdatedAt = entry.Timestamp

		err = s.cases.UpdateIfUnchanged(ctx, c, expected)
		if errors.Is(err, domain.ErrVersionConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return domain.Case{}, fmt.Errorf("persisting transition: %w", err)
		}

		// The transition is committed; a publish failure must not
		// unwind it or fail the request.
		if err := s.publisher.Publish(ctx, entry, c); err != nil {
			slog.WarnContext(ctx, "publishing transition event failed",
				"case_id", c.ID,
				"action", action,
				"error", err,
			)
		}

		return c, nil
	}
	return domain.Case{}, fmt.Errorf("applying %q to case %s: %w", action, caseID, lastErr)
}

// Stats holds dashboard aggregates over committed case state.
type Stats struct {
	ByStatus   map[domain.Status]int
	ByType     map[domain.CaseType]int
	MyAssigned *int
}

// Stats returns counts by status and type, plus the actor's own assigned
// count for non-supervisor roles.
func (s *CaseService) Stats(ctx context.Context, actor domain.Actor) (Stats, error) {
	byStatus, err := s.cases.CountByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting by status: %w", err)
	}
	byType, err := s.cases.CountByType(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting by type: %w", err)
	}

	stats := Stats{ByStatus: byStatus, ByType: byType}

	if actor.Role != domain.RoleSupervisor {
		n, err := s.cases.CountAssignedTo(ctx, actor.ID)
		if err != nil {
			return Stats{}, fmt.Errorf("counting assigned cases: %w", err)
		}
		stats.MyAssigned = &n
	}

	return stats, nil
}

// ListUsers returns active users for assignment pickers. Restricted to
// registrars and supervisors.
func (s *CaseService) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if actor.Role != domain.RoleRegistrar && actor.Role != domain.RoleSupervisor {
		return nil, domain.ErrCaseAccessDenied
	}
	return s.users.ListActive(ctx)
}
