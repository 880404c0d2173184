package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrCaseNotFound = errors.New("case not found")
	ErrUserNotFound = errors.New("user not found")

	// ErrCaseAccessDenied is returned when an actor may not view a case.
	ErrCaseAccessDenied = errors.New("access to case denied")

	// ErrVersionConflict is returned by the store when a check-and-set
	// update lost the race against a concurrent transition. Transient;
	// the engine retries a bounded number of times.
	ErrVersionConflict = errors.New("case was modified concurrently")
)

// CaseNumberConflictError is returned when a generated case number is
// already taken.
type CaseNumberConflictError struct {
	Number string
}

func (e *CaseNumberConflictError) Error() string {
	return fmt.Sprintf("case number %q is already in use", e.Number)
}

// IllegalTransitionError is returned when no edge exists for the
// (current status, action) pair.
type IllegalTransitionError struct {
	Action  Action
	Current Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("action %q is not valid from status %q", e.Action, e.Current)
}

// UnauthorizedError is returned when the actor's role or identity is not
// in the edge's authorized set.
type UnauthorizedError struct {
	Action Action
	Role   Role
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("role %q is not authorized to perform %q", e.Role, e.Action)
}

// MissingAssigneeError is returned when an edge requires an assignee
// target and none was supplied.
type MissingAssigneeError struct {
	Action Action
}

func (e *MissingAssigneeError) Error() string {
	return fmt.Sprintf("action %q requires an assignee", e.Action)
}

// InvalidAssigneeRoleError is returned when the supplied assignee exists
// but holds a role that is not eligible for assignment.
type InvalidAssigneeRoleError struct {
	Assignee string
	Role     Role
}

func (e *InvalidAssigneeRoleError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("user %q is not a known assignee", e.Assignee)
	}
	return fmt.Sprintf("user %q with role %q cannot be assigned to a case", e.Assignee, e.Role)
}

// HistoryCorruptError is returned by Replay when a recorded entry
// disagrees with the transition table.
type HistoryCorruptError struct {
	Index    int
	Recorded Status
	Expected Status
}

func (e *HistoryCorruptError) Error() string {
	return fmt.Sprintf("history entry %d records status %q, table expects %q", e.Index, e.Recorded, e.Expected)
}
