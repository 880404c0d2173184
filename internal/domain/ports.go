package domain

import "context"

// CaseRepository defines the persistence contract for cases. A completed
// write is immediately visible to subsequent reads on the same key.
type CaseRepository interface {
	Create(ctx context.Context, c Case) error
	GetByID(ctx context.Context, id string) (Case, error)
	List(ctx context.Context, filter CaseFilter) ([]Case, error)

	// UpdateIfUnchanged persists the case only if its stored version
	// still equals expectedVersion, incrementing the version on success.
	// Returns ErrVersionConflict when a concurrent transition won the
	// race. This is the atomic primitive behind the per-case update
	// scope; the write is all-or-nothing.
	UpdateIfUnchanged(ctx context.Context, c Case, expectedVersion int64) error

	CountByStatus(ctx context.Context) (map[Status]int, error)
	CountByType(ctx context.Context) (map[CaseType]int, error)
	CountAssignedTo(ctx context.Context, userID string) (int, error)

	// CountByTypeInYear backs case-number sequencing.
	CountByTypeInYear(ctx context.Context, t CaseType, year int) (int, error)
}

// CaseFilter holds optional criteria for listing cases.
type CaseFilter struct {
	Status     *Status
	Type       *CaseType
	AssignedTo *string

	// SubmittedOrAssignedTo restricts results to unassigned intake
	// (status "submitted") plus cases assigned to the given user. Used
	// for role-scoped listing.
	SubmittedOrAssignedTo *string

	Limit  int
	Offset int
}

// UserRepository defines the persistence contract for registry users.
type UserRepository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	ListActive(ctx context.Context) ([]User, error)
}

// TransitionValidator checks (status, action) legality against the
// transition table and resolves the destination status.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, action Action) (Status, error)
}

// EventPublisher defines the contract for emitting committed-transition
// events.
type EventPublisher interface {
	Publish(ctx context.Context, entry WorkflowEntry, c Case) error
}
