package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/opencivic/caseflow/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// TransitionJobArgs carries the data needed to process a committed
// transition asynchronously. River serializes this as JSON into its job
// queue table. It includes a snapshot of the case at commit time, so the
// worker never needs to query the database.
type TransitionJobArgs struct {
	Action          string `json:"action"`
	ResultingStatus string `json:"resulting_status"`
	PerformedBy     string `json:"performed_by"`
	PerformedByName string `json:"performed_by_name,omitempty"`
	Comment         string `json:"comment,omitempty"`
	CaseID          string `json:"case_id"`
	CaseNumber      string `json:"case_number"`
	CaseType        string `json:"case_type"`
	AssignedTo      string `json:"assigned_to,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (TransitionJobArgs) Kind() string { return "case.transition" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a committed transition as an async job in River.
func (p *Publisher) Publish(ctx context.Context, entry domain.WorkflowEntry, c domain.Case) error {
	_, err := p.client.Insert(ctx, TransitionJobArgs{
		Action:          string(entry.Action),
		ResultingStatus: string(entry.ResultingStatus),
		PerformedBy:     entry.PerformedBy,
		PerformedByName: entry.PerformedByName,
		Comment:         entry.Comment,
		CaseID:          c.ID,
		CaseNumber:      c.CaseNumber,
		CaseType:        string(c.Type),
		AssignedTo:      c.AssignedTo,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing transition job: %w", err)
	}
	return nil
}
