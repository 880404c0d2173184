package domain

import "time"

// CaseType identifies the kind of civil-registration request.
type CaseType string

const (
	CaseTypeBirth    CaseType = "birth_registration"
	CaseTypeBusiness CaseType = "business_registration"
	CaseTypeLand     CaseType = "land_registration"
)

// CaseTypes lists every supported case type.
var CaseTypes = []CaseType{CaseTypeBirth, CaseTypeBusiness, CaseTypeLand}

// Valid reports whether the case type is one of the supported kinds.
func (t CaseType) Valid() bool {
	switch t {
	case CaseTypeBirth, CaseTypeBusiness, CaseTypeLand:
		return true
	}
	return false
}

// NumberPrefix returns the case-number prefix for the type.
func (t CaseType) NumberPrefix() string {
	switch t {
	case CaseTypeBirth:
		return "BR"
	case CaseTypeBusiness:
		return "BUS"
	case CaseTypeLand:
		return "LAND"
	}
	return "CASE"
}

// Status represents the workflow state of a case.
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusAssigned         Status = "assigned"
	StatusUnderReview      Status = "under_review"
	StatusPendingDocuments Status = "pending_documents"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Action is a caller-invoked verb mapped by the transition table to a
// status change.
type Action string

const (
	ActionAssign           Action = "assign"
	ActionReview           Action = "review"
	ActionApprove          Action = "approve"
	ActionReject           Action = "reject"
	ActionRequestDocuments Action = "request_documents"
	ActionResubmit         Action = "resubmit"
)

// SystemActor is the sentinel identity recorded for transitions not
// performed by a human user.
const SystemActor = "system"

// WorkflowEntry is one immutable audit record per applied transition.
type WorkflowEntry struct {
	Action          Action
	PerformedBy     string
	PerformedByName string
	Comment         string
	ResultingStatus Status
	Timestamp       time.Time
}

// Case is the central entity: one civil-registration request tracked
// through its lifecycle. Status, AssignedTo, and History are mutated only
// by the workflow engine; everything else is fixed at creation.
type Case struct {
	ID            string
	CaseNumber    string
	Type          CaseType
	Status        Status
	SubmitterData map[string]any
	Documents     []string
	SubmittedBy   string
	AssignedTo    string
	History       []WorkflowEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Version is the storage-level counter backing optimistic
	// check-and-set updates. Never exposed through the API.
	Version int64
}

// NewCase creates a case in the initial "submitted" state with empty history.
func NewCase(id, number string, t CaseType, submitterData map[string]any, documents []string, submittedBy string) Case {
	now := time.Now().UTC()
	return Case{
		ID:            id,
		CaseNumber:    number,
		Type:          t,
		Status:        StatusSubmitted,
		SubmitterData: submitterData,
		Documents:     documents,
		SubmittedBy:   submittedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
}
