package domain

// Edge defines one legal state change: an action moves a case from Src to
// Dst, with the authorization and assignee rules attached to it. The table
// below is the single authority for legality and authorization; the engine
// contains no transition logic outside of it.
type Edge struct {
	Action Action
	Src    Status
	Dst    Status

	// Roles always authorized to perform the action.
	Roles []Role

	// AllowAssigned authorizes the case's currently assigned user
	// regardless of role.
	AllowAssigned bool

	// AllowSubmitter authorizes the identity that submitted the case.
	AllowSubmitter bool

	// RequiresAssignee demands an assignee target on the request.
	RequiresAssignee bool

	// ClearsAssignee removes the current assignment on transition.
	ClearsAssignee bool
}

// Transitions defines all legal state changes in the case workflow. The
// graph is shared by every case type. Pairs absent from this table are
// illegal by omission.
var Transitions = []Edge{
	{
		Action:           ActionAssign,
		Src:              StatusSubmitted,
		Dst:              StatusAssigned,
		Roles:            []Role{RoleRegistrar, RoleSupervisor},
		RequiresAssignee: true,
	},
	{
		Action:        ActionReview,
		Src:           StatusAssigned,
		Dst:           StatusUnderReview,
		Roles:         []Role{RoleSupervisor},
		AllowAssigned: true,
	},
	{
		Action:        ActionApprove,
		Src:           StatusUnderReview,
		Dst:           StatusApproved,
		Roles:         []Role{RoleSupervisor},
		AllowAssigned: true,
	},
	{
		Action:        ActionReject,
		Src:           StatusUnderReview,
		Dst:           StatusRejected,
		Roles:         []Role{RoleSupervisor},
		AllowAssigned: true,
	},
	{
		Action:        ActionRequestDocuments,
		Src:           StatusUnderReview,
		Dst:           StatusPendingDocuments,
		Roles:         []Role{RoleSupervisor},
		AllowAssigned: true,
	},
	{
		Action:         ActionResubmit,
		Src:            StatusPendingDocuments,
		Dst:            StatusUnderReview,
		Roles:          []Role{RoleSupervisor},
		AllowAssigned:  true,
		AllowSubmitter: true,
	},
}

// EdgeFor looks up the edge for the given (status, action) pair.
func EdgeFor(current Status, action Action) (Edge, bool) {
	for _, e := range Transitions {
		if e.Src == current && e.Action == action {
			return e, true
		}
	}
	return Edge{}, false
}

// Authorizes reports whether the actor may traverse the edge on the given
// case.
func (e Edge) Authorizes(actor Actor, c Case) bool {
	for _, r := range e.Roles {
		if actor.Role == r {
			return true
		}
	}
	if e.AllowAssigned && c.AssignedTo != "" && actor.ID == c.AssignedTo {
		return true
	}
	if e.AllowSubmitter && c.SubmittedBy != "" && actor.ID == c.SubmittedBy {
		return true
	}
	return false
}

// Replay walks the history from the initial "submitted" status through the
// transition table and returns the resulting status. It fails if any entry
// is not a legal transition or disagrees with its recorded resulting
// status; history is the single source of truth for the current status.
func Replay(history []WorkflowEntry) (Status, error) {
	current := StatusSubmitted
	for i, entry := range history {
		edge, ok := EdgeFor(current, entry.Action)
		if !ok {
			return "", &IllegalTransitionError{Action: entry.Action, Current: current}
		}
		if edge.Dst != entry.ResultingStatus {
			return "", &HistoryCorruptError{Index: i, Recorded: entry.ResultingStatus, Expected: edge.Dst}
		}
		current = edge.Dst
	}
	return current, nil
}
