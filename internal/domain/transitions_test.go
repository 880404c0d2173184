package domain_test

import (
	"errors"
	"testing"

	"github.com/opencivic/caseflow/internal/domain"
)

func TestTransitions_AllActionsHaveEdges(t *testing.T) {
	actions := []domain.Action{
		domain.ActionAssign,
		domain.ActionReview,
		domain.ActionApprove,
		domain.ActionReject,
		domain.ActionRequestDocuments,
		domain.ActionResubmit,
	}

	for _, action := range actions {
		found := false
		for _, e := range domain.Transitions {
			if e.Action == action {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("action %q has no edge defined", action)
		}
	}
}

func TestTransitions_ValidPaths(t *testing.T) {
	cases := []struct {
		action domain.Action
		src    domain.Status
		dst    domain.Status
	}{
		{domain.ActionAssign, domain.StatusSubmitted, domain.StatusAssigned},
		{domain.ActionReview, domain.StatusAssigned, domain.StatusUnderReview},
		{domain.ActionApprove, domain.StatusUnderReview, domain.StatusApproved},
		{domain.ActionReject, domain.StatusUnderReview, domain.StatusRejected},
		{domain.ActionRequestDocuments, domain.StatusUnderReview, domain.StatusPendingDocuments},
		{domain.ActionResubmit, domain.StatusPendingDocuments, domain.StatusUnderReview},
	}

	for _, tc := range cases {
		edge, ok := domain.EdgeFor(tc.src, tc.action)
		if !ok {
			t.Errorf("missing edge: %q from %q", tc.action, tc.src)
			continue
		}
		if edge.Dst != tc.dst {
			t.Errorf("EdgeFor(%q, %q).Dst = %q, want %q", tc.src, tc.action, edge.Dst, tc.dst)
		}
	}
}

func TestTransitions_TerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	for _, e := range domain.Transitions {
		if e.Src.Terminal() {
			t.Errorf("terminal status %q has outgoing edge %q", e.Src, e.Action)
		}
	}
}

func TestEdgeFor_DenyByOmission(t *testing.T) {
	// A sample of pairs that must not exist.
	invalid := []struct {
		src    domain.Status
		action domain.Action
	}{
		{domain.StatusSubmitted, domain.ActionApprove},
		{domain.StatusSubmitted, domain.ActionReview},
		{domain.StatusAssigned, domain.ActionApprove},
		{domain.StatusApproved, domain.ActionReject},
		{domain.StatusApproved, domain.ActionAssign},
		{domain.StatusRejected, domain.ActionResubmit},
		{domain.StatusUnderReview, domain.ActionAssign},
	}

	for _, tc := range invalid {
		if _, ok := domain.EdgeFor(tc.src, tc.action); ok {
			t.Errorf("unexpected edge: %q from %q should not exist", tc.action, tc.src)
		}
	}
}

func TestEdge_Authorizes(t *testing.T) {
	c := domain.Case{AssignedTo: "u-1", SubmittedBy: "u-2"}

	assign, _ := domain.EdgeFor(domain.StatusSubmitted, domain.ActionAssign)
	review, _ := domain.EdgeFor(domain.StatusAssigned, domain.ActionReview)
	resubmit, _ := domain.EdgeFor(domain.StatusPendingDocuments, domain.ActionResubmit)

	cases := []struct {
		name  string
		edge  domain.Edge
		actor domain.Actor
		want  bool
	}{
		{"registrar may assign", assign, domain.Actor{ID: "u-9", Role: domain.RoleRegistrar}, true},
		{"supervisor may assign", assign, domain.Actor{ID: "u-9", Role: domain.RoleSupervisor}, true},
		{"assistant may not assign", assign, domain.Actor{ID: "u-9", Role: domain.RoleAssistant}, false},
		{"admin may not assign", assign, domain.Actor{ID: "u-9", Role: domain.RoleAdmin}, false},
		{"assigned user may review", review, domain.Actor{ID: "u-1", Role: domain.RoleAssistant}, true},
		{"supervisor may review", review, domain.Actor{ID: "u-9", Role: domain.RoleSupervisor}, true},
		{"other user may not review", review, domain.Actor{ID: "u-3", Role: domain.RoleAssistant}, false},
		{"submitter may resubmit", resubmit, domain.Actor{ID: "u-2", Role: domain.RoleAssistant}, true},
		{"assigned user may resubmit", resubmit, domain.Actor{ID: "u-1", Role: domain.RoleAssistant}, true},
		{"stranger may not resubmit", resubmit, domain.Actor{ID: "u-4", Role: domain.RoleAssistant}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.edge.Authorizes(tc.actor, c); got != tc.want {
				t.Errorf("Authorizes = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEdge_Authorizes_UnassignedCase(t *testing.T) {
	// An empty AssignedTo must never match an actor with an empty ID.
	review, _ := domain.EdgeFor(domain.StatusAssigned, domain.ActionReview)
	c := domain.Case{}
	if review.Authorizes(domain.Actor{ID: "", Role: domain.RoleAssistant}, c) {
		t.Error("empty actor ID must not match empty assignment")
	}
}

func TestReplay_ReproducesStatus(t *testing.T) {
	history := []domain.WorkflowEntry{
		{Action: domain.ActionAssign, ResultingStatus: domain.StatusAssigned},
		{Action: domain.ActionReview, ResultingStatus: domain.StatusUnderReview},
		{Action: domain.ActionRequestDocuments, ResultingStatus: domain.StatusPendingDocuments},
		{Action: domain.ActionResubmit, ResultingStatus: domain.StatusUnderReview},
		{Action: domain.ActionApprove, ResultingStatus: domain.StatusApproved},
	}

	status, err := domain.Replay(history)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if status != domain.StatusApproved {
		t.Errorf("status = %q, want %q", status, domain.StatusApproved)
	}
}

func TestReplay_EmptyHistoryIsSubmitted(t *testing.T) {
	status, err := domain.Replay(nil)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if status != domain.StatusSubmitted {
		t.Errorf("status = %q, want %q", status, domain.StatusSubmitted)
	}
}

func TestReplay_IllegalEntry(t *testing.T) {
	history := []domain.WorkflowEntry{
		{Action: domain.ActionApprove, ResultingStatus: domain.StatusApproved},
	}

	_, err := domain.Replay(history)
	var illegalErr *domain.IllegalTransitionError
	if !errors.As(err, &illegalErr) {
		t.Fatalf("expected IllegalTransitionError, got %v", err)
	}
}

func TestReplay_CorruptEntry(t *testing.T) {
	history := []domain.WorkflowEntry{
		{Action: domain.ActionAssign, ResultingStatus: domain.StatusApproved},
	}

	_, err := domain.Replay(history)
	var corruptErr *domain.HistoryCorruptError
	if !errors.As(err, &corruptErr) {
		t.Fatalf("expected HistoryCorruptError, got %v", err)
	}
	if corruptErr.Index != 0 {
		t.Errorf("Index = %d, want 0", corruptErr.Index)
	}
}
