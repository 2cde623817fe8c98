package tree

import (
	"testing"

	"github.com/tud-hci/ticketlab/internal/model"
)

func testTree(t *testing.T) *Tree {
	t.Helper()
	tr, err := New(model.DecisionTree{
		RootID: "category",
		Nodes: map[string]model.TreeNode{
			"category": {
				ID: "category", Type: model.NodeDecision, Prompt: "What type of issue is this?",
				Options: []model.TreeOption{
					{ID: "billing", Label: "Billing", Next: "billing_type"},
					{ID: "account", Label: "Account", Next: "outcome_unlock"},
				},
			},
			"billing_type": {
				ID: "billing_type", Type: model.NodeDecision, Prompt: "What kind of billing issue?",
				Options: []model.TreeOption{
					{ID: "duplicate", Label: "Duplicate charge", Next: "outcome_refund"},
					{ID: "declined", Label: "Payment declined", Next: "outcome_retry"},
				},
			},
			"outcome_refund": {
				ID: "outcome_refund", Type: model.NodeOutcome, Prompt: "Process refund",
				Fields: []model.TreeField{
					{ID: "amount", Label: "Refund amount", Type: model.FieldNumber, Required: true},
					{ID: "note", Label: "Internal note", Type: model.FieldTextarea},
				},
			},
			"outcome_retry":  {ID: "outcome_retry", Type: model.NodeOutcome, Prompt: "Ask customer to retry"},
			"outcome_unlock": {ID: "outcome_unlock", Type: model.NodeOutcome, Prompt: "Unlock account"},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestNewRejectsDanglingOption(t *testing.T) {
	_, err := New(model.DecisionTree{
		RootID: "root",
		Nodes: map[string]model.TreeNode{
			"root": {ID: "root", Type: model.NodeDecision, Prompt: "?",
				Options: []model.TreeOption{{ID: "a", Label: "A", Next: "missing"}}},
		},
	})
	if err == nil {
		t.Fatal("expected error for dangling option reference")
	}
}

func TestNewRejectsCycle(t *testing.T) {
	_, err := New(model.DecisionTree{
		RootID: "a",
		Nodes: map[string]model.TreeNode{
			"a": {ID: "a", Type: model.NodeDecision, Prompt: "?",
				Options: []model.TreeOption{{ID: "x", Label: "X", Next: "b"}}},
			"b": {ID: "b", Type: model.NodeDecision, Prompt: "?",
				Options: []model.TreeOption{{ID: "y", Label: "Y", Next: "a"}}},
		},
	})
	if err == nil {
		t.Fatal("expected error for cyclic graph")
	}
}

func TestBuildPathFull(t *testing.T) {
	tr := testTree(t)
	p := tr.BuildPath(map[string]string{
		"category":     "billing",
		"billing_type": "duplicate",
	})
	if !p.Complete() {
		t.Fatal("expected complete path")
	}
	if p.OutcomeID != "outcome_refund" {
		t.Fatalf("outcome = %q, want outcome_refund", p.OutcomeID)
	}
	if got := len(p.Nodes); got != 3 {
		t.Fatalf("len(nodes) = %d, want 3", got)
	}
}

func TestBuildPathStopsAtUnselectedDecision(t *testing.T) {
	tr := testTree(t)
	p := tr.BuildPath(map[string]string{"category": "billing"})
	if p.Complete() {
		t.Fatal("expected incomplete path")
	}
	if got := len(p.Nodes); got != 2 {
		t.Fatalf("len(nodes) = %d, want 2", got)
	}
}

func TestBuildPathIgnoresUnknownOption(t *testing.T) {
	tr := testTree(t)
	p := tr.BuildPath(map[string]string{"category": "nonsense"})
	if p.Complete() {
		t.Fatal("expected incomplete path")
	}
	if got := len(p.Nodes); got != 1 {
		t.Fatalf("len(nodes) = %d, want 1", got)
	}
}

func TestBuildPathStopsAtDanglingNext(t *testing.T) {
	// An unvalidated tree with a dangling reference must stop the walk,
	// not panic: the caller sees "no outcome yet".
	tr := &Tree{
		rootID: "root",
		nodes: map[string]model.TreeNode{
			"root": {ID: "root", Type: model.NodeDecision, Prompt: "?",
				Options: []model.TreeOption{{ID: "a", Label: "A", Next: "missing"}}},
		},
	}
	p := tr.BuildPath(map[string]string{"root": "a"})
	if p.Complete() {
		t.Fatal("expected incomplete path")
	}
	if got := len(p.Nodes); got != 1 {
		t.Fatalf("len(nodes) = %d, want 1", got)
	}
}

func TestPruneSelectionsDropsUnreachable(t *testing.T) {
	tr := testTree(t)
	// billing_type selection is stale once category switches to account.
	pruned := tr.PruneSelections(map[string]string{
		"category":     "account",
		"billing_type": "duplicate",
	})
	if len(pruned) != 1 || pruned["category"] != "account" {
		t.Fatalf("pruned = %v, want only category=account", pruned)
	}
}

func TestPruneSelectionsIdempotent(t *testing.T) {
	tr := testTree(t)
	cases := []map[string]string{
		{},
		{"category": "billing"},
		{"category": "billing", "billing_type": "declined"},
		{"category": "account", "billing_type": "duplicate"},
		{"unknown": "x"},
	}
	for _, sel := range cases {
		once := tr.PruneSelections(sel)
		twice := tr.PruneSelections(once)
		if len(once) != len(twice) {
			t.Fatalf("prune not idempotent for %v: %v vs %v", sel, once, twice)
		}
		for k, v := range once {
			if twice[k] != v {
				t.Fatalf("prune not idempotent for %v: %v vs %v", sel, once, twice)
			}
		}
	}
}
