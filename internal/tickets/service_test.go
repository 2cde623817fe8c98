package tickets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/tree"
)

func testCatalog() []model.Ticket {
	return []model.Ticket{
		{ID: "TCK-1001", Subject: "Charged twice"},
		{ID: "TCK-1002", Subject: "Order never arrived", ScheduledAppearance: 300},
	}
}

// fixedClock returns a clock pinned to start+offset.
func fixedClock(start time.Time, offset time.Duration) func() time.Time {
	return func() time.Time { return start.Add(offset) }
}

func TestInitializeImmediateAllAvailable(t *testing.T) {
	start := time.Now()
	svc := New(testCatalog(), fixedClock(start, 0))

	for _, tk := range svc.Initialize(model.TimingImmediate, start) {
		assert.Equal(t, model.StatusAvailable, tk.Status, tk.ID)
	}
}

func TestInitializeStaggeredLocksScheduled(t *testing.T) {
	start := time.Now()
	svc := New(testCatalog(), fixedClock(start, 0))

	board := svc.Initialize(model.TimingStaggered, start)
	assert.Equal(t, model.StatusAvailable, board[0].Status)
	assert.Equal(t, model.StatusLocked, board[1].Status)
}

func TestUnlockAtThreshold(t *testing.T) {
	start := time.Now()

	// 299s elapsed: still locked.
	svc := New(testCatalog(), fixedClock(start, 299*time.Second))
	board := svc.Initialize(model.TimingStaggered, start)
	board = svc.CheckUnlocks(board, start)
	assert.Equal(t, model.StatusLocked, board[1].Status)

	// 300s elapsed: available.
	svc = New(testCatalog(), fixedClock(start, 300*time.Second))
	board = svc.CheckUnlocks(board, start)
	assert.Equal(t, model.StatusAvailable, board[1].Status)

	// Repeated checks never regress.
	board = svc.CheckUnlocks(board, start)
	assert.Equal(t, model.StatusAvailable, board[1].Status)
}

func TestTransitionUnknownTicketIsNoop(t *testing.T) {
	start := time.Now()
	svc := New(testCatalog(), fixedClock(start, 0))
	board := svc.Initialize(model.TimingImmediate, start)

	got := svc.Transition(board, "TCK-9999", model.StatusInProgress, time.Time{})
	assert.Equal(t, board, got)
}

func TestTransitionStampsStartedAtOnce(t *testing.T) {
	start := time.Now()
	svc := New(testCatalog(), fixedClock(start, 0))
	board := svc.Initialize(model.TimingImmediate, start)

	first := start.Add(10 * time.Second)
	board = svc.Transition(board, "TCK-1001", model.StatusInProgress, first)
	require.NotNil(t, board[0].StartedAt)
	assert.Equal(t, first, *board[0].StartedAt)

	// Navigate back, then re-open later: startedAt must not move.
	board = svc.Transition(board, "TCK-1001", model.StatusAvailable, start.Add(20*time.Second))
	board = svc.Transition(board, "TCK-1001", model.StatusInProgress, start.Add(30*time.Second))
	assert.Equal(t, first, *board[0].StartedAt)
}

func TestTransitionCompletedIsTerminal(t *testing.T) {
	start := time.Now()
	svc := New(testCatalog(), fixedClock(start, 0))
	board := svc.Initialize(model.TimingImmediate, start)

	board = svc.Transition(board, "TCK-1001", model.StatusInProgress, time.Time{})
	board = svc.Transition(board, "TCK-1001", model.StatusCompleted, time.Time{})
	require.NotNil(t, board[0].CompletedAt)

	reopened := svc.Transition(board, "TCK-1001", model.StatusInProgress, time.Time{})
	assert.Equal(t, board, reopened)
}

func TestTransitionLockedCannotBeSelected(t *testing.T) {
	start := time.Now()
	svc := New(testCatalog(), fixedClock(start, 0))
	board := svc.Initialize(model.TimingStaggered, start)

	got := svc.Transition(board, "TCK-1002", model.StatusInProgress, time.Time{})
	assert.Equal(t, model.StatusLocked, got[1].Status)
}

func validationTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr, err := tree.New(model.DecisionTree{
		RootID: "d1",
		Nodes: map[string]model.TreeNode{
			"d1": {ID: "d1", Type: model.NodeDecision, Prompt: "First?",
				Options: []model.TreeOption{{ID: "a", Label: "A", Next: "o1"}}},
			"o1": {ID: "o1", Type: model.NodeOutcome, Prompt: "Done",
				Fields: []model.TreeField{
					{ID: "amount", Label: "Refund amount", Type: model.FieldNumber, Required: true},
				}},
		},
	})
	require.NoError(t, err)
	return tr
}

func normalizeTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr, err := tree.New(model.DecisionTree{
		RootID: "d1",
		Nodes: map[string]model.TreeNode{
			"d1": {ID: "d1", Type: model.NodeDecision, Prompt: "Category?",
				Options: []model.TreeOption{
					{ID: "billing", Label: "Billing", Next: "d2"},
					{ID: "shipping", Label: "Shipping", Next: "o2"},
				}},
			"d2": {ID: "d2", Type: model.NodeDecision, Prompt: "Refund?",
				Options: []model.TreeOption{{ID: "yes", Label: "Issue refund", Next: "o1"}}},
			"o1": {ID: "o1", Type: model.NodeOutcome, Prompt: "Refund issued"},
			"o2": {ID: "o2", Type: model.NodeOutcome, Prompt: "Replacement sent"},
		},
	})
	require.NoError(t, err)
	return tr
}

func TestNormalizeResponse(t *testing.T) {
	tr := normalizeTree(t)

	t.Run("claimed outcome replaced by walked outcome", func(t *testing.T) {
		got := NormalizeResponse(tr, model.TicketResponse{
			TicketID:  "TCK-1001",
			Decisions: []model.TicketDecision{{NodeID: "d1", OptionID: "shipping"}},
			OutcomeID: "o1",
		})
		assert.Equal(t, "o2", got.OutcomeID)
	})

	t.Run("stale off-path selections pruned", func(t *testing.T) {
		got := NormalizeResponse(tr, model.TicketResponse{
			TicketID: "TCK-1001",
			Decisions: []model.TicketDecision{
				{NodeID: "d1", OptionID: "shipping"},
				// Stale pick left behind after switching away from billing.
				{NodeID: "d2", OptionID: "yes"},
			},
		})
		require.Len(t, got.Decisions, 1)
		assert.Equal(t, "d1", got.Decisions[0].NodeID)
		assert.Equal(t, "Shipping", got.Decisions[0].OptionLabel)
		assert.Equal(t, "o2", got.OutcomeID)
	})

	t.Run("incomplete route yields empty outcome", func(t *testing.T) {
		got := NormalizeResponse(tr, model.TicketResponse{
			TicketID:  "TCK-1001",
			Decisions: []model.TicketDecision{{NodeID: "d1", OptionID: "billing"}},
			OutcomeID: "o1",
		})
		assert.Empty(t, got.OutcomeID)
	})
}

func TestValidateResponse(t *testing.T) {
	tr := validationTree(t)

	t.Run("incomplete path blocks submission", func(t *testing.T) {
		errs := ValidateResponse(tr, model.TicketResponse{TicketID: "TCK-1001"})
		require.NotEmpty(t, errs)
	})

	t.Run("missing required field reported by label", func(t *testing.T) {
		errs := ValidateResponse(tr, model.TicketResponse{
			TicketID:         "TCK-1001",
			Decisions:        []model.TicketDecision{{NodeID: "d1", OptionID: "a"}},
			CustomerResponse: "We have refunded you.",
		})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "Refund amount")
	})

	t.Run("valid response passes", func(t *testing.T) {
		errs := ValidateResponse(tr, model.TicketResponse{
			TicketID:         "TCK-1001",
			Decisions:        []model.TicketDecision{{NodeID: "d1", OptionID: "a"}},
			Fields:           map[string]string{"amount": "49.99"},
			CustomerResponse: "We have refunded you.",
		})
		assert.Empty(t, errs)
	})
}
