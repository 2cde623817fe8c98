package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tud-hci/ticketlab/internal/model"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.NotNil(t, c.Tree)
	require.NotEmpty(t, c.Tickets)
	require.NotEmpty(t, c.Survey.Questions)
}

func TestEveryGoldPathReachesItsOutcome(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	for _, tk := range c.Tickets {
		selections := make(map[string]string, len(tk.GoldStandard.Path))
		for _, d := range tk.GoldStandard.Path {
			selections[d.NodeID] = d.OptionID
		}

		path := c.Tree.BuildPath(selections)
		require.True(t, path.Complete(), "ticket %s gold path incomplete", tk.ID)
		require.Equal(t, tk.GoldStandard.OutcomeID, path.OutcomeID, "ticket %s", tk.ID)
	}
}

func TestStaggeredTicketsHaveDistinctOffsets(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	seen := map[int]string{}
	for _, tk := range c.Tickets {
		if tk.ScheduledAppearance == 0 {
			continue
		}
		if prev, dup := seen[tk.ScheduledAppearance]; dup {
			t.Errorf("tickets %s and %s share appearance offset %d", prev, tk.ID, tk.ScheduledAppearance)
		}
		seen[tk.ScheduledAppearance] = tk.ID
	}
	require.NotEmpty(t, seen, "expected at least one time-gated ticket")
}

func TestSurveyCoversCoreScales(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	byID := make(map[string]model.SurveyQuestion, len(c.Survey.Questions))
	for _, q := range c.Survey.Questions {
		byID[q.ID] = q
	}

	for _, id := range []string{"perceived_stress", "decision_confidence", "trust_in_system"} {
		q, ok := byID[id]
		require.True(t, ok, "missing question %s", id)
		require.Equal(t, model.SurveyLikert, q.Type)
		require.True(t, q.Required)
	}
}
