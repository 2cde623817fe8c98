// Package agent produces the scripted resolution replay shown to
// participants in the agent-assisted conditions. The steps replay the
// ticket's canonical path; there is no model behind them.
package agent

import (
	"fmt"

	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/tree"
)

// Steps builds the step sequence for one ticket: an analysis step, one
// decision step per canonical path entry, and a response draft step.
// All steps start pending; the step-confirmed condition records a
// verdict per step, the autonomous condition accepts them wholesale.
func Steps(t *tree.Tree, ticket model.Ticket) []model.AgentStep {
	gold := ticket.GoldStandard
	steps := make([]model.AgentStep, 0, len(gold.Path)+2)

	steps = append(steps, model.AgentStep{
		StepNumber: 1,
		StepName:   "Analyze Customer Issue",
		Decision:   fmt.Sprintf("Customer: %s - Issue: %s", ticket.Customer, ticket.Subject),
		Reasoning: fmt.Sprintf(
			"Based on the ticket description, the customer is experiencing %q. This requires careful attention to ensure proper resolution.",
			ticket.Subject),
		Status:   model.AgentStepPending,
		StepType: model.AgentStepAnalysis,
	})

	for i, d := range gold.Path {
		stepName := fmt.Sprintf("Decision %d", i+1)
		if node, ok := t.Node(d.NodeID); ok && node.Prompt != "" {
			stepName = node.Prompt
		}
		label := d.OptionID
		if opt, ok := t.Option(d.NodeID, d.OptionID); ok {
			label = opt.Label
		}
		steps = append(steps, model.AgentStep{
			StepNumber:       i + 2,
			StepName:         stepName,
			Decision:         label,
			Reasoning:        fmt.Sprintf("Selected %q based on the ticket context and policy.", label),
			Status:           model.AgentStepPending,
			StepType:         model.AgentStepDecision,
			DecisionNodeID:   d.NodeID,
			DecisionOptionID: d.OptionID,
		})
	}

	steps = append(steps, model.AgentStep{
		StepNumber: len(gold.Path) + 2,
		StepName:   "Draft Customer Response",
		Decision:   "Response drafted",
		Reasoning:  "I've prepared a professional and empathetic response addressing the customer's concerns.",
		Status:     model.AgentStepPending,
		StepType:   model.AgentStepResponse,
	})

	return steps
}

// CompleteResponse returns the finished customer reply used by the
// autonomous condition.
func CompleteResponse(ticket model.Ticket) string {
	return ticket.GoldStandard.ResponseTemplate
}
