package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/tud-hci/ticketlab/internal/model"
)

func goldTicket() model.Ticket {
	return model.Ticket{
		ID: "TCK-1001",
		GoldStandard: model.GoldStandard{
			Path: []model.TicketDecision{
				{NodeID: "category", OptionID: "billing"},
				{NodeID: "billing_type", OptionID: "duplicate"},
				{NodeID: "billing_refund", OptionID: "true_duplicate"},
			},
			OutcomeID: "outcome_refund",
		},
	}
}

func TestScoreExactMatch(t *testing.T) {
	resp := model.TicketResponse{
		TicketID: "TCK-1001",
		Decisions: []model.TicketDecision{
			{NodeID: "category", OptionID: "billing"},
			{NodeID: "billing_type", OptionID: "duplicate"},
			{NodeID: "billing_refund", OptionID: "true_duplicate"},
		},
		OutcomeID:      "outcome_refund",
		TimeToComplete: 90 * time.Second,
	}

	s := Score(resp, goldTicket())
	if s.ErrorRate != 0 {
		t.Fatalf("errorRate = %v, want 0", s.ErrorRate)
	}
	if s.QualityScore != 100 {
		t.Fatalf("qualityScore = %d, want 100", s.QualityScore)
	}
	if s.TimeToClose != 90*time.Second {
		t.Fatalf("timeToClose = %v", s.TimeToClose)
	}
}

func TestScoreOneOfThreeDiverges(t *testing.T) {
	resp := model.TicketResponse{
		TicketID: "TCK-1001",
		Decisions: []model.TicketDecision{
			{NodeID: "category", OptionID: "billing"},
			{NodeID: "billing_type", OptionID: "declined"}, // diverges
			{NodeID: "billing_refund", OptionID: "true_duplicate"},
		},
		OutcomeID: "outcome_refund",
	}

	s := Score(resp, goldTicket())
	if math.Abs(s.ErrorRate-1.0/3.0) > 1e-9 {
		t.Fatalf("errorRate = %v, want 1/3", s.ErrorRate)
	}
	if s.QualityScore != 67 {
		t.Fatalf("qualityScore = %d, want 67", s.QualityScore)
	}
}

func TestScoreSkippedGoldNodeCountsAsError(t *testing.T) {
	resp := model.TicketResponse{
		TicketID: "TCK-1001",
		Decisions: []model.TicketDecision{
			{NodeID: "category", OptionID: "billing"},
		},
		OutcomeID: "outcome_refund",
	}

	s := Score(resp, goldTicket())
	if math.Abs(s.ErrorRate-2.0/3.0) > 1e-9 {
		t.Fatalf("errorRate = %v, want 2/3", s.ErrorRate)
	}
}

func TestScoreWrongOutcomeIsFullError(t *testing.T) {
	resp := model.TicketResponse{
		TicketID: "TCK-1001",
		Decisions: []model.TicketDecision{
			{NodeID: "category", OptionID: "billing"},
			{NodeID: "billing_type", OptionID: "duplicate"},
			{NodeID: "billing_refund", OptionID: "true_duplicate"},
		},
		OutcomeID: "outcome_retry",
	}

	s := Score(resp, goldTicket())
	if s.ErrorRate != 1 {
		t.Fatalf("errorRate = %v, want 1 for wrong outcome", s.ErrorRate)
	}
	if s.QualityScore != 0 {
		t.Fatalf("qualityScore = %d, want 0", s.QualityScore)
	}
}

func TestScoreEmptyGoldPathUsesUnitDenominator(t *testing.T) {
	ticket := model.Ticket{ID: "TCK-X"}
	s := Score(model.TicketResponse{TicketID: "TCK-X"}, ticket)
	if s.ErrorRate != 0 {
		t.Fatalf("errorRate = %v, want 0", s.ErrorRate)
	}
}

func TestAggregateEmpty(t *testing.T) {
	perf := Aggregate(nil, func(string) (model.Ticket, bool) { return model.Ticket{}, false })
	if perf != (model.Performance{}) {
		t.Fatalf("perf = %+v, want zero value", perf)
	}
}

func TestAggregateAverages(t *testing.T) {
	ticket := goldTicket()
	lookup := func(id string) (model.Ticket, bool) { return ticket, id == ticket.ID }

	perfect := model.TicketResponse{
		TicketID:       "TCK-1001",
		Decisions:      ticket.GoldStandard.Path,
		OutcomeID:      "outcome_refund",
		TimeToComplete: 60 * time.Second,
	}
	wrong := model.TicketResponse{
		TicketID:       "TCK-1001",
		OutcomeID:      "outcome_retry",
		TimeToComplete: 120 * time.Second,
	}

	perf := Aggregate([]model.TicketResponse{perfect, wrong}, lookup)
	if perf.TotalTickets != 2 {
		t.Fatalf("totalTickets = %d, want 2", perf.TotalTickets)
	}
	if math.Abs(perf.AverageErrorRate-0.5) > 1e-9 {
		t.Fatalf("avgErrorRate = %v, want 0.5", perf.AverageErrorRate)
	}
	if math.Abs(perf.AverageQualityScore-50) > 1e-9 {
		t.Fatalf("avgQualityScore = %v, want 50", perf.AverageQualityScore)
	}
	if perf.AverageTimeToClose != 90*time.Second {
		t.Fatalf("avgTimeToClose = %v, want 90s", perf.AverageTimeToClose)
	}
}
