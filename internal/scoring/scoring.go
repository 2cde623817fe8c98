// Package scoring compares completed ticket responses against gold-
// standard resolution paths. The metric is a normalized per-node
// mismatch count rather than a semantic diff: the decision tree makes
// valid responses walk a deterministic path, which keeps scores
// reproducible and auditable.
package scoring

import (
	"math"
	"time"

	"github.com/tud-hci/ticketlab/internal/model"
)

// Score derives the per-response metric. A decision point counts as an
// error when the response chose a different option at a gold-standard
// node, or skipped that node entirely; the denominator is the gold-
// standard path length. A response that reached a different outcome
// than the gold standard scores a full error rate regardless of
// per-node overlap.
func Score(resp model.TicketResponse, ticket model.Ticket) model.TicketScore {
	gold := ticket.GoldStandard

	chosen := make(map[string]string, len(resp.Decisions))
	for _, d := range resp.Decisions {
		chosen[d.NodeID] = d.OptionID
	}

	errors := 0
	for _, g := range gold.Path {
		if chosen[g.NodeID] != g.OptionID {
			errors++
		}
	}

	denom := len(gold.Path)
	if denom < 1 {
		denom = 1
	}
	errorRate := float64(errors) / float64(denom)

	if gold.OutcomeID != "" && resp.OutcomeID != gold.OutcomeID {
		errorRate = 1
	}

	return model.TicketScore{
		TicketID:                 resp.TicketID,
		DistanceFromGoldStandard: errorRate,
		ErrorRate:                errorRate,
		QualityScore:             int(math.Round((1 - errorRate) * 100)),
		TimeToClose:              resp.TimeToComplete,
	}
}

// Lookup resolves a catalog ticket by id for aggregation.
type Lookup func(id string) (model.Ticket, bool)

// Aggregate averages scores over all responses whose ticket resolves
// through lookup. An empty input (or one with no resolvable tickets)
// yields the zero Performance — never a division by zero.
func Aggregate(responses []model.TicketResponse, lookup Lookup) model.Performance {
	var perf model.Performance
	var sumDistance, sumError, sumQuality float64
	var sumTime float64

	for _, resp := range responses {
		ticket, ok := lookup(resp.TicketID)
		if !ok {
			continue
		}
		s := Score(resp, ticket)
		perf.TotalTickets++
		sumDistance += s.DistanceFromGoldStandard
		sumError += s.ErrorRate
		sumQuality += float64(s.QualityScore)
		sumTime += float64(s.TimeToClose)
	}

	if perf.TotalTickets == 0 {
		return perf
	}

	n := float64(perf.TotalTickets)
	perf.AverageDistanceFromGoldStandard = sumDistance / n
	perf.AverageErrorRate = sumError / n
	perf.AverageQualityScore = sumQuality / n
	perf.AverageTimeToClose = time.Duration(sumTime / n)
	return perf
}
