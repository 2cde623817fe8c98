// Package tickets manages session-scoped ticket state: deriving per-
// session instances from the static catalog, the status state machine,
// and timing-gated unlocks in staggered mode.
package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/tree"
)

// Service derives and updates ticket state. All update methods are pure
// functions of the current list so interleaved callers (unlock ticker,
// user transitions) can apply them as functional updates without lost
// writes. The clock is injected for simulated-time tests.
type Service struct {
	catalog []model.Ticket
	now     func() time.Time
}

// New creates a Service over the given catalog. A nil clock defaults to
// time.Now.
func New(catalog []model.Ticket, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{catalog: catalog, now: now}
}

// Catalog returns the static ticket list.
func (s *Service) Catalog() []model.Ticket { return s.catalog }

// ByID looks up a catalog ticket.
func (s *Service) ByID(id string) (model.Ticket, bool) {
	for _, t := range s.catalog {
		if t.ID == id {
			return t, true
		}
	}
	return model.Ticket{}, false
}

// Initialize derives the session's ticket board. In immediate mode, or
// for tickets without a scheduled appearance, every ticket starts
// available; in staggered mode a ticket whose offset has not elapsed
// yet starts locked.
func (s *Service) Initialize(mode model.TimingMode, sessionStart time.Time) []model.TicketWithStatus {
	elapsed := s.now().Sub(sessionStart)

	out := make([]model.TicketWithStatus, len(s.catalog))
	for i, t := range s.catalog {
		status := model.StatusAvailable
		if mode == model.TimingStaggered && t.ScheduledAppearance > 0 {
			if elapsed < time.Duration(t.ScheduledAppearance)*time.Second {
				status = model.StatusLocked
			}
		}
		out[i] = model.TicketWithStatus{Ticket: t, Status: status}
	}
	return out
}

// CheckUnlocks flips locked tickets whose scheduled appearance has
// passed to available. Safe to call repeatedly; an unlocked ticket is
// never regressed to locked.
func (s *Service) CheckUnlocks(ts []model.TicketWithStatus, sessionStart time.Time) []model.TicketWithStatus {
	elapsed := s.now().Sub(sessionStart)

	out := make([]model.TicketWithStatus, len(ts))
	for i, t := range ts {
		if t.Status == model.StatusLocked && t.ScheduledAppearance > 0 &&
			elapsed >= time.Duration(t.ScheduledAppearance)*time.Second {
			t.Status = model.StatusAvailable
		}
		out[i] = t
	}
	return out
}

// legalTransitions enumerates the only allowed status changes. Locked
// tickets unlock through CheckUnlocks, never through Transition.
var legalTransitions = map[model.TicketStatus]map[model.TicketStatus]bool{
	model.StatusAvailable:  {model.StatusInProgress: true},
	model.StatusInProgress: {model.StatusAvailable: true, model.StatusCompleted: true},
}

// Transition applies one legal status change to the named ticket and
// returns the updated list. An unknown ticket id or an illegal
// transition returns the input unchanged — the UI may race with the
// unlock timer, so neither is an error. startedAt is stamped only on
// the first entry into in-progress; completedAt on completion.
func (s *Service) Transition(ts []model.TicketWithStatus, id string, status model.TicketStatus, at time.Time) []model.TicketWithStatus {
	if at.IsZero() {
		at = s.now()
	}

	out := make([]model.TicketWithStatus, len(ts))
	for i, t := range ts {
		if t.ID == id && legalTransitions[t.Status][status] {
			t.Status = status
			switch status {
			case model.StatusInProgress:
				if t.StartedAt == nil {
					ts := at
					t.StartedAt = &ts
				}
			case model.StatusCompleted:
				ts := at
				t.CompletedAt = &ts
			}
		}
		out[i] = t
	}
	return out
}

// NormalizeResponse canonicalizes a submitted resolution against the
// decision tree. Selections that are no longer reachable from the root
// are pruned, option labels are restamped from the tree, and the
// outcome id is the one the walked route actually reaches — the
// client's claimed outcome is never trusted. An incomplete route
// yields an empty outcome id, which ValidateResponse rejects.
func NormalizeResponse(tr *tree.Tree, resp model.TicketResponse) model.TicketResponse {
	selections := make(map[string]string, len(resp.Decisions))
	for _, d := range resp.Decisions {
		selections[d.NodeID] = d.OptionID
	}
	pruned := tr.PruneSelections(selections)
	path := tr.BuildPath(pruned)

	decisions := make([]model.TicketDecision, 0, len(pruned))
	for _, n := range path.Nodes {
		optID, ok := pruned[n.ID]
		if !ok {
			continue
		}
		d := model.TicketDecision{NodeID: n.ID, OptionID: optID}
		if opt, found := tr.Option(n.ID, optID); found {
			d.OptionLabel = opt.Label
		}
		decisions = append(decisions, d)
	}
	resp.Decisions = decisions
	resp.OutcomeID = path.OutcomeID
	return resp
}

// ValidateResponse checks a submitted resolution against the decision
// tree: the selected route must reach an outcome, every required
// outcome field must be filled, and the customer-facing reply must be
// non-empty. Returns field-level messages; an empty slice means valid.
func ValidateResponse(tr *tree.Tree, resp model.TicketResponse) []string {
	var errs []string

	if resp.TicketID == "" {
		errs = append(errs, "ticket id is required")
	}

	selections := make(map[string]string, len(resp.Decisions))
	for _, d := range resp.Decisions {
		selections[d.NodeID] = d.OptionID
	}
	path := tr.BuildPath(selections)
	if !path.Complete() {
		last := "the first step"
		if n := len(path.Nodes); n > 0 {
			last = fmt.Sprintf("%q", path.Nodes[n-1].Prompt)
		}
		errs = append(errs, fmt.Sprintf("decision path is incomplete: stopped at %s", last))
		return errs
	}

	outcome := path.Nodes[len(path.Nodes)-1]
	for _, f := range outcome.Fields {
		if !f.Required {
			continue
		}
		if strings.TrimSpace(resp.Fields[f.ID]) == "" {
			errs = append(errs, fmt.Sprintf("%s is required", f.Label))
		}
	}

	if strings.TrimSpace(resp.CustomerResponse) == "" {
		errs = append(errs, "customer response is required")
	}

	return errs
}
