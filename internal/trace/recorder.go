// Package trace implements the event instrumentation pipeline: typed
// event recording with a named sampling policy, per-session buffering,
// and periodic batch delivery to the research store with retained-on-
// failure semantics.
package trace

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/session"
)

// SamplingPolicy decides which occurrences of an event type are kept.
// Very-high-frequency event types carry a rate below 1 to bound data
// volume; unlisted types are always recorded. The randomness source is
// injectable so tests can pin the decision.
type SamplingPolicy struct {
	Rates map[model.EventType]float64
	Rand  func() float64 // uniform [0,1); nil defaults to math/rand
}

// DefaultSampling keeps ~1% of pointer movements and ~10% of pointer
// clicks, matching the original study's data-volume budget.
func DefaultSampling() SamplingPolicy {
	return SamplingPolicy{
		Rates: map[model.EventType]float64{
			model.EventMouseMove:  0.01,
			model.EventMouseClick: 0.10,
		},
	}
}

// Keep reports whether an occurrence of typ should be recorded.
func (p SamplingPolicy) Keep(typ model.EventType) bool {
	rate, ok := p.Rates[typ]
	if !ok {
		return true
	}
	r := p.Rand
	if r == nil {
		r = rand.Float64
	}
	return r() < rate
}

// Recorder constructs trace events and appends them to the session's
// event log and sync buffer. Recording never fails loudly: a missing
// session or a sampled-out event is simply not recorded.
type Recorder struct {
	store    *session.Store
	sampling SamplingPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecorder creates a Recorder. A nil clock defaults to time.Now.
func NewRecorder(store *session.Store, sampling SamplingPolicy, logger *slog.Logger, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: store, sampling: sampling, logger: logger, now: now}
}

// Record builds a TraceEvent from the payload, stamps the current
// timestamp and participant id, and appends it. Returns whether the
// event was recorded (false when sampled out or the session is gone).
func (r *Recorder) Record(participantID string, payload model.EventPayload) bool {
	typ := payload.EventType()
	if !r.sampling.Keep(typ) {
		return false
	}

	ev := model.TraceEvent{
		ID:            uuid.New(),
		Type:          typ,
		Timestamp:     r.now().UTC(),
		ParticipantID: participantID,
		Data:          payload,
	}
	if err := r.store.AppendEvent(participantID, ev); err != nil {
		r.logger.Debug("trace: event dropped, no session", "participant_id", participantID, "event_type", typ)
		return false
	}
	return true
}
