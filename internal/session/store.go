// Package session holds per-participant experiment state: identity,
// assigned condition, the append-only response and event logs, the
// pending sync buffer, and the session's ticket board. The store is an
// explicit dependency passed to the components that need it — there is
// no ambient global session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/tud-hci/ticketlab/internal/model"
)

var (
	// ErrNotFound is returned for operations on a participant with no
	// session. Pages that require a session redirect to consent on it.
	ErrNotFound = errors.New("session: not found")

	// ErrExists is returned when Create is called twice for the same
	// participant; sessions are never resumed through Create.
	ErrExists = errors.New("session: already exists")
)

type state struct {
	data    model.SessionData
	buffer  []model.TraceEvent
	tickets []model.TicketWithStatus
}

// Store is the in-memory session state store. Safe for concurrent use;
// every mutation happens under the lock as a function of current state,
// so periodic callbacks and user actions interleave without lost
// updates.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
	now      func() time.Time
}

// NewStore creates an empty store. A nil clock defaults to time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{sessions: make(map[string]*state), now: now}
}

// Create initializes a fresh session with startTime = now and empty
// logs. It is the sole constructor; a second Create for the same
// participant fails with ErrExists.
func (s *Store) Create(participantID string, group model.Group, mode model.TimingMode) (model.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[participantID]; ok {
		return model.SessionData{}, ErrExists
	}

	data := model.SessionData{
		ParticipantID:   participantID,
		Group:           group,
		TimingMode:      mode,
		StartTime:       s.now().UTC(),
		TicketResponses: []model.TicketResponse{},
		TraceEvents:     []model.TraceEvent{},
	}
	s.sessions[participantID] = &state{data: data}
	return data, nil
}

// Get returns a snapshot of the session.
func (s *Store) Get(participantID string) (model.SessionData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[participantID]
	if !ok {
		return model.SessionData{}, false
	}
	return cloneData(st.data), true
}

// Update merges the non-nil fields of upd into the session.
func (s *Store) Update(participantID string, upd model.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[participantID]
	if !ok {
		return ErrNotFound
	}
	if upd.EndTime != nil {
		t := *upd.EndTime
		st.data.EndTime = &t
	}
	return nil
}

// AppendResponse appends a completed ticket response. Append-only.
func (s *Store) AppendResponse(participantID string, resp model.TicketResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[participantID]
	if !ok {
		return ErrNotFound
	}
	st.data.TicketResponses = append(st.data.TicketResponses, resp)
	return nil
}

// AppendEvent appends a trace event to both the session's full event
// log and the pending sync buffer.
func (s *Store) AppendEvent(participantID string, ev model.TraceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[participantID]
	if !ok {
		return ErrNotFound
	}
	st.data.TraceEvents = append(st.data.TraceEvents, ev)
	st.buffer = append(st.buffer, ev)
	return nil
}

// BufferSnapshot returns a copy of the pending sync buffer. The flusher
// delivers the snapshot and, on confirmed success, drops exactly that
// prefix — events appended while delivery is in flight stay pending.
func (s *Store) BufferSnapshot(participantID string) []model.TraceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[participantID]
	if !ok || len(st.buffer) == 0 {
		return nil
	}
	out := make([]model.TraceEvent, len(st.buffer))
	copy(out, st.buffer)
	return out
}

// DropBufferPrefix removes the first n events from the sync buffer,
// called only after confirmed external delivery.
func (s *Store) DropBufferPrefix(participantID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[participantID]
	if !ok || n <= 0 {
		return
	}
	if n >= len(st.buffer) {
		st.buffer = nil
		return
	}
	st.buffer = append([]model.TraceEvent(nil), st.buffer[n:]...)
}

// BufferLen returns the number of pending events for one participant.
func (s *Store) BufferLen(participantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.sessions[participantID]; ok {
		return len(st.buffer)
	}
	return 0
}

// TotalBuffered returns the number of pending events across all
// sessions (exported as a buffer-depth gauge).
func (s *Store) TotalBuffered() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, st := range s.sessions {
		total += len(st.buffer)
	}
	return total
}

// Participants lists all participant ids with a live session.
func (s *Store) Participants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	return out
}

// Clear wipes the participant's session and buffer entirely. Used only
// for an explicit operator-initiated restart.
func (s *Store) Clear(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, participantID)
}

// Tickets returns a snapshot of the session's ticket board.
func (s *Store) Tickets(participantID string) ([]model.TicketWithStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[participantID]
	if !ok {
		return nil, false
	}
	out := make([]model.TicketWithStatus, len(st.tickets))
	copy(out, st.tickets)
	return out, true
}

// UpdateTickets applies fn to the current ticket board under the lock.
// fn must be a pure function of its input; this is what keeps the
// unlock ticker and user-initiated transitions from overwriting each
// other.
func (s *Store) UpdateTickets(participantID string, fn func([]model.TicketWithStatus) []model.TicketWithStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[participantID]
	if !ok {
		return ErrNotFound
	}
	st.tickets = fn(st.tickets)
	return nil
}

func cloneData(d model.SessionData) model.SessionData {
	out := d
	out.TicketResponses = append([]model.TicketResponse(nil), d.TicketResponses...)
	out.TraceEvents = append([]model.TraceEvent(nil), d.TraceEvents...)
	if d.EndTime != nil {
		t := *d.EndTime
		out.EndTime = &t
	}
	return out
}
