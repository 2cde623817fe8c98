package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a trace event. The set is closed: every recorded
// event carries one of these tags, and payload structs are paired with
// their tag at compile time via EventPayload.
type EventType string

const (
	// Experiment lifecycle.
	EventExperimentStarted     EventType = "experiment_started"
	EventExperimentPaused      EventType = "experiment_paused"
	EventExperimentResumed     EventType = "experiment_resumed"
	EventExperimentTimeExpired EventType = "experiment_time_expired"

	// Ticket lifecycle.
	EventTicketOpened       EventType = "ticket_opened"
	EventTicketClosed       EventType = "ticket_closed"
	EventTicketViewDuration EventType = "ticket_view_duration"
	EventTicketUnlocked     EventType = "ticket_unlocked"

	// Decisions.
	EventDecisionMade    EventType = "decision_made"
	EventDecisionChanged EventType = "decision_changed"

	// Mouse behaviour (sampled).
	EventMouseClick EventType = "mouse_click"
	EventMouseMove  EventType = "mouse_move"

	// Customer response.
	EventCustomerResponseSent EventType = "customer_response_sent"

	// Scripted agent.
	EventAgentStarted      EventType = "ai_agent_started"
	EventAgentCompleted    EventType = "ai_agent_completed"
	EventAgentStepAccepted EventType = "ai_step_accepted"
	EventAgentStepRejected EventType = "ai_step_rejected"
	EventAgentStepEdited   EventType = "ai_step_edited"

	// Chat assistant.
	EventChatMessageSent     EventType = "chat_message_sent"
	EventChatMessageReceived EventType = "chat_message_received"

	// Knowledge base.
	EventKnowledgeOpened   EventType = "knowledge_base_opened"
	EventKnowledgeSearched EventType = "knowledge_base_searched"

	// Survey.
	EventSurveySubmitted EventType = "survey_submitted"

	// Navigation and timing.
	EventPageViewed   EventType = "page_viewed"
	EventTimerWarning EventType = "timer_warning"

	// Data sync.
	EventDataSynced     EventType = "data_synced"
	EventDataSyncFailed EventType = "data_sync_failed"

	// Errors.
	EventFormValidationError EventType = "form_validation_error"
	EventApplicationError    EventType = "application_error"
)

// EventPayload is implemented by every typed event payload. Pairing the
// payload shape with its tag here means a new event type cannot be
// recorded without defining its payload.
type EventPayload interface {
	EventType() EventType
}

// TraceEvent is a single timestamped record of participant or system
// activity. Append-only; never mutated after recording.
type TraceEvent struct {
	ID            uuid.UUID    `json:"id"`
	Type          EventType    `json:"type"`
	Timestamp     time.Time    `json:"timestamp"`
	ParticipantID string       `json:"participantId,omitempty"`
	Data          EventPayload `json:"data"`
}

// ── Typed payloads ─────────────────────────────────────────────────────

type ExperimentStartedPayload struct {
	ParticipantID string     `json:"participantId"`
	Group         Group      `json:"group"`
	TimingMode    TimingMode `json:"timingMode"`
}

func (ExperimentStartedPayload) EventType() EventType { return EventExperimentStarted }

type ExperimentTimeExpiredPayload struct {
	CompletedTickets int `json:"completedTickets"`
	TotalTickets     int `json:"totalTickets"`
}

func (ExperimentTimeExpiredPayload) EventType() EventType { return EventExperimentTimeExpired }

type TicketOpenedPayload struct {
	TicketID string `json:"ticketId"`
}

func (TicketOpenedPayload) EventType() EventType { return EventTicketOpened }

type TicketClosedPayload struct {
	TicketID       string        `json:"ticketId"`
	OutcomeID      string        `json:"outcomeId"`
	TimeToComplete time.Duration `json:"timeToComplete"`
}

func (TicketClosedPayload) EventType() EventType { return EventTicketClosed }

type TicketUnlockedPayload struct {
	TicketID       string `json:"ticketId"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
}

func (TicketUnlockedPayload) EventType() EventType { return EventTicketUnlocked }

type DecisionMadePayload struct {
	TicketID              string        `json:"ticketId"`
	NodeID                string        `json:"nodeId"`
	OptionID              string        `json:"optionId"`
	OptionLabel           string        `json:"optionLabel,omitempty"`
	TimeSinceLastDecision time.Duration `json:"timeSinceLastDecision,omitempty"`
}

func (DecisionMadePayload) EventType() EventType { return EventDecisionMade }

type DecisionChangedPayload struct {
	TicketID         string `json:"ticketId"`
	NodeID           string `json:"nodeId"`
	PreviousOptionID string `json:"previousOptionId"`
	OptionID         string `json:"optionId"`
	PrunedNodes      int    `json:"prunedNodes"`
}

func (DecisionChangedPayload) EventType() EventType { return EventDecisionChanged }

type MouseClickPayload struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	ElementType string `json:"elementType,omitempty"`
	ElementID   string `json:"elementId,omitempty"`
}

func (MouseClickPayload) EventType() EventType { return EventMouseClick }

type MouseMovePayload struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Velocity float64 `json:"velocity,omitempty"` // pixels per second
}

func (MouseMovePayload) EventType() EventType { return EventMouseMove }

type CustomerResponseSentPayload struct {
	TicketID       string `json:"ticketId"`
	ResponseLength int    `json:"responseLength"`
}

func (CustomerResponseSentPayload) EventType() EventType { return EventCustomerResponseSent }

type AgentStartedPayload struct {
	TicketID  string `json:"ticketId"`
	StepCount int    `json:"stepCount"`
}

func (AgentStartedPayload) EventType() EventType { return EventAgentStarted }

type AgentCompletedPayload struct {
	TicketID string `json:"ticketId"`
	Approved bool   `json:"approved"`
}

func (AgentCompletedPayload) EventType() EventType { return EventAgentCompleted }

type AgentStepReviewedPayload struct {
	TicketID   string `json:"ticketId"`
	StepNumber int    `json:"stepNumber"`
	StepName   string `json:"stepName"`
	Verdict    string `json:"verdict"` // "accepted", "rejected", "edited"
	NewValue   string `json:"newValue,omitempty"`
}

func (p AgentStepReviewedPayload) EventType() EventType {
	switch p.Verdict {
	case "rejected":
		return EventAgentStepRejected
	case "edited":
		return EventAgentStepEdited
	default:
		return EventAgentStepAccepted
	}
}

type ChatMessagePayload struct {
	TicketID      string `json:"ticketId,omitempty"`
	MessageLength int    `json:"messageLength"`
}

func (ChatMessagePayload) EventType() EventType { return EventChatMessageSent }

type ChatResponsePayload struct {
	TicketID       string `json:"ticketId,omitempty"`
	ResponseLength int    `json:"responseLength"`
	Failed         bool   `json:"failed,omitempty"`
}

func (ChatResponsePayload) EventType() EventType { return EventChatMessageReceived }

type KnowledgeOpenedPayload struct {
	NodeID    string `json:"nodeId"`
	NodeTitle string `json:"nodeTitle"`
}

func (KnowledgeOpenedPayload) EventType() EventType { return EventKnowledgeOpened }

type KnowledgeSearchedPayload struct {
	Query       string `json:"query"`
	ResultCount int    `json:"resultCount"`
}

func (KnowledgeSearchedPayload) EventType() EventType { return EventKnowledgeSearched }

type SurveySubmittedPayload struct {
	QuestionCount int `json:"questionCount"`
}

func (SurveySubmittedPayload) EventType() EventType { return EventSurveySubmitted }

type PageViewedPayload struct {
	Page    string `json:"page"`
	Section string `json:"section,omitempty"`
}

func (PageViewedPayload) EventType() EventType { return EventPageViewed }

type TimerWarningPayload struct {
	RemainingSeconds int    `json:"remainingSeconds"`
	Label            string `json:"label"` // "5min", "2min", "1min"
}

func (TimerWarningPayload) EventType() EventType { return EventTimerWarning }

type DataSyncedPayload struct {
	EventCount int    `json:"eventCount"`
	Trigger    string `json:"trigger"` // "auto" or "final"
}

func (DataSyncedPayload) EventType() EventType { return EventDataSynced }

type DataSyncFailedPayload struct {
	Error        string `json:"error"`
	PendingCount int    `json:"pendingCount"`
	Trigger      string `json:"trigger"`
}

func (DataSyncFailedPayload) EventType() EventType { return EventDataSyncFailed }

type FormValidationErrorPayload struct {
	TicketID string   `json:"ticketId,omitempty"`
	Errors   []string `json:"errors"`
}

func (FormValidationErrorPayload) EventType() EventType { return EventFormValidationError }

type ApplicationErrorPayload struct {
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

func (ApplicationErrorPayload) EventType() EventType { return EventApplicationError }

// RawPayload carries a client-shipped event whose shape is only known at
// runtime. Used at the ingest boundary; server-originated events always
// use a typed payload.
type RawPayload struct {
	Type EventType      `json:"-"`
	Data map[string]any `json:"-"`
}

func (p RawPayload) EventType() EventType { return p.Type }

// MarshalJSON flattens the raw data map so raw and typed events share
// one wire shape.
func (p RawPayload) MarshalJSON() ([]byte, error) {
	if p.Data == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Data)
}
