package model

import "time"

// TicketStatus is the lifecycle state of a ticket within a session.
type TicketStatus string

const (
	StatusLocked     TicketStatus = "locked"
	StatusAvailable  TicketStatus = "available"
	StatusInProgress TicketStatus = "in-progress"
	StatusCompleted  TicketStatus = "completed"
)

// CustomerCase is a single prior case in a customer's history.
type CustomerCase struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Status  string `json:"status,omitempty"`
	Date    string `json:"date,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// CustomerDetails is the profile shown alongside a ticket.
type CustomerDetails struct {
	Name          string         `json:"name,omitempty"`
	BirthDate     string         `json:"birthDate,omitempty"`
	Email         string         `json:"email,omitempty"`
	CaseCount     int            `json:"caseCount,omitempty"`
	CaseTypes     []string       `json:"caseTypes,omitempty"`
	PreviousCases []CustomerCase `json:"previousCases,omitempty"`
}

// TicketDecision is one (node, option) step of a resolution path.
type TicketDecision struct {
	NodeID      string `json:"nodeId"`
	OptionID    string `json:"optionId"`
	OptionLabel string `json:"optionLabel,omitempty"`
}

// GoldStandard is the researcher-defined canonical resolution for a ticket.
type GoldStandard struct {
	Path             []TicketDecision `json:"path"`
	OutcomeID        string           `json:"outcomeId"`
	ResponseTemplate string           `json:"responseTemplate"`
}

// Ticket is a catalog entry. Catalog tickets are read-only; per-session
// state lives on TicketWithStatus.
type Ticket struct {
	ID              string          `json:"id"`
	Customer        string          `json:"customer"`
	Email           string          `json:"email"`
	CustomerDetails CustomerDetails `json:"customerDetails,omitempty"`
	Subject         string          `json:"subject"`
	Description     string          `json:"description"`
	GoldStandard    GoldStandard    `json:"goldStandard"`

	// ScheduledAppearance is the offset in seconds from session start at
	// which the ticket unlocks in staggered mode. Zero means no gating.
	ScheduledAppearance int `json:"scheduledAppearance,omitempty"`
}

// TicketWithStatus decorates a catalog ticket with session-scoped state.
type TicketWithStatus struct {
	Ticket
	Status      TicketStatus `json:"status"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// TicketResponse is a participant's completed resolution of one ticket.
type TicketResponse struct {
	TicketID         string            `json:"ticketId"`
	Decisions        []TicketDecision  `json:"decisions"`
	OutcomeID        string            `json:"outcomeId"`
	Fields           map[string]string `json:"fields"`
	CustomerResponse string            `json:"customerResponse"`
	CompletedAt      time.Time         `json:"completedAt"`
	TimeToComplete   time.Duration     `json:"timeToComplete"`
}

// TicketScore is the derived per-response performance metric.
type TicketScore struct {
	TicketID                 string        `json:"ticketId"`
	DistanceFromGoldStandard float64       `json:"distanceFromGoldStandard"` // 0-1, 0 is a perfect match
	ErrorRate                float64       `json:"errorRate"`                // 0-1
	QualityScore             int           `json:"qualityScore"`             // 0-100
	TimeToClose              time.Duration `json:"timeToClose"`
}

// Performance aggregates scores over all of a participant's responses.
type Performance struct {
	TotalTickets                    int           `json:"totalTickets"`
	AverageDistanceFromGoldStandard float64       `json:"averageDistanceFromGoldStandard"`
	AverageErrorRate                float64       `json:"averageErrorRate"`
	AverageQualityScore             float64       `json:"averageQualityScore"`
	AverageTimeToClose              time.Duration `json:"averageTimeToClose"`
}
