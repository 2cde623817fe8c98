package model

import "time"

// Group is the experimental condition a participant is assigned to.
//
//	1 — plain manual decisions
//	2 — chat-assisted
//	3 — step-confirmed AI agent
//	4 — fully autonomous AI agent
type Group string

const (
	GroupManual       Group = "1"
	GroupChatAssisted Group = "2"
	GroupAgentConfirm Group = "3"
	GroupAgentAuto    Group = "4"
)

// Groups lists all experimental conditions, in assignment order.
var Groups = []Group{GroupManual, GroupChatAssisted, GroupAgentConfirm, GroupAgentAuto}

// Valid reports whether g is one of the four conditions.
func (g Group) Valid() bool {
	switch g {
	case GroupManual, GroupChatAssisted, GroupAgentConfirm, GroupAgentAuto:
		return true
	}
	return false
}

// TimingMode is the ticket-release regime for a session.
type TimingMode string

const (
	TimingImmediate TimingMode = "immediate"
	TimingStaggered TimingMode = "staggered"
)

// Valid reports whether m is a known timing mode.
func (m TimingMode) Valid() bool {
	return m == TimingImmediate || m == TimingStaggered
}

// SessionData is the full record of one participant's session, from
// consent to completion. It owns all responses and trace events for the
// participant; cleared only by an explicit operator reset.
type SessionData struct {
	ParticipantID   string           `json:"participantId"`
	Group           Group            `json:"group"`
	TimingMode      TimingMode       `json:"timingMode"`
	StartTime       time.Time        `json:"startTime"`
	EndTime         *time.Time       `json:"endTime,omitempty"`
	TicketResponses []TicketResponse `json:"ticketResponses"`
	TraceEvents     []TraceEvent     `json:"traceEvents"`
}

// SessionUpdate carries the mergeable fields of a session. Nil fields
// are left untouched.
type SessionUpdate struct {
	EndTime *time.Time
}
