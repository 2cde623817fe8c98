package model

import "time"

// AgentStepType classifies a scripted agent step.
type AgentStepType string

const (
	AgentStepAnalysis AgentStepType = "analysis"
	AgentStepDecision AgentStepType = "decision"
	AgentStepResponse AgentStepType = "response"
)

// AgentStepStatus is the participant's verdict on a step (groups 3/4).
type AgentStepStatus string

const (
	AgentStepPending  AgentStepStatus = "pending"
	AgentStepAccepted AgentStepStatus = "accepted"
	AgentStepRejected AgentStepStatus = "rejected"
	AgentStepEdited   AgentStepStatus = "edited"
)

// AgentStep is one step of the scripted agent's replay of a ticket's
// gold-standard path.
type AgentStep struct {
	StepNumber       int             `json:"stepNumber"`
	StepName         string          `json:"stepName"`
	Decision         string          `json:"decision"`
	Reasoning        string          `json:"reasoning"`
	Status           AgentStepStatus `json:"status"`
	StepType         AgentStepType   `json:"stepType"`
	DecisionNodeID   string          `json:"decisionNodeId,omitempty"`
	DecisionOptionID string          `json:"decisionOptionId,omitempty"`
}

// ChatRole is the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// KnowledgeNode is a titled node of the knowledge-base tree. Leaf nodes
// carry rendered HTML content; directory nodes carry children.
type KnowledgeNode struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Content  string          `json:"content,omitempty"`
	Children []KnowledgeNode `json:"children,omitempty"`
}
