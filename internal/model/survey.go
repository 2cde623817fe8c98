package model

import "time"

// SurveyQuestionType is the input kind of a survey question.
type SurveyQuestionType string

const (
	SurveyLikert SurveyQuestionType = "likert"
	SurveyText   SurveyQuestionType = "text"
)

// SurveyQuestion is one entry of the post-experiment questionnaire,
// loaded from the survey catalog.
type SurveyQuestion struct {
	ID       string             `json:"id"`
	Type     SurveyQuestionType `json:"type"`
	Prompt   string             `json:"prompt"`
	Required bool               `json:"required,omitempty"`
	Min      int                `json:"min,omitempty"`
	Max      int                `json:"max,omitempty"`
}

// SurveyConfig is the questionnaire definition.
type SurveyConfig struct {
	Questions []SurveyQuestion `json:"questions"`
}

// SurveyResponse holds a participant's answers keyed by question id.
// Likert answers are numbers, text answers strings; values are kept
// loosely typed because the questionnaire is config-driven.
type SurveyResponse struct {
	ParticipantID string         `json:"participantId"`
	Answers       map[string]any `json:"answers"`
	CompletedAt   time.Time      `json:"completedAt"`
}

// ContactRequest is an optional post-study contact submission.
type ContactRequest struct {
	ParticipantID string    `json:"participantId"`
	Email         string    `json:"email"`
	Message       string    `json:"message,omitempty"`
	SubmittedAt   time.Time `json:"submittedAt"`
}
