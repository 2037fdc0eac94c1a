package models

import "github.com/google/uuid"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Conversation states pushed to the widget while an interaction runs.
const (
	StateCallingModel          = "calling_model"
	StateAssistantTurnAppended = "assistant_turn_appended"
	StateErrorReported         = "error_reported"
)

type StatusUpdate struct {
	SessionID uuid.UUID `json:"session_id"`
	State     string    `json:"state"`
	Model     string    `json:"model,omitempty"`
	TurnCount int       `json:"turn_count"`
	Error     string    `json:"error,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
