package models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID            uuid.UUID  `json:"id"`
	Model         string     `json:"model"`
	Credential    string     `json:"-"`
	HasCredential bool       `json:"has_credential"`
	Turns         []ChatTurn `json:"turns"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so callers can't mutate store-owned turns.
func (s *Session) Clone() *Session {
	c := *s
	c.Turns = make([]ChatTurn, len(s.Turns))
	copy(c.Turns, s.Turns)
	c.HasCredential = s.Credential != ""
	return &c
}

type CreateSessionRequest struct {
	Model string `json:"model"`
}

type CreateSessionResponse struct {
	Token   string   `json:"token"`
	Session *Session `json:"session"`
}

// UpdateSettingsRequest changes only the fields that are present.
type UpdateSettingsRequest struct {
	Model  *string `json:"model"`
	APIKey *string `json:"api_key"`
}
