package domain

import (
	"errors"
	"time"
)

// Type classifies a notification for the client UI.
type Type string

const (
	TypeSystem           Type = "system"
	TypeOnboardingUpdate Type = "onboarding_update"
	TypeSuccess          Type = "success"
)

// Notification is a single message addressed to one recipient. Created
// only by the fan-out service; the recipient may mark it read; never
// deleted.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	ProjectID string         `json:"project_id,omitempty"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

var ErrNotFound = errors.New("notification not found")
