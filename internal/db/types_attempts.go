package db

import (
	"time"

	"github.com/google/uuid"
)

// Outcome values stored in scrape_attempts.outcome
const (
	OutcomeSuccess  = "success"
	OutcomeBlocked  = "blocked"
	OutcomeNotFound = "not_found"
	OutcomeFailure  = "failure"
)

// Listing bounds for ListAttempts
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// Attempt is one recorded scrape attempt
type Attempt struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Source     string    `json:"source,omitempty"`
	Link       string    `json:"link,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Outcome    string    `json:"outcome"`
	Kind       string    `json:"kind,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Status     int       `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttemptInput contains the fields for recording an attempt
type AttemptInput struct {
	SessionID uuid.UUID
	Source    string
	Link      string
	Strategy  string
	Outcome   string
	Kind      string
	Filename  string
	Status    int
	Reason    string
	Duration  time.Duration
}

// AttemptFilter narrows ListAttempts. Empty fields match everything.
type AttemptFilter struct {
	Outcome string
	Limit   int
}

// limit clamps the requested page size into [1, MaxListLimit].
func (f AttemptFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}
