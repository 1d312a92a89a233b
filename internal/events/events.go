// Package events publishes ledger change notifications.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event types emitted after a committed operation.
const (
	ChurchRegistered  = "church.registered"
	MemberRegistered  = "member.registered"
	MemberTransferred = "member.transferred"
	MemberFlagged     = "member.flagged"
	MemberDeleted     = "member.deleted"
	TitheRecorded     = "tithe.recorded"
	ExpenseRecorded   = "expense.recorded"
	ChurchesImported  = "churches.imported"
	UserRegistered    = "user.registered"
)

// Event describes one committed change.
type Event struct {
	Type       string    `json:"type"`
	Church     string    `json:"church,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ToJSON encodes the event body.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
