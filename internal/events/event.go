// Package events carries progress and time-accounting notifications about
// programs to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names an event kind.
type Type string

// Event kinds emitted by the program service.
const (
	// AtomObserved is emitted when an atom is marked observed.
	AtomObserved Type = "atom_observed"
	// GroupStateChanged is emitted when a group moves between not started,
	// in progress and complete.
	GroupStateChanged Type = "group_state_changed"
	// TimeOverAllocated is emitted when a program uses more time than awarded.
	TimeOverAllocated Type = "time_over_allocated"
)

// Event is a single notification. Subject identifies the group, observation
// or atom the event is about.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	ProgramID  string         `json:"program_id"`
	Subject    string         `json:"subject,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New builds an event with a fresh id.
func New(t Type, programID, subject string, at time.Time, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		ProgramID:  programID,
		Subject:    subject,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, ...Event) error { return nil }

// Close implements Publisher.
func (Discard) Close() error { return nil }
