// Package events is the in-process publish/subscribe plumbing modules use
// to react to each other's state changes without importing one another.
package events

import "time"

// Event is anything published on a Bus. EventName is the subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp every concrete event embeds.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps an event at the given time.
func NewBaseEvent(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at.UTC()}
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
