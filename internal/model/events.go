package model

import (
	"context"
	"time"
)

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventType names a domain event.
type EventType string

const (
	EventDreamCompleted        EventType = "dream.completed"
	EventDreamFailed           EventType = "dream.failed"
	EventPremiumDreamCompleted EventType = "premium_dream.completed"
	EventShareBonusGranted     EventType = "bonus.share_granted"
)

// Event is the envelope published for every domain event.
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	RecordID   string    `json:"record_id,omitempty"`
	Color      string    `json:"color,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
