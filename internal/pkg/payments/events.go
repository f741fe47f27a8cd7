package payments

import (
	"context"
	"time"
)

// Event types published after a state change has been committed.
const (
	EventOrderStatusChanged      = "order.status_changed"
	EventSubscriptionActivated   = "subscription.activated"
	EventSubscriptionExtended    = "subscription.extended"
	EventSubscriptionDeactivated = "subscription.deactivated"
)

type Event struct {
	Type           string     `json:"type"`
	OccurredAt     time.Time  `json:"occurred_at"`
	OrderID        uint       `json:"order_id,omitempty"`
	ProviderID     string     `json:"provider_id,omitempty"`
	SubscriptionID uint       `json:"subscription_id,omitempty"`
	ParentID       *uint      `json:"parent_id,omitempty"`
	SubjectID      *uint      `json:"subject_id,omitempty"`
	Status         string     `json:"status,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
}

// Publisher delivers events to interested consumers. Failures are logged by
// the caller and never undo the state change.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
