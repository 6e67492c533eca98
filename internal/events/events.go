// Package events publishes shipment status transitions for downstream
// consumers such as order status updates and customer notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	LabelCreated       = "label.created"
	LabelFailed        = "label.failed"
	LabelCancelled     = "label.cancelled"
	CancellationFailed = "label.cancellation_failed"
)

// StatusEvent reports the outcome of one batch item.
type StatusEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	StoreID      int       `json:"store_id"`
	RequestIndex string    `json:"request_index"`
	OrderRef     string    `json:"order_ref,omitempty"`
	ShipmentRef  string    `json:"shipment_ref,omitempty"`
	TrackNumber  string    `json:"track_number,omitempty"`
	Message      string    `json:"message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewStatusEvent creates an event with a fresh id.
func NewStatusEvent(eventType string, storeID int, requestIndex string) StatusEvent {
	return StatusEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		StoreID:      storeID,
		RequestIndex: requestIndex,
		OccurredAt:   time.Now().UTC(),
	}
}

// Key returns the partition key. Events of one order stay ordered.
func (e StatusEvent) Key() string {
	if e.OrderRef != "" {
		return e.OrderRef
	}
	if e.TrackNumber != "" {
		return e.TrackNumber
	}
	return e.ID
}

// Publisher is the interface used to publish status events.
type Publisher interface {
	Publish(ctx context.Context, events ...StatusEvent) error
	Close() error
}
