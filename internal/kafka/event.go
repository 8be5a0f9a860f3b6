package kafka

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingStatusChanged = "booking_status_changed"
	EventBookingRemoved       = "booking_removed"
	EventPaymentIntentCreated = "payment_intent_created"
	EventPaymentSucceeded     = "payment_succeeded"
	EventPaymentFailed        = "payment_failed"
	EventPaymentCanceled      = "payment_canceled"
	EventFavoriteRolledBack   = "favorite_rolled_back"
)

// SyncEvent is published on every state transition the sync layer makes.
type SyncEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	BookingID int64     `json:"booking_id,omitempty"`
	IntentID  string    `json:"intent_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

func NewSyncEvent(eventType string) SyncEvent {
	return SyncEvent{ID: uuid.NewString(), Type: eventType, At: time.Now().UTC()}
}
