package payment

import (
	"github.com/Domenick1991/travelsync/internal/domain"
)

type State string

const (
	StateIdle                 State = "idle"
	StateCreating             State = "creating"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateConfirming           State = "confirming"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
	StateCanceled             State = "canceled"
)

// Active reports whether an intent exists that may still move. At most one
// lifecycle per booking is active at a time.
func (s State) Active() bool {
	return s == StateCreating || s == StateAwaitingConfirmation || s == StateConfirming
}

// IntentPayload describes what is being paid for.
type IntentPayload struct {
	Kind      domain.BookingKind `json:"kind" validate:"required,oneof=flight hotel"`
	Reference int64              `json:"reference" validate:"gt=0"`
	Amount    int64              `json:"amount" validate:"gt=0"`
	Currency  string             `json:"currency" validate:"required,len=3"`
	Extra     map[string]any     `json:"extra,omitempty"`
}

// Snapshot is a read-only view of one booking's payment lifecycle.
type Snapshot struct {
	BookingID int64                 `json:"booking_id"`
	State     State                 `json:"state"`
	Intent    *domain.PaymentIntent `json:"intent,omitempty"`
	Error     string                `json:"error,omitempty"`
}

type lifecycle struct {
	bookingID int64
	state     State
	payload   IntentPayload
	intent    *domain.PaymentIntent
	err       string
}

func (l *lifecycle) snapshot() Snapshot {
	s := Snapshot{BookingID: l.bookingID, State: l.state, Error: l.err}
	if l.intent != nil {
		intent := *l.intent
		s.Intent = &intent
	}
	return s
}

func (l *lifecycle) holds(intentID string) bool {
	return l.intent != nil && l.intent.ID == intentID
}

func (l *lifecycle) fail(msg string) {
	l.state = StateFailed
	l.err = msg
	if l.intent != nil {
		l.intent.Status = domain.IntentStatusFailed
	}
}
