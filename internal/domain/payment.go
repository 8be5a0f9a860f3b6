package domain

type IntentStatus string

const (
	IntentStatusPending    IntentStatus = "pending"
	IntentStatusProcessing IntentStatus = "processing"
	IntentStatusSucceeded  IntentStatus = "succeeded"
	IntentStatusFailed     IntentStatus = "failed"
	IntentStatusCanceled   IntentStatus = "canceled"
)

// Active reports whether the intent can still move.
func (s IntentStatus) Active() bool {
	return s == IntentStatusPending || s == IntentStatusProcessing
}

// PaymentIntent is one attempt to pay for one booking. ClientSecret is handed
// to the payment widget between creation and confirmation.
type PaymentIntent struct {
	ID           string       `json:"id"`
	ClientSecret string       `json:"client_secret"`
	BookingID    int64        `json:"booking_id"`
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	Status       IntentStatus `json:"status"`
}

// RemoteIntentStatus is what the backend reports for an intent.
type RemoteIntentStatus struct {
	Status   IntentStatus `json:"status"`
	Amount   int64        `json:"amount"`
	Currency string       `json:"currency"`
}
