package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

type BookingKind string

const (
	BookingKindFlight BookingKind = "flight"
	BookingKindHotel  BookingKind = "hotel"
)

// Booking is a flight or hotel reservation known to the current session.
// Reference is the flight cabin id or hotel room id the booking was made for.
type Booking struct {
	ID        int64         `json:"id"`
	Kind      BookingKind   `json:"kind"`
	Reference int64         `json:"reference"`
	Status    BookingStatus `json:"status"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	CreatedAt time.Time     `json:"created_at"`
}
