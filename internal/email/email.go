package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/travelsync/internal/kafka"
	"github.com/Domenick1991/travelsync/internal/logger"
)

type Message struct {
	Subject string
	Body    string
}

// DeliverFunc hands a rendered message to the mail transport.
type DeliverFunc func(ctx context.Context, msg Message) error

type Sender struct {
	deliver DeliverFunc
}

// NewSender returns a sender that only logs what it would send.
func NewSender() *Sender {
	return &Sender{deliver: logDelivery}
}

func NewSenderWithTransport(deliver DeliverFunc) *Sender {
	return &Sender{deliver: deliver}
}

// Send renders a customer-facing message for the event. Events nobody gets
// mail about are skipped.
func (s *Sender) Send(ctx context.Context, event kafka.SyncEvent) error {
	msg, ok := Render(event)
	if !ok {
		return nil
	}
	if err := s.deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s for booking %d: %w", event.Type, event.BookingID, err)
	}
	return nil
}

func Render(event kafka.SyncEvent) (Message, bool) {
	switch event.Type {
	case kafka.EventPaymentSucceeded:
		return Message{
			Subject: fmt.Sprintf("Booking #%d is paid", event.BookingID),
			Body:    fmt.Sprintf("Your payment %s went through and booking #%d is confirmed.", event.IntentID, event.BookingID),
		}, true
	case kafka.EventPaymentFailed:
		body := fmt.Sprintf("We could not take the payment for booking #%d.", event.BookingID)
		if event.Message != "" {
			body += " Reason: " + event.Message
		}
		return Message{Subject: fmt.Sprintf("Payment for booking #%d failed", event.BookingID), Body: body}, true
	case kafka.EventBookingStatusChanged:
		return Message{
			Subject: fmt.Sprintf("Booking #%d is %s", event.BookingID, event.Status),
			Body:    fmt.Sprintf("The status of booking #%d changed to %s.", event.BookingID, event.Status),
		}, true
	}
	return Message{}, false
}

func logDelivery(_ context.Context, msg Message) error {
	logger.Info("send email", "subject", msg.Subject, "body", msg.Body)
	return nil
}
