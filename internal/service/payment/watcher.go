package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/kafka"
)

type StatusReader interface {
	PaymentStatus(ctx context.Context, intentID string) (domain.RemoteIntentStatus, error)
}

// Watcher follows intents announced on the sync event stream and polls the
// ones that never reported an outcome. It runs outside the process that owns
// the lifecycles, so it only observes and never transitions them.
type Watcher struct {
	reader StatusReader

	mu      sync.Mutex
	pending map[string]int64
}

func NewWatcher(reader StatusReader) *Watcher {
	return &Watcher{reader: reader, pending: make(map[string]int64)}
}

func (w *Watcher) Observe(event kafka.SyncEvent) {
	if event.IntentID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch event.Type {
	case kafka.EventPaymentIntentCreated:
		w.pending[event.IntentID] = event.BookingID
	case kafka.EventPaymentSucceeded, kafka.EventPaymentFailed, kafka.EventPaymentCanceled:
		delete(w.pending, event.IntentID)
	}
}

func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Sweep polls every pending intent and returns an event for each one the
// processor has settled. Settled intents stop being watched.
func (w *Watcher) Sweep(ctx context.Context) ([]kafka.SyncEvent, error) {
	w.mu.Lock()
	intents := make(map[string]int64, len(w.pending))
	for id, booking := range w.pending {
		intents[id] = booking
	}
	w.mu.Unlock()

	var (
		settled []kafka.SyncEvent
		errs    []error
	)
	for intentID, bookingID := range intents {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		status, err := w.reader.PaymentStatus(ctx, intentID)
		if err != nil {
			errs = append(errs, fmt.Errorf("intent %s: %w", intentID, err))
			continue
		}
		var eventType string
		switch status.Status {
		case domain.IntentStatusSucceeded:
			eventType = kafka.EventPaymentSucceeded
		case domain.IntentStatusFailed:
			eventType = kafka.EventPaymentFailed
		case domain.IntentStatusCanceled:
			eventType = kafka.EventPaymentCanceled
		default:
			continue
		}
		event := kafka.NewSyncEvent(eventType)
		event.BookingID = bookingID
		event.IntentID = intentID
		event.Status = string(status.Status)
		settled = append(settled, event)

		w.mu.Lock()
		delete(w.pending, intentID)
		w.mu.Unlock()
	}
	return settled, errors.Join(errs...)
}
