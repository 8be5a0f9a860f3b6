// Package registry is the in-memory ledger of bookings the current session
// knows about. Rows are merged by id and kept newest first.
package registry

import (
	"context"
	"strconv"
	"sync"

	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/kafka"
	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/Domenick1991/travelsync/internal/metrics"
)

type ChangeType string

const (
	ChangeUpserted      ChangeType = "upserted"
	ChangeStatusChanged ChangeType = "status_changed"
	ChangeRemoved       ChangeType = "removed"
	ChangeCleared       ChangeType = "cleared"
)

type Change struct {
	Type    ChangeType
	Booking domain.Booking
}

type Registry struct {
	mu       sync.RWMutex
	order    []int64
	bookings map[int64]domain.Booking
	subs     map[int]func(Change)
	nextSub  int

	producer kafka.Publisher
	topic    string
}

type Option func(*Registry)

// WithPublisher publishes status changes and removals to topic.
func WithPublisher(p kafka.Publisher, topic string) Option {
	return func(r *Registry) {
		r.producer = p
		r.topic = topic
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		bookings: make(map[int64]domain.Booking),
		subs:     make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upsert replaces a known booking in place or prepends a new one. It reports
// whether the booking was new.
func (r *Registry) Upsert(b domain.Booking) bool {
	r.mu.Lock()
	_, known := r.bookings[b.ID]
	if !known {
		r.order = append([]int64{b.ID}, r.order...)
	}
	r.bookings[b.ID] = b
	size := len(r.order)
	r.mu.Unlock()

	metrics.SetRegistrySize(size)
	r.emit(Change{Type: ChangeUpserted, Booking: b})
	return !known
}

// Merge upserts a fetched list. New rows keep their relative order and land
// ahead of everything already known.
func (r *Registry) Merge(list []domain.Booking) {
	for i := len(list) - 1; i >= 0; i-- {
		r.Upsert(list[i])
	}
}

// UpdateStatus sets the status of a known booking. Unknown ids are ignored:
// callers may race a fetch that has not landed yet.
func (r *Registry) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) bool {
	r.mu.Lock()
	b, ok := r.bookings[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	changed := b.Status != status
	b.Status = status
	r.bookings[id] = b
	r.mu.Unlock()

	if changed {
		r.emit(Change{Type: ChangeStatusChanged, Booking: b})
		r.publish(ctx, kafka.EventBookingStatusChanged, b)
	}
	return true
}

// Remove drops a deleted booking. Cancellation is a status, not a removal.
func (r *Registry) Remove(ctx context.Context, id int64) bool {
	r.mu.Lock()
	b, ok := r.bookings[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.bookings, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	size := len(r.order)
	r.mu.Unlock()

	metrics.SetRegistrySize(size)
	r.emit(Change{Type: ChangeRemoved, Booking: b})
	r.publish(ctx, kafka.EventBookingRemoved, b)
	return true
}

func (r *Registry) Get(id int64) (domain.Booking, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	return b, ok
}

// List returns the bookings newest first.
func (r *Registry) List() []domain.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Booking, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.bookings[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear forgets every booking, used on logout.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.order = nil
	r.bookings = make(map[int64]domain.Booking)
	r.mu.Unlock()

	metrics.SetRegistrySize(0)
	r.emit(Change{Type: ChangeCleared})
}

// Subscribe registers an observer and returns its unsubscribe function.
// Observers run synchronously after the change is applied.
func (r *Registry) Subscribe(fn func(Change)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Registry) emit(c Change) {
	r.mu.RLock()
	subs := make([]func(Change), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()
	for _, fn := range subs {
		fn(c)
	}
}

func (r *Registry) publish(ctx context.Context, eventType string, b domain.Booking) {
	if r.producer == nil || r.topic == "" {
		return
	}
	event := kafka.NewSyncEvent(eventType)
	event.BookingID = b.ID
	event.Status = string(b.Status)
	event.Kind = string(b.Kind)
	if err := r.producer.Publish(ctx, r.topic, strconv.FormatInt(b.ID, 10), event); err != nil {
		logger.Warn("failed to publish booking event", "type", eventType, "booking_id", b.ID, "error", err)
	}
}
