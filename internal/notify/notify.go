// Package notify carries transient user-facing notifications (toasts) from
// the sync layer to whatever renders them. Delivery never blocks the caller.
package notify

import (
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notification struct {
	Level   Level     `json:"level"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notification)
}

// Hub fans notifications out to subscribers and keeps the most recent ones
// for clients that poll.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]func(Notification)
	nextID int
	recent []Notification
	keep   int
	now    func() time.Time
}

func NewHub(keep int) *Hub {
	if keep <= 0 {
		keep = 50
	}
	return &Hub{subs: make(map[int]func(Notification)), keep: keep, now: time.Now}
}

func (h *Hub) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = h.now()
	}
	h.mu.Lock()
	h.recent = append(h.recent, n)
	if len(h.recent) > h.keep {
		h.recent = h.recent[len(h.recent)-h.keep:]
	}
	subs := make([]func(Notification), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub) Subscribe(fn func(Notification)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Recent returns up to n of the latest notifications, oldest first.
func (h *Hub) Recent(n int) []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.recent) {
		n = len(h.recent)
	}
	out := make([]Notification, n)
	copy(out, h.recent[len(h.recent)-n:])
	return out
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(Notification) {}
