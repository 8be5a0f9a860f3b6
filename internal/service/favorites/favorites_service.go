// Package favorites keeps the current user's favorite sets in sync with the
// storefront API. Toggles are applied locally before the request goes out
// and rolled back to the captured snapshot if the request fails.
package favorites

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/Domenick1991/travelsync/internal/apperr"
	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/kafka"
	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/Domenick1991/travelsync/internal/metrics"
	"github.com/Domenick1991/travelsync/internal/notify"
	"github.com/Domenick1991/travelsync/internal/session"
)

const opToggle = "toggle favorite"

type FavoritesUseCase interface {
	Toggle(ctx context.Context, kind domain.FavoriteKind, id int64) (bool, error)
	IsFavorite(kind domain.FavoriteKind, id int64) bool
	List(kind domain.FavoriteKind) []int64
	Hydrate(ctx context.Context) error
	Clear()
}

type Remote interface {
	Me(ctx context.Context) (*domain.User, error)
	ToggleFavorite(ctx context.Context, kind domain.FavoriteKind, id int64) error
}

type Reason string

const (
	ReasonOptimistic Reason = "optimistic"
	ReasonRollback   Reason = "rollback"
	ReasonHydrate    Reason = "hydrate"
	ReasonClear      Reason = "clear"
)

// Change is delivered to observers whenever a set changes.
type Change struct {
	Kind     domain.FavoriteKind
	ID       int64
	Favorite bool
	Reason   Reason
}

type key struct {
	kind domain.FavoriteKind
	id   int64
}

// snapshot is the membership captured when a toggle starts. Rollback
// restores it verbatim.
type snapshot struct {
	key
	was bool
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

type Store struct {
	remote   Remote
	tokens   session.TokenSource
	notifier notify.Notifier
	producer kafka.Publisher
	topic    string

	mu      sync.RWMutex
	sets    map[domain.FavoriteKind]map[int64]struct{}
	subs    map[int]func(Change)
	nextSub int

	keysMu sync.Mutex
	keys   map[key]*keyLock
}

type StoreOption func(*Store)

func WithNotifier(n notify.Notifier) StoreOption {
	return func(s *Store) {
		s.notifier = n
	}
}

func WithPublisher(p kafka.Publisher, topic string) StoreOption {
	return func(s *Store) {
		s.producer = p
		s.topic = topic
	}
}

func NewStore(remote Remote, tokens session.TokenSource, opts ...StoreOption) *Store {
	s := &Store{
		remote:   remote,
		tokens:   tokens,
		notifier: notify.Discard{},
		sets:     make(map[domain.FavoriteKind]map[int64]struct{}),
		subs:     make(map[int]func(Change)),
		keys:     make(map[key]*keyLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Toggle flips membership of (kind, id) and returns the resulting membership.
//
// Without a session token it fails immediately with no local change. Toggles
// on the same key are serialized: a second one waits until the first has
// settled, then takes its own snapshot. On failure the set is restored to the
// snapshot, an error notification is emitted and the error is returned.
func (s *Store) Toggle(ctx context.Context, kind domain.FavoriteKind, id int64) (bool, error) {
	if !validKind(kind) {
		return false, fmt.Errorf("unknown favorite kind %q", kind)
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return false, apperr.Network(opToggle, err)
	}
	if token == "" {
		metrics.RecordFavoriteToggle(string(kind), "unauthenticated")
		s.notify(notify.LevelError, "Please sign in to manage favorites")
		return false, apperr.Unauthenticated(opToggle)
	}

	k := key{kind: kind, id: id}
	release, err := s.acquire(ctx, k)
	if err != nil {
		return s.IsFavorite(kind, id), err
	}
	defer release()

	snap := s.applyOptimistic(k)

	if err := s.remote.ToggleFavorite(ctx, kind, id); err != nil {
		s.rollback(snap)
		metrics.RecordFavoriteToggle(string(kind), "rolled_back")
		logger.Warn("favorite toggle rolled back", "kind", kind, "id", id, "error", err)
		s.notify(notify.LevelError, failureMessage(err))
		s.publishRollback(ctx, snap, err)
		return snap.was, err
	}

	metrics.RecordFavoriteToggle(string(kind), "committed")
	if snap.was {
		s.notify(notify.LevelSuccess, "Removed from favorites")
	} else {
		s.notify(notify.LevelSuccess, "Added to favorites")
	}
	return !snap.was, nil
}

func (s *Store) ToggleHotel(ctx context.Context, id int64) (bool, error) {
	return s.Toggle(ctx, domain.FavoriteKindHotel, id)
}

func (s *Store) ToggleRoom(ctx context.Context, id int64) (bool, error) {
	return s.Toggle(ctx, domain.FavoriteKindRoom, id)
}

func (s *Store) ToggleFlight(ctx context.Context, id int64) (bool, error) {
	return s.Toggle(ctx, domain.FavoriteKindFlight, id)
}

func (s *Store) IsFavorite(kind domain.FavoriteKind, id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[kind][id]
	return ok
}

// List returns the favorite ids of one kind in ascending order.
func (s *Store) List(kind domain.FavoriteKind) []int64 {
	s.mu.RLock()
	out := make([]int64, 0, len(s.sets[kind]))
	for id := range s.sets[kind] {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Hydrate replaces every set with the favorites embedded in the remote profile.
func (s *Store) Hydrate(ctx context.Context) error {
	user, err := s.remote.Me(ctx)
	if err != nil {
		return fmt.Errorf("hydrate favorites: %w", err)
	}

	sets := make(map[domain.FavoriteKind]map[int64]struct{})
	for _, ref := range user.Favorites {
		if sets[ref.Kind] == nil {
			sets[ref.Kind] = make(map[int64]struct{})
		}
		sets[ref.Kind][ref.ID] = struct{}{}
	}

	s.mu.Lock()
	s.sets = sets
	s.mu.Unlock()

	for _, ref := range user.Favorites {
		s.emit(Change{Kind: ref.Kind, ID: ref.ID, Favorite: true, Reason: ReasonHydrate})
	}
	logger.Info("favorites hydrated", "user_id", user.ID, "count", len(user.Favorites))
	return nil
}

// Clear empties every set, used on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.sets = make(map[domain.FavoriteKind]map[int64]struct{})
	s.mu.Unlock()
	s.emit(Change{Reason: ReasonClear})
}

// Subscribe registers an observer and returns its unsubscribe function.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) applyOptimistic(k key) snapshot {
	s.mu.Lock()
	set := s.sets[k.kind]
	if set == nil {
		set = make(map[int64]struct{})
		s.sets[k.kind] = set
	}
	_, was := set[k.id]
	if was {
		delete(set, k.id)
	} else {
		set[k.id] = struct{}{}
	}
	s.mu.Unlock()

	s.emit(Change{Kind: k.kind, ID: k.id, Favorite: !was, Reason: ReasonOptimistic})
	return snapshot{key: k, was: was}
}

func (s *Store) rollback(snap snapshot) {
	s.mu.Lock()
	set := s.sets[snap.kind]
	if set == nil {
		set = make(map[int64]struct{})
		s.sets[snap.kind] = set
	}
	if snap.was {
		set[snap.id] = struct{}{}
	} else {
		delete(set, snap.id)
	}
	s.mu.Unlock()

	s.emit(Change{Kind: snap.kind, ID: snap.id, Favorite: snap.was, Reason: ReasonRollback})
}

func (s *Store) acquire(ctx context.Context, k key) (func(), error) {
	s.keysMu.Lock()
	l, ok := s.keys[k]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		s.keys[k] = l
	}
	l.refs++
	s.keysMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			s.unref(k, l)
		}, nil
	case <-ctx.Done():
		s.unref(k, l)
		return nil, ctx.Err()
	}
}

func (s *Store) unref(k key, l *keyLock) {
	s.keysMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.keys, k)
	}
	s.keysMu.Unlock()
}

func (s *Store) emit(c Change) {
	s.mu.RLock()
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(c)
	}
}

func (s *Store) notify(level notify.Level, msg string) {
	s.notifier.Notify(notify.Notification{Level: level, Op: opToggle, Message: msg})
}

func (s *Store) publishRollback(ctx context.Context, snap snapshot, cause error) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.NewSyncEvent(kafka.EventFavoriteRolledBack)
	event.Kind = string(snap.kind)
	event.EntityID = snap.id
	event.Message = cause.Error()
	k := string(snap.kind) + ":" + strconv.FormatInt(snap.id, 10)
	if err := s.producer.Publish(context.WithoutCancel(ctx), s.topic, k, event); err != nil {
		logger.Warn("failed to publish favorite rollback", "key", k, "error", err)
	}
}

func failureMessage(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindNetwork:
		return "Could not reach the server, favorite not saved"
	case apperr.KindRemoteRejected:
		return "Favorite could not be saved: " + err.Error()
	}
	return "Favorite could not be saved"
}

func validKind(kind domain.FavoriteKind) bool {
	for _, k := range domain.FavoriteKinds {
		if k == kind {
			return true
		}
	}
	return false
}

var _ FavoritesUseCase = (*Store)(nil)
