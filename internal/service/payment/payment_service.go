// Package payment drives the payment-intent lifecycle of each booking:
// create, hand the client secret to the payment widget, then confirm or
// cancel. Misuse of the lifecycle fails fast with InvalidTransition.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Domenick1991/travelsync/internal/apperr"
	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/kafka"
	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/Domenick1991/travelsync/internal/metrics"
	"github.com/Domenick1991/travelsync/internal/remote"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var ErrBookingNotFound = errors.New("booking not found")

type PaymentUseCase interface {
	CreateIntent(ctx context.Context, bookingID int64, payload IntentPayload) (Snapshot, error)
	Confirm(ctx context.Context, intentID string, bookingID int64) (Snapshot, error)
	PollStatus(ctx context.Context, intentID string) (domain.RemoteIntentStatus, error)
	Cancel(ctx context.Context, intentID string) (Snapshot, error)
	CancelBooking(ctx context.Context, bookingID int64, intentID string) (Snapshot, error)
	Reset(bookingID int64) (Snapshot, error)
	Snapshot(bookingID int64) Snapshot
	Reconcile(ctx context.Context, bookingID int64) (Snapshot, error)
	MarkPaidOutOfBand(ctx context.Context, bookingID int64) error
}

type Remote interface {
	CreatePaymentIntent(ctx context.Context, kind domain.BookingKind, reference int64, body remote.IntentRequest) (remote.CreatedIntent, error)
	ConfirmPayment(ctx context.Context, req remote.ConfirmRequest) (remote.ConfirmResult, error)
	PaymentStatus(ctx context.Context, intentID string) (domain.RemoteIntentStatus, error)
	CancelPayment(ctx context.Context, intentID string) error
}

type Registry interface {
	Get(id int64) (domain.Booking, bool)
	Upsert(b domain.Booking) bool
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) bool
}

type PaymentService struct {
	remote   Remote
	registry Registry
	producer kafka.Publisher
	topic    string
	validate *validator.Validate
	newKey   func() string

	mu         sync.Mutex
	lifecycles map[int64]*lifecycle
	byIntent   map[string]int64
}

type PaymentServiceOption func(*PaymentService)

func WithPublisher(p kafka.Publisher, topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.producer = p
		s.topic = topic
	}
}

// WithIdempotencyKeys replaces the generator of confirm idempotency keys.
func WithIdempotencyKeys(gen func() string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.newKey = gen
	}
}

func NewPaymentService(remote Remote, registry Registry, opts ...PaymentServiceOption) *PaymentService {
	s := &PaymentService{
		remote:     remote,
		registry:   registry,
		validate:   validator.New(),
		newKey:     uuid.NewString,
		lifecycles: make(map[int64]*lifecycle),
		byIntent:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIntent starts a payment attempt for bookingID. A lifecycle still
// awaiting confirmation has its intent canceled first. A failed or canceled
// lifecycle must be Reset before a new attempt.
func (s *PaymentService) CreateIntent(ctx context.Context, bookingID int64, payload IntentPayload) (Snapshot, error) {
	const op = "create intent"
	if err := s.validate.Struct(payload); err != nil {
		return Snapshot{}, fmt.Errorf("invalid intent payload: %w", err)
	}

	s.mu.Lock()
	lc := s.lifecycleLocked(bookingID)
	var stale *domain.PaymentIntent
	switch lc.state {
	case StateIdle:
	case StateAwaitingConfirmation:
		stale = lc.intent
	default:
		s.mu.Unlock()
		return Snapshot{}, apperr.InvalidTransition(op, "booking %d payment is %s", bookingID, lc.state)
	}
	if stale != nil {
		delete(s.byIntent, stale.ID)
	}
	lc.state = StateCreating
	lc.payload = payload
	lc.intent = nil
	lc.err = ""
	s.mu.Unlock()
	metrics.RecordPaymentTransition(string(StateCreating))

	if stale != nil {
		s.cancelRemote(ctx, bookingID, stale.ID)
		metrics.RecordPaymentTransition(string(StateCanceled))
	}

	created, err := s.remote.CreatePaymentIntent(ctx, payload.Kind, payload.Reference, remote.IntentRequest{
		BookingID: bookingID,
		Amount:    payload.Amount,
		Currency:  payload.Currency,
		Extra:     payload.Extra,
	})

	s.mu.Lock()
	if err != nil {
		lc.fail(err.Error())
		snap := lc.snapshot()
		s.mu.Unlock()
		s.transitioned(ctx, snap, kafka.EventPaymentFailed)
		return snap, err
	}
	lc.state = StateAwaitingConfirmation
	lc.intent = &domain.PaymentIntent{
		ID:           created.ID,
		ClientSecret: created.ClientSecret,
		BookingID:    bookingID,
		Amount:       payload.Amount,
		Currency:     payload.Currency,
		Status:       domain.IntentStatusPending,
	}
	s.byIntent[created.ID] = bookingID
	snap := lc.snapshot()
	s.mu.Unlock()

	s.trackBooking(bookingID, payload)
	s.transitioned(ctx, snap, kafka.EventPaymentIntentCreated)
	return snap, nil
}

// Confirm is called once the payment widget reports success. It is only
// valid while the booking's lifecycle awaits confirmation of intentID.
func (s *PaymentService) Confirm(ctx context.Context, intentID string, bookingID int64) (Snapshot, error) {
	const op = "confirm"
	s.mu.Lock()
	lc, ok := s.lifecycles[bookingID]
	if !ok || lc.state != StateAwaitingConfirmation || !lc.holds(intentID) {
		state := StateIdle
		if ok {
			state = lc.state
		}
		s.mu.Unlock()
		return Snapshot{}, apperr.InvalidTransition(op, "intent %s for booking %d is not awaiting confirmation (state %s)", intentID, bookingID, state)
	}
	lc.state = StateConfirming
	lc.intent.Status = domain.IntentStatusProcessing
	s.mu.Unlock()
	metrics.RecordPaymentTransition(string(StateConfirming))

	res, err := s.remote.ConfirmPayment(ctx, remote.ConfirmRequest{
		IntentID:       intentID,
		BookingID:      bookingID,
		IdempotencyKey: s.newKey(),
	})

	s.mu.Lock()
	if err != nil {
		lc.fail(err.Error())
		snap := lc.snapshot()
		s.mu.Unlock()
		s.transitioned(ctx, snap, kafka.EventPaymentFailed)
		return snap, err
	}
	lc.state = StateSucceeded
	lc.intent.Status = domain.IntentStatusSucceeded
	snap := lc.snapshot()
	payload := lc.payload
	s.mu.Unlock()

	if res.Status != "" && res.Status != domain.BookingStatusConfirmed {
		logger.Warn("backend reported unexpected booking status after confirm", "booking_id", bookingID, "status", res.Status)
	}
	s.confirmBooking(ctx, bookingID, payload)
	s.transitioned(ctx, snap, kafka.EventPaymentSucceeded)
	return snap, nil
}

// PollStatus reads the backend's view of an intent. Local state is untouched.
func (s *PaymentService) PollStatus(ctx context.Context, intentID string) (domain.RemoteIntentStatus, error) {
	return s.remote.PaymentStatus(ctx, intentID)
}

// Cancel abandons an intent awaiting confirmation. The lifecycle ends
// Canceled whether or not the backend acknowledges; an unacknowledged intent
// expires on the server.
func (s *PaymentService) Cancel(ctx context.Context, intentID string) (Snapshot, error) {
	return s.cancel(ctx, intentID, 0)
}

// CancelBooking is Cancel restricted to the intent currently held by
// bookingID. An intent of any other booking is refused.
func (s *PaymentService) CancelBooking(ctx context.Context, bookingID int64, intentID string) (Snapshot, error) {
	if bookingID <= 0 {
		return Snapshot{}, apperr.InvalidTransition("cancel", "booking id %d is not valid", bookingID)
	}
	return s.cancel(ctx, intentID, bookingID)
}

func (s *PaymentService) cancel(ctx context.Context, intentID string, owner int64) (Snapshot, error) {
	const op = "cancel"
	s.mu.Lock()
	bookingID, ok := s.byIntent[intentID]
	if ok && owner != 0 && owner != bookingID {
		s.mu.Unlock()
		return Snapshot{}, apperr.InvalidTransition(op, "intent %s does not belong to booking %d", intentID, owner)
	}
	lc := s.lifecycles[bookingID]
	if !ok || lc == nil || lc.state != StateAwaitingConfirmation || !lc.holds(intentID) {
		s.mu.Unlock()
		return Snapshot{}, apperr.InvalidTransition(op, "intent %s is not awaiting confirmation", intentID)
	}
	lc.state = StateCanceled
	lc.intent.Status = domain.IntentStatusCanceled
	snap := lc.snapshot()
	s.mu.Unlock()

	s.cancelRemote(ctx, bookingID, intentID)
	s.transitioned(ctx, snap, kafka.EventPaymentCanceled)
	return snap, nil
}

// Reset returns a failed or canceled lifecycle to Idle so a new attempt can
// start. Idle and unknown bookings are left as they are.
func (s *PaymentService) Reset(bookingID int64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lc, ok := s.lifecycles[bookingID]
	if !ok {
		return Snapshot{BookingID: bookingID, State: StateIdle}, nil
	}
	switch lc.state {
	case StateIdle:
	case StateFailed, StateCanceled:
		if lc.intent != nil {
			delete(s.byIntent, lc.intent.ID)
		}
		lc.state = StateIdle
		lc.intent = nil
		lc.err = ""
	default:
		return lc.snapshot(), apperr.InvalidTransition("reset", "booking %d payment is %s", bookingID, lc.state)
	}
	return lc.snapshot(), nil
}

func (s *PaymentService) Snapshot(bookingID int64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lc, ok := s.lifecycles[bookingID]; ok {
		return lc.snapshot()
	}
	return Snapshot{BookingID: bookingID, State: StateIdle}
}

// Awaiting lists bookings whose intent awaits confirmation, in id order.
func (s *PaymentService) Awaiting() []int64 {
	s.mu.Lock()
	ids := make([]int64, 0)
	for id, lc := range s.lifecycles {
		if lc.state == StateAwaitingConfirmation {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Reconcile catches up with an outcome the client missed, e.g. after the
// user navigated away while the widget finished. Only lifecycles awaiting
// confirmation are polled; anything else is returned as is.
func (s *PaymentService) Reconcile(ctx context.Context, bookingID int64) (Snapshot, error) {
	s.mu.Lock()
	lc, ok := s.lifecycles[bookingID]
	if !ok || lc.state != StateAwaitingConfirmation {
		snap := Snapshot{BookingID: bookingID, State: StateIdle}
		if ok {
			snap = lc.snapshot()
		}
		s.mu.Unlock()
		return snap, nil
	}
	intentID := lc.intent.ID
	s.mu.Unlock()

	status, err := s.remote.PaymentStatus(ctx, intentID)
	if err != nil {
		return s.Snapshot(bookingID), err
	}

	s.mu.Lock()
	if lc.state != StateAwaitingConfirmation || !lc.holds(intentID) {
		// a confirm, cancel or new attempt got there first
		snap := lc.snapshot()
		s.mu.Unlock()
		return snap, nil
	}
	event := ""
	switch status.Status {
	case domain.IntentStatusSucceeded:
		lc.state = StateSucceeded
		lc.intent.Status = domain.IntentStatusSucceeded
		event = kafka.EventPaymentSucceeded
	case domain.IntentStatusFailed:
		lc.fail("payment failed at processor")
		event = kafka.EventPaymentFailed
	case domain.IntentStatusCanceled:
		lc.state = StateCanceled
		lc.intent.Status = domain.IntentStatusCanceled
		event = kafka.EventPaymentCanceled
	default:
		lc.intent.Status = status.Status
	}
	snap := lc.snapshot()
	payload := lc.payload
	s.mu.Unlock()

	if event == "" {
		return snap, nil
	}
	if snap.State == StateSucceeded {
		s.confirmBooking(ctx, bookingID, payload)
	}
	s.transitioned(ctx, snap, event)
	return snap, nil
}

// ReconcileAll reconciles every lifecycle awaiting confirmation and returns
// how many reached a terminal state.
func (s *PaymentService) ReconcileAll(ctx context.Context) (int, error) {
	settled := 0
	var errs []error
	for _, id := range s.Awaiting() {
		snap, err := s.Reconcile(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("booking %d: %w", id, err))
			continue
		}
		if !snap.State.Active() {
			settled++
		}
	}
	return settled, errors.Join(errs...)
}

// MarkPaidOutOfBand confirms a booking paid outside the intent flow (cash).
// It is refused while an intent is active or after one succeeded.
func (s *PaymentService) MarkPaidOutOfBand(ctx context.Context, bookingID int64) error {
	s.mu.Lock()
	if lc, ok := s.lifecycles[bookingID]; ok && (lc.state.Active() || lc.state == StateSucceeded) {
		state := lc.state
		s.mu.Unlock()
		return apperr.InvalidTransition("mark paid", "booking %d payment is %s", bookingID, state)
	}
	s.mu.Unlock()

	if !s.registry.UpdateStatus(ctx, bookingID, domain.BookingStatusConfirmed) {
		return fmt.Errorf("mark paid %d: %w", bookingID, ErrBookingNotFound)
	}
	return nil
}

// Clear forgets every lifecycle, e.g. on logout. Intents left open are not
// canceled remotely; they expire on the server.
func (s *PaymentService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifecycles = make(map[int64]*lifecycle)
	s.byIntent = make(map[string]int64)
}

func (s *PaymentService) lifecycleLocked(bookingID int64) *lifecycle {
	lc, ok := s.lifecycles[bookingID]
	if !ok {
		lc = &lifecycle{bookingID: bookingID, state: StateIdle}
		s.lifecycles[bookingID] = lc
	}
	return lc
}

// confirmBooking advances the registry row, creating it from the payment
// details when the registry has not seen the booking yet.
func (s *PaymentService) confirmBooking(ctx context.Context, bookingID int64, payload IntentPayload) {
	if s.registry.UpdateStatus(ctx, bookingID, domain.BookingStatusConfirmed) {
		return
	}
	s.registry.Upsert(domain.Booking{
		ID:        bookingID,
		Kind:      payload.Kind,
		Reference: payload.Reference,
		Status:    domain.BookingStatusConfirmed,
		Amount:    payload.Amount,
		Currency:  payload.Currency,
	})
}

func (s *PaymentService) cancelRemote(ctx context.Context, bookingID int64, intentID string) {
	if err := s.remote.CancelPayment(ctx, intentID); err != nil {
		logger.Warn("payment intent cancellation not acknowledged", "booking_id", bookingID, "intent_id", intentID, "error", err)
	}
}

// trackBooking inserts a pending row for a booking the registry has not seen,
// so it can later be confirmed, listed or marked paid.
func (s *PaymentService) trackBooking(bookingID int64, payload IntentPayload) {
	if _, ok := s.registry.Get(bookingID); ok {
		return
	}
	s.registry.Upsert(domain.Booking{
		ID:        bookingID,
		Kind:      payload.Kind,
		Reference: payload.Reference,
		Status:    domain.BookingStatusPending,
		Amount:    payload.Amount,
		Currency:  payload.Currency,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *PaymentService) transitioned(ctx context.Context, snap Snapshot, eventType string) {
	metrics.RecordPaymentTransition(string(snap.State))
	logger.Info("payment lifecycle transition", "booking_id", snap.BookingID, "state", snap.State)

	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.NewSyncEvent(eventType)
	event.BookingID = snap.BookingID
	event.Status = string(snap.State)
	event.Message = snap.Error
	if snap.Intent != nil {
		event.IntentID = snap.Intent.ID
	}
	if err := s.producer.Publish(context.WithoutCancel(ctx), s.topic, strconv.FormatInt(snap.BookingID, 10), event); err != nil {
		logger.Warn("failed to publish payment event", "type", eventType, "booking_id", snap.BookingID, "error", err)
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
