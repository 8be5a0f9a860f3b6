package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/travelsync/internal/apperr"
	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) CreateIntent(ctx context.Context, bookingID int64, payload payment.IntentPayload) (payment.Snapshot, error) {
	args := m.Called(ctx, bookingID, payload)
	return args.Get(0).(payment.Snapshot), args.Error(1)
}

func (m *MockPaymentUseCase) Confirm(ctx context.Context, intentID string, bookingID int64) (payment.Snapshot, error) {
	args := m.Called(ctx, intentID, bookingID)
	return args.Get(0).(payment.Snapshot), args.Error(1)
}

func (m *MockPaymentUseCase) PollStatus(ctx context.Context, intentID string) (domain.RemoteIntentStatus, error) {
	args := m.Called(ctx, intentID)
	return args.Get(0).(domain.RemoteIntentStatus), args.Error(1)
}

func (m *MockPaymentUseCase) Cancel(ctx context.Context, intentID string) (payment.Snapshot, error) {
	args := m.Called(ctx, intentID)
	return args.Get(0).(payment.Snapshot), args.Error(1)
}

func (m *MockPaymentUseCase) CancelBooking(ctx context.Context, bookingID int64, intentID string) (payment.Snapshot, error) {
	args := m.Called(ctx, bookingID, intentID)
	return args.Get(0).(payment.Snapshot), args.Error(1)
}

func (m *MockPaymentUseCase) Reset(bookingID int64) (payment.Snapshot, error) {
	args := m.Called(bookingID)
	return args.Get(0).(payment.Snapshot), args.Error(1)
}

func (m *MockPaymentUseCase) Snapshot(bookingID int64) payment.Snapshot {
	args := m.Called(bookingID)
	return args.Get(0).(payment.Snapshot)
}

func (m *MockPaymentUseCase) Reconcile(ctx context.Context, bookingID int64) (payment.Snapshot, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(payment.Snapshot), args.Error(1)
}

func (m *MockPaymentUseCase) MarkPaidOutOfBand(ctx context.Context, bookingID int64) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func newTestContext(method, target string, body any, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	return c, w
}

func TestPaymentHandler_createIntent(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService)

	body := createIntentRequest{Kind: domain.BookingKindFlight, Reference: 7, Amount: 25000, Currency: "usd"}
	c, w := newTestContext("POST", "/api/payments/101/intent", body, gin.Params{{Key: "bookingId", Value: "101"}})

	snap := payment.Snapshot{
		BookingID: 101,
		State:     payment.StateAwaitingConfirmation,
		Intent:    &domain.PaymentIntent{ID: "pi_abc", ClientSecret: "pi_abc_secret_xyz", BookingID: 101},
	}
	mockService.On("CreateIntent", mock.Anything, int64(101), payment.IntentPayload{
		Kind: domain.BookingKindFlight, Reference: 7, Amount: 25000, Currency: "usd",
	}).Return(snap, nil)

	handler.createIntent(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response payment.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, payment.StateAwaitingConfirmation, response.State)
	assert.Equal(t, "pi_abc_secret_xyz", response.Intent.ClientSecret)
	mockService.AssertExpectations(t)
}

func TestPaymentHandler_createIntentBadBody(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService)

	c, w := newTestContext("POST", "/api/payments/101/intent", gin.H{"kind": "flight"}, gin.Params{{Key: "bookingId", Value: "101"}})
	handler.createIntent(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentHandler_confirmErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind apperr.Kind
	}{
		{name: "already confirmed", err: apperr.InvalidTransition("confirm", "not awaiting"), wantCode: http.StatusConflict, wantKind: apperr.KindInvalidTransition},
		{name: "rejected", err: apperr.Rejected("confirm payment", 402, "card declined"), wantCode: http.StatusBadGateway, wantKind: apperr.KindRemoteRejected},
		{name: "unreachable", err: apperr.Network("confirm payment", context.DeadlineExceeded), wantCode: http.StatusServiceUnavailable, wantKind: apperr.KindNetwork},
		{name: "signed out", err: apperr.Unauthenticated("confirm payment"), wantCode: http.StatusUnauthorized, wantKind: apperr.KindUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPaymentUseCase{}
			handler := NewPaymentHandler(mockService)

			c, w := newTestContext("POST", "/api/payments/101/confirm", intentIDRequest{IntentID: "pi_abc"}, gin.Params{{Key: "bookingId", Value: "101"}})
			mockService.On("Confirm", mock.Anything, "pi_abc", int64(101)).Return(payment.Snapshot{}, tt.err)

			handler.confirm(c)

			assert.Equal(t, tt.wantCode, w.Code)
			var response errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantKind, response.Kind)
		})
	}
}

func TestPaymentHandler_cancel(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService)

	c, w := newTestContext("POST", "/api/payments/101/cancel", intentIDRequest{IntentID: "pi_abc"}, gin.Params{{Key: "bookingId", Value: "101"}})
	mockService.On("CancelBooking", mock.Anything, int64(101), "pi_abc").Return(payment.Snapshot{BookingID: 101, State: payment.StateCanceled}, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"canceled"`)
	mockService.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestPaymentHandler_cancelForeignIntent(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService)

	c, w := newTestContext("POST", "/api/payments/5/cancel", intentIDRequest{IntentID: "pi_of_7"}, gin.Params{{Key: "bookingId", Value: "5"}})
	mockService.On("CancelBooking", mock.Anything, int64(5), "pi_of_7").
		Return(payment.Snapshot{}, apperr.InvalidTransition("cancel", "intent pi_of_7 does not belong to booking 5"))

	handler.cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockService.AssertExpectations(t)
}

func TestPaymentHandler_invalidBookingID(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService)

	c, w := newTestContext("POST", "/api/payments/abc/reset", nil, gin.Params{{Key: "bookingId", Value: "abc"}})
	handler.reset(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Reset", mock.Anything)
}

func TestPaymentHandler_markPaid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "confirmed", wantCode: http.StatusNoContent},
		{name: "unknown booking", err: payment.ErrBookingNotFound, wantCode: http.StatusNotFound},
		{name: "intent active", err: apperr.InvalidTransition("mark paid", "busy"), wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPaymentUseCase{}
			handler := NewPaymentHandler(mockService)

			c, w := newTestContext("POST", "/api/payments/5/mark-paid", nil, gin.Params{{Key: "bookingId", Value: "5"}})
			mockService.On("MarkPaidOutOfBand", mock.Anything, int64(5)).Return(tt.err)

			handler.markPaid(c)
			c.Writer.WriteHeaderNow() // flush pending status as gin.Engine does after handlers
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestPaymentHandler_status(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService)

	c, w := newTestContext("GET", "/api/payments/status/pi_abc", nil, gin.Params{{Key: "intentId", Value: "pi_abc"}})
	mockService.On("PollStatus", mock.Anything, "pi_abc").
		Return(domain.RemoteIntentStatus{Status: domain.IntentStatusProcessing, Amount: 100, Currency: "eur"}, nil)

	handler.status(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.RemoteIntentStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, domain.IntentStatusProcessing, response.Status)
}

func TestPaymentHandler_snapshotAndReconcile(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService)
	mockService.On("Snapshot", int64(9)).Return(payment.Snapshot{BookingID: 9, State: payment.StateIdle})
	mockService.On("Reconcile", mock.Anything, int64(9)).Return(payment.Snapshot{BookingID: 9, State: payment.StateSucceeded}, nil)

	c, w := newTestContext("GET", "/api/payments/9", nil, gin.Params{{Key: "bookingId", Value: "9"}})
	handler.snapshot(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"idle"`)

	c, w = newTestContext("POST", "/api/payments/9/reconcile", nil, gin.Params{{Key: "bookingId", Value: "9"}})
	handler.reconcile(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"succeeded"`)
}
