package bootstrap

import (
	"context"
	"encoding/json"
	"strings"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/travelsync/api"
	"github.com/Domenick1991/travelsync/config"
	"github.com/Domenick1991/travelsync/internal/cache"
	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/notify"
	"github.com/Domenick1991/travelsync/internal/registry"
	"github.com/Domenick1991/travelsync/internal/remote"
	"github.com/Domenick1991/travelsync/internal/service/favorites"
	"github.com/Domenick1991/travelsync/internal/service/hotels"
	"github.com/Domenick1991/travelsync/internal/service/payment"
	"github.com/Domenick1991/travelsync/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type offlineRemote struct{}

func (offlineRemote) SuggestedHotels(context.Context, domain.SuggestedHotelsQuery) (*domain.HotelPage, error) {
	return &domain.HotelPage{}, nil
}

func (offlineRemote) Me(context.Context) (*domain.User, error) {
	return &domain.User{ID: 1}, nil
}

func (offlineRemote) ToggleFavorite(context.Context, domain.FavoriteKind, int64) error {
	return nil
}

func (offlineRemote) CreatePaymentIntent(context.Context, domain.BookingKind, int64, remote.IntentRequest) (remote.CreatedIntent, error) {
	return remote.CreatedIntent{ID: "pi_abc", ClientSecret: "pi_abc_secret_xyz"}, nil
}

func (offlineRemote) ConfirmPayment(_ context.Context, req remote.ConfirmRequest) (remote.ConfirmResult, error) {
	return remote.ConfirmResult{BookingID: req.BookingID, Status: domain.BookingStatusConfirmed}, nil
}

func (offlineRemote) PaymentStatus(context.Context, string) (domain.RemoteIntentStatus, error) {
	return domain.RemoteIntentStatus{Status: domain.IntentStatusPending}, nil
}

func (offlineRemote) CancelPayment(context.Context, string) error {
	return nil
}

func testRouter(t *testing.T) (*gin.Engine, *registry.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := session.NewStaticToken("")
	reg := registry.New()
	hub := notify.NewHub(10)
	fav := favorites.NewStore(offlineRemote{}, tokens, favorites.WithNotifier(hub))
	hotelSvc := hotels.NewHotelService(offlineRemote{}, cache.New[*domain.HotelPage](time.Minute, nil))
	paySvc := payment.NewPaymentService(offlineRemote{}, reg)

	return NewRouter(Handlers{
		Hotels:        api.NewHotelHandler(hotelSvc),
		Favorites:     api.NewFavoriteHandler(fav),
		Bookings:      api.NewBookingHandler(reg),
		Payments:      api.NewPaymentHandler(paySvc),
		Notifications: api.NewNotificationHandler(hub),
		Session:       api.NewSessionHandler(tokens, time.Hour, []api.SessionResetter{fav}, hotelSvc.ClearCache, paySvc.Clear, reg.Clear),
	}), reg
}

func TestRouter_Health(t *testing.T) {
	router, _ := testRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	router, _ := testRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "travelsync_http_requests_total")
}

func TestRouter_Routes(t *testing.T) {
	router, reg := testRouter(t)
	reg.Upsert(domain.Booking{ID: 101, Status: domain.BookingStatusPending})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bookings/101", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/payments/101", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap payment.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, payment.StateIdle, snap.State)

	// no session token yet
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/favorites/hotel/3", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sign in")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, reg.Len())
}

func TestRouter_LogoutDropsPaymentState(t *testing.T) {
	router, reg := testRouter(t)

	w := httptest.NewRecorder()
	body := `{"kind":"hotel","reference":7,"amount":12000,"currency":"eur"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments/101/intent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "pi_abc_secret_xyz")

	// the intent put a pending row in the ledger
	b, ok := reg.Get(101)
	require.True(t, ok)
	assert.Equal(t, domain.BookingStatusPending, b.Status)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/payments/101", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	var snap payment.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, payment.StateIdle, snap.State)
	assert.Equal(t, 0, reg.Len())
}

func TestRun_StopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "127.0.0.1:0"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, Handlers{
			Hotels:        api.NewHotelHandler(nil),
			Favorites:     api.NewFavoriteHandler(nil),
			Bookings:      api.NewBookingHandler(nil),
			Payments:      api.NewPaymentHandler(nil),
			Notifications: api.NewNotificationHandler(nil),
			Session:       api.NewSessionHandler(nil, time.Hour, nil),
		})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
