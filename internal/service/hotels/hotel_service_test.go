package hotels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/travelsync/internal/apperr"
	"github.com/Domenick1991/travelsync/internal/cache"
	"github.com/Domenick1991/travelsync/internal/clock"
	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) SuggestedHotels(ctx context.Context, q domain.SuggestedHotelsQuery) (*domain.HotelPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HotelPage), args.Error(1)
}

func newService(clk clock.Clock) (*HotelService, *MockRemote) {
	rem := new(MockRemote)
	return NewHotelService(rem, cache.New[*domain.HotelPage](5*time.Minute, clk)), rem
}

func TestHotelService_SuggestedIsCached(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, rem := newService(clk)

	page := &domain.HotelPage{
		Hotels:     []domain.Hotel{{ID: 1, Name: "Grand", CityID: 12, Rating: 4.5}},
		Pagination: domain.Pagination{CurrentPage: 2, PerPage: 10, TotalPages: 3},
	}
	want := domain.SuggestedHotelsQuery{CityID: 12, Page: 2, PerPage: 10, Rating: 4, SortBy: "price", SortOrder: "desc"}
	rem.On("SuggestedHotels", mock.Anything, want).Return(page, nil).Once()

	got, err := svc.Suggested(context.Background(), domain.SuggestedHotelsQuery{CityID: 12, Page: 2, Rating: 4, SortBy: "price"})
	require.NoError(t, err)
	assert.Equal(t, page, got)

	clk.Advance(2 * time.Minute)
	// same query spelled out in full
	got, err = svc.Suggested(context.Background(), want)
	require.NoError(t, err)
	assert.Same(t, page, got)
	rem.AssertNumberOfCalls(t, "SuggestedHotels", 1)

	clk.Advance(4 * time.Minute)
	rem.On("SuggestedHotels", mock.Anything, want).Return(page, nil).Once()
	_, err = svc.Suggested(context.Background(), want)
	require.NoError(t, err)
	rem.AssertNumberOfCalls(t, "SuggestedHotels", 2)
}

func TestHotelService_FailureNotCached(t *testing.T) {
	svc, rem := newService(nil)
	q := domain.SuggestedHotelsQuery{CityID: 3}
	rejected := apperr.Rejected("suggested hotels", 500, "boom")

	rem.On("SuggestedHotels", mock.Anything, q.Normalized()).Return(nil, rejected).Once()
	_, err := svc.Suggested(context.Background(), q)
	assert.True(t, errors.Is(err, rejected))

	rem.On("SuggestedHotels", mock.Anything, q.Normalized()).Return(&domain.HotelPage{}, nil).Once()
	_, err = svc.Suggested(context.Background(), q)
	require.NoError(t, err)
	rem.AssertExpectations(t)
}

func TestHotelService_InvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		q    domain.SuggestedHotelsQuery
	}{
		{name: "missing city", q: domain.SuggestedHotelsQuery{}},
		{name: "rating out of range", q: domain.SuggestedHotelsQuery{CityID: 1, Rating: 7}},
		{name: "unknown sort", q: domain.SuggestedHotelsQuery{CityID: 1, SortBy: "distance"}},
		{name: "page too large", q: domain.SuggestedHotelsQuery{CityID: 1, PerPage: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rem := newService(nil)
			_, err := svc.Suggested(context.Background(), tt.q)
			require.Error(t, err)
			assert.Empty(t, apperr.KindOf(err))
			rem.AssertNotCalled(t, "SuggestedHotels", mock.Anything, mock.Anything)
		})
	}
}

func TestHotelService_ClearCache(t *testing.T) {
	svc, rem := newService(nil)
	q := domain.SuggestedHotelsQuery{CityID: 9}
	rem.On("SuggestedHotels", mock.Anything, q.Normalized()).Return(&domain.HotelPage{}, nil).Twice()

	_, err := svc.Suggested(context.Background(), q)
	require.NoError(t, err)
	svc.ClearCache()
	_, err = svc.Suggested(context.Background(), q)
	require.NoError(t, err)
	rem.AssertExpectations(t)
}

func TestSignature(t *testing.T) {
	q := domain.SuggestedHotelsQuery{CityID: 12, Page: 2, PerPage: 10, Rating: 4, SortBy: "price", SortOrder: "desc"}
	assert.Equal(t, "hotels:city=12|page=2|per_page=10|rating=4|sort_by=price|sort_order=desc", Signature(q))

	plain := domain.SuggestedHotelsQuery{CityID: 12}.Normalized()
	assert.Equal(t, "hotels:city=12|page=1|per_page=10", Signature(plain))
}
