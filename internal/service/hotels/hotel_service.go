package hotels

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Domenick1991/travelsync/internal/cache"
	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/go-playground/validator/v10"
)

type HotelUseCase interface {
	Suggested(ctx context.Context, q domain.SuggestedHotelsQuery) (*domain.HotelPage, error)
	ClearCache()
}

type Remote interface {
	SuggestedHotels(ctx context.Context, q domain.SuggestedHotelsQuery) (*domain.HotelPage, error)
}

type HotelService struct {
	remote   Remote
	cache    *cache.RequestCache[*domain.HotelPage]
	validate *validator.Validate
}

func NewHotelService(remote Remote, pages *cache.RequestCache[*domain.HotelPage]) *HotelService {
	return &HotelService{remote: remote, cache: pages, validate: validator.New()}
}

// Suggested returns one page of suggested hotels for a city, served from the
// request cache while fresh. Equivalent queries share one cache entry.
func (s *HotelService) Suggested(ctx context.Context, q domain.SuggestedHotelsQuery) (*domain.HotelPage, error) {
	q = q.Normalized()
	if err := s.validate.Struct(q); err != nil {
		return nil, fmt.Errorf("invalid hotels query: %w", err)
	}
	return s.cache.Get(ctx, Signature(q), func(ctx context.Context) (*domain.HotelPage, error) {
		return s.remote.SuggestedHotels(ctx, q)
	})
}

// ClearCache drops every cached page, e.g. on logout.
func (s *HotelService) ClearCache() {
	s.cache.Clear()
}

// Signature is the cache key of a normalized query.
func Signature(q domain.SuggestedHotelsQuery) string {
	filters := map[string]string{
		"city":       strconv.FormatInt(q.CityID, 10),
		"per_page":   strconv.Itoa(q.PerPage),
		"sort_by":    q.SortBy,
		"sort_order": q.SortOrder,
	}
	if q.Rating > 0 {
		filters["rating"] = strconv.FormatFloat(q.Rating, 'f', -1, 64)
	}
	return cache.Signature("hotels", q.Page, filters)
}

var _ HotelUseCase = (*HotelService)(nil)
