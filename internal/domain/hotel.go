package domain

type Hotel struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	CityID   int64   `json:"city_id"`
	Rating   float64 `json:"rating"`
	PriceMin int64   `json:"price_min"`
	Address  string  `json:"address,omitempty"`
}

type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

type HotelPage struct {
	Hotels     []Hotel    `json:"hotels"`
	Pagination Pagination `json:"pagination"`
}

// SuggestedHotelsQuery is a suggested-hotels lookup for one city.
type SuggestedHotelsQuery struct {
	CityID    int64   `json:"city_id" validate:"gt=0"`
	Page      int     `json:"page" validate:"gte=0"`
	PerPage   int     `json:"per_page" validate:"gte=0,lte=100"`
	Rating    float64 `json:"rating" validate:"gte=0,lte=5"`
	SortBy    string  `json:"sort_by" validate:"omitempty,oneof=price rating name"`
	SortOrder string  `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// Normalized fills defaults so equivalent queries compare equal.
func (q SuggestedHotelsQuery) Normalized() SuggestedHotelsQuery {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if q.SortBy == "" {
		q.SortOrder = ""
	} else if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	return q
}
