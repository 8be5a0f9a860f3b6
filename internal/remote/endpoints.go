package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/tidwall/gjson"
)

// Me fetches the current user with the embedded favorites list.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	const op = "get profile"
	root, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/api/me", envelope: dataEnvelope})
	if err != nil {
		return nil, err
	}

	obj := payload(root)
	if obj.Get("user").IsObject() {
		obj = obj.Get("user")
	}
	id := obj.Get("id")
	if !id.Exists() {
		return nil, malformed(op, "missing user id")
	}

	user := &domain.User{
		ID:    id.Int(),
		Name:  obj.Get("name").String(),
		Email: obj.Get("email").String(),
	}
	for _, fav := range obj.Get("favorites").Array() {
		kind, err := domain.ParseFavoriteKind(fav.Get("favoritable_type").String())
		if err != nil {
			logger.Warn("skipping favorite of unknown type", "type", fav.Get("favoritable_type").String())
			continue
		}
		favID := fav.Get("favoritable_id")
		if !favID.Exists() {
			return nil, malformed(op, "favorite without favoritable_id")
		}
		user.Favorites = append(user.Favorites, domain.FavoriteRef{Kind: kind, ID: favID.Int()})
	}
	return user, nil
}

// ToggleFavorite flips membership of one entity on the server.
func (c *Client) ToggleFavorite(ctx context.Context, kind domain.FavoriteKind, id int64) error {
	_, err := c.do(ctx, request{
		op:       "toggle favorite",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/api/favorite/%s/%d", kind, id),
		envelope: statusEnvelope,
	})
	return err
}

// SuggestedHotels fetches one page of suggested hotels for a city.
func (c *Client) SuggestedHotels(ctx context.Context, q domain.SuggestedHotelsQuery) (*domain.HotelPage, error) {
	const op = "suggested hotels"
	q = q.Normalized()

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	if q.Rating > 0 {
		params.Set("rating", strconv.FormatFloat(q.Rating, 'f', -1, 64))
	}
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
		params.Set("sort_order", q.SortOrder)
	}

	root, err := c.do(ctx, request{
		op:       op,
		method:   http.MethodGet,
		path:     fmt.Sprintf("/api/cities/%d/hotels?%s", q.CityID, params.Encode()),
		envelope: statusEnvelope,
	})
	if err != nil {
		return nil, err
	}

	list := root.Get("data")
	if list.IsObject() && list.Get("data").IsArray() {
		list = list.Get("data")
	}
	if !list.IsArray() {
		return nil, malformed(op, "data is not a list")
	}
	pag := root.Get("pagination")
	if !pag.IsObject() {
		pag = root.Get("data.pagination")
	}
	if !pag.IsObject() {
		return nil, malformed(op, "missing pagination")
	}

	page := &domain.HotelPage{Hotels: []domain.Hotel{}}
	if err := json.Unmarshal([]byte(list.Raw), &page.Hotels); err != nil {
		return nil, malformed(op, "hotel list: "+err.Error())
	}
	if err := json.Unmarshal([]byte(pag.Raw), &page.Pagination); err != nil {
		return nil, malformed(op, "pagination: "+err.Error())
	}
	return page, nil
}

// IntentRequest is the body sent when creating a payment intent.
type IntentRequest struct {
	BookingID int64          `json:"booking_id"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// CreatedIntent is the backend's answer to an intent creation.
type CreatedIntent struct {
	ID           string
	ClientSecret string
}

// CreatePaymentIntent asks the backend for a new intent. reference is the
// flight cabin id or hotel room id being paid for.
func (c *Client) CreatePaymentIntent(ctx context.Context, kind domain.BookingKind, reference int64, body IntentRequest) (CreatedIntent, error) {
	const op = "create payment intent"
	path := fmt.Sprintf("/api/payments/flight-booking/%d", reference)
	if kind == domain.BookingKindHotel {
		path = fmt.Sprintf("/api/payments/hotel-booking/%d", reference)
	}

	root, err := c.do(ctx, request{op: op, method: http.MethodPost, path: path, body: body, envelope: statusEnvelope})
	if err != nil {
		return CreatedIntent{}, err
	}

	secret := root.Get("data.0")
	if !root.Get("data").IsArray() || secret.Type != gjson.String || secret.String() == "" {
		return CreatedIntent{}, malformed(op, "data must hold the client secret")
	}
	return CreatedIntent{ID: IntentIDFromSecret(secret.String()), ClientSecret: secret.String()}, nil
}

// IntentIDFromSecret strips the "_secret_..." suffix processors append to the
// intent id to form the client secret.
func IntentIDFromSecret(secret string) string {
	if i := strings.Index(secret, "_secret_"); i > 0 {
		return secret[:i]
	}
	return secret
}

type ConfirmRequest struct {
	IntentID       string `json:"payment_intent_id"`
	BookingID      int64  `json:"booking_id"`
	IdempotencyKey string `json:"-"`
}

// ConfirmResult is the booking as reported after confirmation. Status is
// empty when the backend did not echo it.
type ConfirmResult struct {
	BookingID int64
	Status    domain.BookingStatus
}

func (c *Client) ConfirmPayment(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	const op = "confirm payment"
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	root, err := c.do(ctx, request{
		op:       op,
		method:   http.MethodPost,
		path:     "/api/payments/confirm",
		body:     req,
		headers:  headers,
		envelope: statusEnvelope,
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	res := ConfirmResult{BookingID: req.BookingID}
	data := root.Get("data")
	if data.IsObject() {
		if b := data.Get("booking"); b.IsObject() {
			data = b
		}
		if id := data.Get("id"); id.Exists() {
			res.BookingID = id.Int()
		}
		if st := domain.BookingStatus(strings.ToLower(data.Get("status").String())); st.Valid() {
			res.Status = st
		}
	}
	return res, nil
}

// PaymentStatus reads the backend's view of an intent without changing it.
func (c *Client) PaymentStatus(ctx context.Context, intentID string) (domain.RemoteIntentStatus, error) {
	const op = "payment status"
	root, err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/api/payments/status/" + url.PathEscape(intentID),
	})
	if err != nil {
		return domain.RemoteIntentStatus{}, err
	}

	obj := payload(root)
	status, ok := parseIntentStatus(obj.Get("status").String())
	if !ok {
		return domain.RemoteIntentStatus{}, malformed(op, fmt.Sprintf("unknown intent status %q", obj.Get("status").String()))
	}
	return domain.RemoteIntentStatus{
		Status:   status,
		Amount:   obj.Get("amount").Int(),
		Currency: obj.Get("currency").String(),
	}, nil
}

// CancelPayment asks the backend to cancel an intent.
func (c *Client) CancelPayment(ctx context.Context, intentID string) error {
	_, err := c.do(ctx, request{
		op:       "cancel payment",
		method:   http.MethodPost,
		path:     "/api/payments/cancel/" + url.PathEscape(intentID),
		envelope: statusEnvelope,
	})
	return err
}

// parseIntentStatus maps processor vocabulary onto IntentStatus.
func parseIntentStatus(raw string) (domain.IntentStatus, bool) {
	switch strings.ToLower(raw) {
	case "pending", "requires_payment_method", "requires_confirmation", "requires_action":
		return domain.IntentStatusPending, true
	case "processing":
		return domain.IntentStatusProcessing, true
	case "succeeded":
		return domain.IntentStatusSucceeded, true
	case "failed":
		return domain.IntentStatusFailed, true
	case "canceled", "cancelled":
		return domain.IntentStatusCanceled, true
	}
	return "", false
}
