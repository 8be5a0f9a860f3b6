package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/gin-gonic/gin"
)

type BookingStore interface {
	List() []domain.Booking
	Get(id int64) (domain.Booking, bool)
	Remove(ctx context.Context, id int64) bool
	Merge(list []domain.Booking)
}

type BookingHandler struct {
	store BookingStore
}

func NewBookingHandler(store BookingStore) *BookingHandler {
	return &BookingHandler{store: store}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.PUT("", h.merge)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.remove)
}

func (h *BookingHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.List())
}

// merge folds a page of bookings the client fetched into the ledger, newest
// first, and answers with the merged list.
func (h *BookingHandler) merge(c *gin.Context) {
	var page []domain.Booking
	if err := c.ShouldBindJSON(&page); err != nil {
		badRequest(c, err.Error())
		return
	}
	for _, b := range page {
		if err := validBooking(b); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	h.store.Merge(page)
	c.JSON(http.StatusOK, h.store.List())
}

func validBooking(b domain.Booking) error {
	if b.ID <= 0 {
		return fmt.Errorf("booking id %d is not valid", b.ID)
	}
	if !b.Status.Valid() {
		return fmt.Errorf("booking %d has unknown status %q", b.ID, b.Status)
	}
	if b.Kind != domain.BookingKindFlight && b.Kind != domain.BookingKindHotel {
		return fmt.Errorf("booking %d has unknown kind %q", b.ID, b.Kind)
	}
	return nil
}

func (h *BookingHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}
	booking, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "booking not found"})
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}
	if !h.store.Remove(c.Request.Context(), id) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "booking not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
