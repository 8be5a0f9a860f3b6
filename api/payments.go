package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
}

type createIntentRequest struct {
	Kind      domain.BookingKind `json:"kind" binding:"required"`
	Reference int64              `json:"reference" binding:"required"`
	Amount    int64              `json:"amount" binding:"required"`
	Currency  string             `json:"currency" binding:"required"`
	Extra     map[string]any     `json:"extra"`
}

type intentIDRequest struct {
	IntentID string `json:"intent_id" binding:"required"`
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.GET("/status/:intentId", h.status)
	router.GET("/:bookingId", h.snapshot)
	router.POST("/:bookingId/intent", h.createIntent)
	router.POST("/:bookingId/confirm", h.confirm)
	router.POST("/:bookingId/cancel", h.cancel)
	router.POST("/:bookingId/reset", h.reset)
	router.POST("/:bookingId/reconcile", h.reconcile)
	router.POST("/:bookingId/mark-paid", h.markPaid)
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("bookingId"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid booking id")
		return 0, false
	}
	return id, true
}

func (h *PaymentHandler) createIntent(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	snap, err := h.service.CreateIntent(c.Request.Context(), id, payment.IntentPayload{
		Kind:      req.Kind,
		Reference: req.Reference,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Extra:     req.Extra,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *PaymentHandler) confirm(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req intentIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	snap, err := h.service.Confirm(c.Request.Context(), req.IntentID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *PaymentHandler) cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req intentIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	snap, err := h.service.CancelBooking(c.Request.Context(), id, req.IntentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *PaymentHandler) reset(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	snap, err := h.service.Reset(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *PaymentHandler) reconcile(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	snap, err := h.service.Reconcile(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *PaymentHandler) markPaid(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	if err := h.service.MarkPaidOutOfBand(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PaymentHandler) snapshot(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.Snapshot(id))
}

func (h *PaymentHandler) status(c *gin.Context) {
	status, err := h.service.PollStatus(c.Request.Context(), c.Param("intentId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
