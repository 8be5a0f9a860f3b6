package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/travelsync/internal/notify"
	"github.com/gin-gonic/gin"
)

const defaultNotificationLimit = 20

type NotificationFeed interface {
	Recent(n int) []notify.Notification
}

type NotificationHandler struct {
	feed NotificationFeed
}

func NewNotificationHandler(feed NotificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

func (h *NotificationHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.recent)
}

func (h *NotificationHandler) recent(c *gin.Context) {
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, h.feed.Recent(limit))
}
