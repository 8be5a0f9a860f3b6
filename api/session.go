package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/gin-gonic/gin"
)

type TokenStore interface {
	Save(ctx context.Context, token string, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// SessionResetter is everything that holds per-user state and must be
// refilled on login or dropped on logout.
type SessionResetter interface {
	Hydrate(ctx context.Context) error
	Clear()
}

type SessionHandler struct {
	tokens TokenStore
	ttl    time.Duration
	state  []SessionResetter
	purge  []func()
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// NewSessionHandler builds the login/logout handler. purge runs on logout for
// state that is not hydrated from the backend (caches, ledgers).
func NewSessionHandler(tokens TokenStore, ttl time.Duration, state []SessionResetter, purge ...func()) *SessionHandler {
	return &SessionHandler{tokens: tokens, ttl: ttl, state: state, purge: purge}
}

func (h *SessionHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.login)
	router.DELETE("", h.logout)
}

func (h *SessionHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	if err := h.tokens.Save(ctx, req.Token, h.ttl); err != nil {
		writeError(c, err)
		return
	}
	for _, s := range h.state {
		if err := s.Hydrate(ctx); err != nil {
			writeError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) logout(c *gin.Context) {
	if err := h.tokens.Delete(c.Request.Context()); err != nil {
		logger.Warn("delete session token", "error", err)
	}
	for _, s := range h.state {
		s.Clear()
	}
	for _, fn := range h.purge {
		fn()
	}
	c.Status(http.StatusNoContent)
}
