package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/travelsync/api"
	"github.com/Domenick1991/travelsync/config"
	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Handlers is the set of BFF route groups mounted under /api.
type Handlers struct {
	Hotels        *api.HotelHandler
	Favorites     *api.FavoriteHandler
	Bookings      *api.BookingHandler
	Payments      *api.PaymentHandler
	Notifications *api.NotificationHandler
	Session       *api.SessionHandler
}

func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestMetrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	group := router.Group("/api")
	h.Hotels.Register(group.Group("/hotels"))
	h.Favorites.Register(group.Group("/favorites"))
	h.Bookings.Register(group.Group("/bookings"))
	h.Payments.Register(group.Group("/payments"))
	h.Notifications.Register(group.Group("/notifications"))
	h.Session.Register(group.Group("/session"))
	return router
}

// Run serves the BFF and blocks until ctx is canceled or the server fails.
func Run(ctx context.Context, cfg *config.Config, h Handlers) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
