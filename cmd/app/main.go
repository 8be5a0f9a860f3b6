package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/travelsync/api"
	"github.com/Domenick1991/travelsync/config"
	"github.com/Domenick1991/travelsync/internal/bootstrap"
	"github.com/Domenick1991/travelsync/internal/cache"
	"github.com/Domenick1991/travelsync/internal/clock"
	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/kafka"
	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/Domenick1991/travelsync/internal/notify"
	"github.com/Domenick1991/travelsync/internal/registry"
	"github.com/Domenick1991/travelsync/internal/remote"
	"github.com/Domenick1991/travelsync/internal/service/favorites"
	"github.com/Domenick1991/travelsync/internal/service/hotels"
	"github.com/Domenick1991/travelsync/internal/service/payment"
	"github.com/Domenick1991/travelsync/internal/session"
)

type tokenStore interface {
	session.TokenSource
	api.TokenStore
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tokens tokenStore
	if cfg.Session.Token != "" || cfg.Redis.Addr == "" {
		tokens = session.NewStaticToken(cfg.Session.Token)
	} else {
		store := session.NewRedisTokenStore(cfg.Redis, cfg.Session.ID)
		defer store.Close()
		tokens = store
	}

	client := remote.NewClient(cfg.API.BaseURL, tokens,
		remote.WithTimeout(cfg.API.Timeout()),
		remote.WithRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst),
	)

	hub := notify.NewHub(100)
	var (
		registryOpts []registry.Option
		favoriteOpts = []favorites.StoreOption{favorites.WithNotifier(hub)}
		paymentOpts  []payment.PaymentServiceOption
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka unavailable, sync events will be dropped", "error", err)
		}
		topic := cfg.Kafka.EventsTopic
		publisher := producer.WithRetries(cfg.Kafka.PublishRetries)
		registryOpts = append(registryOpts, registry.WithPublisher(publisher, topic))
		favoriteOpts = append(favoriteOpts, favorites.WithPublisher(publisher, topic))
		paymentOpts = append(paymentOpts, payment.WithPublisher(publisher, topic))
	}

	bookings := registry.New(registryOpts...)
	bookings.Subscribe(func(ch registry.Change) {
		logger.Debug("booking registry changed", "type", ch.Type, "booking_id", ch.Booking.ID, "status", ch.Booking.Status)
	})

	favoriteStore := favorites.NewStore(client, tokens, favoriteOpts...)
	if client.Authenticated(ctx) {
		if err := favoriteStore.Hydrate(ctx); err != nil {
			logger.Warn("initial favorites hydration failed", "error", err)
		}
	}

	hotelService := hotels.NewHotelService(client, cache.New[*domain.HotelPage](cfg.Cache.TTL(), clock.NewSystemClock()))
	paymentService := payment.NewPaymentService(client, bookings, paymentOpts...)

	go reconcileLoop(ctx, paymentService, cfg.Worker.ReconcileInterval())

	handlers := bootstrap.Handlers{
		Hotels:        api.NewHotelHandler(hotelService),
		Favorites:     api.NewFavoriteHandler(favoriteStore),
		Bookings:      api.NewBookingHandler(bookings),
		Payments:      api.NewPaymentHandler(paymentService),
		Notifications: api.NewNotificationHandler(hub),
		Session: api.NewSessionHandler(tokens, cfg.Session.TTL(),
			[]api.SessionResetter{favoriteStore},
			hotelService.ClearCache, paymentService.Clear, bookings.Clear,
		),
	}

	if err := bootstrap.Run(ctx, cfg, handlers); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// reconcileLoop settles intents whose outcome the client never reported.
func reconcileLoop(ctx context.Context, svc *payment.PaymentService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settled, err := svc.ReconcileAll(ctx)
			if err != nil {
				logger.Warn("reconcile payments", "error", err)
			}
			if settled > 0 {
				logger.Info("reconciled payments", "settled", settled)
			}
		}
	}
}
