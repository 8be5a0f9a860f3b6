package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/travelsync/config"
	"github.com/Domenick1991/travelsync/internal/email"
	"github.com/Domenick1991/travelsync/internal/kafka"
	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/Domenick1991/travelsync/internal/remote"
	"github.com/Domenick1991/travelsync/internal/service/payment"
	"github.com/Domenick1991/travelsync/internal/session"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tokens session.TokenSource = session.NewStaticToken(cfg.Session.Token)
	if cfg.Session.Token == "" && cfg.Redis.Addr != "" {
		store := session.NewRedisTokenStore(cfg.Redis, cfg.Session.ID)
		defer store.Close()
		tokens = store
	}
	client := remote.NewClient(cfg.API.BaseURL, tokens,
		remote.WithTimeout(cfg.API.Timeout()),
		remote.WithRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.EventsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()
	watcher := payment.NewWatcher(client)

	go func() {
		if err := consumer.Consume(ctx, kafka.SyncEventHandler(func(ctx context.Context, event kafka.SyncEvent) error {
			watcher.Observe(event)
			if err := emailSender.Send(ctx, event); err != nil {
				logger.Warn("send email", "type", event.Type, "error", err)
			}
			return nil
		})); err != nil {
			logger.Warn("consumer stopped", "error", err)
		}
	}()

	sweepTicker := time.NewTicker(cfg.Worker.ReconcileInterval())
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			settled, err := watcher.Sweep(ctx)
			if err != nil {
				logger.Warn("sweep payment intents", "error", err)
			}
			for _, event := range settled {
				if err := emailSender.Send(ctx, event); err != nil {
					logger.Warn("send email", "type", event.Type, "error", err)
				}
			}
			if len(settled) > 0 {
				logger.Info("payment intents settled out of band", "count", len(settled), "pending", watcher.Pending())
			}
		case s := <-sig:
			logger.Info("shutting down", "signal", s.String())
			return
		}
	}
}
