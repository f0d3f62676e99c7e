package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/config"
	"github.com/ukydev/cars-service-log/internal/db"
	"github.com/ukydev/cars-service-log/internal/handlers"
	"github.com/ukydev/cars-service-log/internal/logging"
	"github.com/ukydev/cars-service-log/internal/metrics"
	"github.com/ukydev/cars-service-log/internal/middleware"
	"github.com/ukydev/cars-service-log/internal/notify"
	"github.com/ukydev/cars-service-log/internal/servicelog"
)

const shutdownTimeout = 10 * time.Second

// app is the wired server with everything it owns.
type app struct {
	server    *http.Server
	manager   *servicelog.Manager
	watcher   *notify.Watcher
	store     db.KeyValueStore
	publisher notify.Publisher
	log       *logrus.Entry
}

func newApp(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*app, error) {
	log := logrus.NewEntry(logger)

	store, err := db.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.WithField("driver", cfg.Storage.Driver).Info("Opened store")

	mt := metrics.New()
	manager := servicelog.New(store,
		servicelog.WithLogger(log),
		servicelog.WithMetrics(mt),
		servicelog.WithPersistTimeout(cfg.PersistTimeout),
		servicelog.WithKeyPrefix(cfg.StorageKeyPrefix),
	)
	manager.Load(ctx)

	var publisher notify.Publisher
	if cfg.MQTTBroker != "" {
		mp, err := notify.NewMQTTPublisher(notify.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		if err != nil {
			log.WithError(err).Warn("MQTT unavailable, logging due alerts instead")
			publisher = notify.NewLogPublisher(log)
		} else {
			log.WithField("broker", cfg.MQTTBroker).Info("Connected to MQTT broker")
			publisher = mp
		}
	} else {
		publisher = notify.NewLogPublisher(log)
	}
	watcher := notify.NewWatcher(manager, publisher, cfg.AlertInterval,
		notify.WithLogger(log),
		notify.WithMetrics(mt),
	)

	h := handlers.NewHandler(manager, log)
	limiter := middleware.NewRateLimitMiddleware()
	handler := middleware.Chain(h.Routes(mt),
		middleware.Recover(log),
		middleware.Logging(log, mt),
		limiter.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow),
	)

	return &app{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		manager:   manager,
		watcher:   watcher,
		store:     store,
		publisher: publisher,
		log:       log,
	}, nil
}

// run serves until ctx is cancelled or the listener fails.
func (a *app) run(ctx context.Context) error {
	go a.watcher.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.server.Addr).Info("HTTP server listening")
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *app) close() {
	if err := a.publisher.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close alert publisher")
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}
	defer a.close()

	if err := a.run(ctx); err != nil {
		logger.WithError(err).Error("Server stopped")
		return
	}
	logger.Info("Server stopped")
}
