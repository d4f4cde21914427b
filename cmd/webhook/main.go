package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"clickup-bridge/internal/config"
	"clickup-bridge/internal/database"
	"clickup-bridge/internal/events"
	"clickup-bridge/internal/messaging"
	"clickup-bridge/internal/webhooks"
	"clickup-bridge/pkg/logger"
	"clickup-bridge/pkg/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("webhook").Fatal("Failed to load config", "error", err)
	}

	log := logger.NewWithConfig("webhook", &logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stdout",
	})

	metrics.SetGlobal(metrics.New(&metrics.Config{
		Enabled:     cfg.Metrics.Enabled,
		Path:        cfg.Metrics.Path,
		Namespace:   cfg.Metrics.Namespace,
		ServiceName: "webhook",
	}))

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	registry := webhooks.NewRegistry(db.DB)
	ledger := webhooks.NewLedger(db.DB)
	deduplicator := webhooks.NewDeduplicator(ledger)
	verifier := webhooks.NewVerifier(registry, log)

	dispatcher := events.NewDispatcher(log)
	dispatcher.SubscribeAll(func(ctx context.Context, event events.DomainEvent) error {
		args := []any{"event", string(event.EventType()), "source", string(event.EventSource())}
		if task, ok := event.(events.TaskIdentifier); ok {
			args = append(args, "task_id", task.TaskID())
		}
		log.Debug("event dispatched", args...)
		return nil
	})

	if cfg.Kafka.Enabled {
		publisher, err := messaging.NewPublisher(cfg.Kafka, logger.New("kafka-publisher"))
		if err != nil {
			log.Fatal("Failed to create Kafka publisher", "error", err)
		}
		defer publisher.Close()
		dispatcher.SubscribeAll(publisher.Handler())
		log.Info("Kafka event bridge enabled", "topic", cfg.Kafka.Topic)
	}

	service := webhooks.NewService(verifier, deduplicator, registry, ledger, dispatcher, log)
	handler := webhooks.NewHandler(service, log, cfg.Webhook.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(cfg.Webhook.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Post(cfg.Webhook.Path, handler.Receive)

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.GetGlobal().Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Webhook.Host, cfg.Webhook.Port),
		Handler:      r,
		ReadTimeout:  cfg.Webhook.ReadTimeout,
		WriteTimeout: cfg.Webhook.WriteTimeout,
		IdleTimeout:  cfg.Webhook.IdleTimeout,
	}

	go func() {
		log.Info("Starting webhook server", "addr", server.Addr, "path", cfg.Webhook.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start webhook server", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Received shutdown signal, stopping webhook server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Webhook.RequestTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	log.Info("Webhook server stopped")
}
