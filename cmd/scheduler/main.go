package main

import (
	"os"
	"os/signal"
	"syscall"

	"clickup-bridge/internal/clickup"
	"clickup-bridge/internal/config"
	"clickup-bridge/internal/database"
	"clickup-bridge/internal/health"
	"clickup-bridge/internal/scheduler"
	"clickup-bridge/internal/webhooks"
	"clickup-bridge/pkg/logger"
	"clickup-bridge/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("scheduler").Fatal("Failed to load config", "error", err)
	}

	log := logger.NewWithConfig("scheduler", &logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stdout",
	})

	metrics.SetGlobal(metrics.New(&metrics.Config{
		Enabled:     cfg.Metrics.Enabled,
		Path:        cfg.Metrics.Path,
		Namespace:   cfg.Metrics.Namespace,
		ServiceName: "scheduler",
	}))

	if !cfg.Scheduler.Enabled {
		log.Info("Scheduler disabled, exiting")
		return
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	registry := webhooks.NewRegistry(db.DB)
	client := clickup.NewClient(cfg.ClickUp, logger.New("clickup"))
	reconciler := health.NewReconciler(client, registry, cfg.ClickUp.WorkspaceID, log)

	sched := scheduler.New(log)
	err = sched.Register(cfg.Scheduler.HealthCheckSchedule, scheduler.JobFunc{
		JobName: "webhook-health-check",
		Fn:      reconciler.Run,
	})
	if err != nil {
		log.Fatal("Failed to register health check job", "error", err)
	}

	sched.Start()
	log.Info("Scheduler started", "health_check_schedule", cfg.Scheduler.HealthCheckSchedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Received shutdown signal, stopping scheduler...")
	sched.Stop()
	log.Info("Scheduler stopped")
}
