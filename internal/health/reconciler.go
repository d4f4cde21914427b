// Package health reconciles local webhook state with the provider's view.
package health

import (
	"context"
	"time"

	"clickup-bridge/internal/clickup"
	"clickup-bridge/internal/webhooks"
	"clickup-bridge/pkg/logger"
	"clickup-bridge/pkg/metrics"
	"clickup-bridge/pkg/retry"
)

// WebhookLister is the provider surface the reconciler needs
type WebhookLister interface {
	ListWebhooks(ctx context.Context, workspaceID string) ([]clickup.Webhook, error)
}

// Reconciler pulls the provider's webhook health and folds it into the
// registry. It is fail-soft: a bad provider response degrades to a warning,
// never an outage of the receiving path.
type Reconciler struct {
	api         WebhookLister
	registry    *webhooks.Registry
	workspaceID string
	retryConfig *retry.Config
	logger      logger.Logger
	metrics     *metrics.Metrics
}

// NewReconciler creates a reconciler for one workspace
func NewReconciler(api WebhookLister, registry *webhooks.Registry, workspaceID string, log logger.Logger) *Reconciler {
	return &Reconciler{
		api:         api,
		registry:    registry,
		workspaceID: workspaceID,
		retryConfig: retry.HealthCheckConfig,
		logger:      log,
		metrics:     metrics.GetGlobal(),
	}
}

// WithRetryConfig overrides the listing retry policy
func (r *Reconciler) WithRetryConfig(cfg *retry.Config) *Reconciler {
	r.retryConfig = cfg
	return r
}

// Run executes one reconciliation pass. Transport failures of the listing
// are retried with a fixed backoff; an HTTP error response is logged and
// skipped without retry.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.workspaceID == "" {
		r.logger.Info("no workspace configured, skipping webhook health check")
		r.metrics.RecordReconcilerRun("skipped")
		return nil
	}

	remotes, err := retry.ExecuteWithResult(ctx, r.retryConfig, func(ctx context.Context, attempt int) ([]clickup.Webhook, error) {
		return r.api.ListWebhooks(ctx, r.workspaceID)
	})
	if err != nil {
		if apiErr, ok := clickup.IsAPIError(err); ok {
			r.logger.Warn("webhook health check request failed",
				"workspace_id", r.workspaceID,
				"status", apiErr.StatusCode,
				"error", apiErr.Message,
			)
			r.metrics.RecordReconcilerRun("failed")
			return nil
		}
		r.logger.Error("webhook health check unreachable", "workspace_id", r.workspaceID, "error", err)
		r.metrics.RecordReconcilerRun("error")
		return err
	}

	checked := 0
	changed := 0
	now := time.Now().UTC()

	for i := range remotes {
		remote := &remotes[i]

		registration, findErr := r.registry.FindByRemoteID(ctx, remote.ID)
		if findErr != nil {
			// Remote webhooks this service never registered are not ours
			// to track.
			r.logger.Debug("skipping webhook with no local registration", "webhook_id", remote.ID)
			continue
		}

		previous := registration.HealthStatus
		if previous == "" {
			previous = webhooks.HealthActive
		}
		current := webhooks.HealthStatus(remote.HealthStatus())
		failCount := remote.FailCount()

		if err := r.registry.SyncHealth(ctx, registration.ID, current, failCount, now); err != nil {
			r.logger.Error("failed to sync webhook health", "webhook_id", remote.ID, "error", err)
			continue
		}
		checked++

		if current != previous {
			changed++
			r.logger.Warn("webhook health status changed",
				"webhook_id", remote.ID,
				"previous", string(previous),
				"new", string(current),
				"fail_count", failCount,
				"endpoint", registration.Endpoint,
				"target_type", string(registration.TargetType),
				"target_id", registration.TargetID,
			)
			r.metrics.RecordStatusTransition(string(previous), string(current))

			if current.NeedsRecovery() {
				if err := r.registry.Disable(ctx, registration.ID); err != nil {
					r.logger.Error("failed to disable degraded webhook", "webhook_id", remote.ID, "error", err)
					continue
				}
				r.logger.Warn("webhook disabled pending recovery",
					"webhook_id", remote.ID,
					"health_status", string(current),
					"fail_count", failCount,
				)
				r.metrics.WebhooksAutoDisabled.Inc()
			}
		}
	}

	r.logger.Info("webhook health check completed",
		"workspace_id", r.workspaceID,
		"checked", checked,
		"changed", changed,
	)
	r.metrics.RecordReconcilerRun("success")
	return nil
}
