// Package recovery re-activates webhooks the provider has degraded.
package recovery

import (
	"context"
	"fmt"

	"clickup-bridge/internal/clickup"
	"clickup-bridge/internal/webhooks"
	"clickup-bridge/pkg/errors"
	"clickup-bridge/pkg/logger"
	"clickup-bridge/pkg/metrics"
)

// WebhookUpdater is the provider surface the operator needs
type WebhookUpdater interface {
	UpdateWebhook(ctx context.Context, webhookID string, req clickup.UpdateWebhookRequest) error
}

// Result aggregates a recovery pass over multiple webhooks
type Result struct {
	Attempted int
	Succeeded int
	Failed    int
	Failures  map[string]string
}

// Operator pushes degraded webhooks back to the active state. The local
// reset happens only after the provider confirms the re-activation.
type Operator struct {
	api      WebhookUpdater
	registry *webhooks.Registry
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewOperator creates a recovery operator
func NewOperator(api WebhookUpdater, registry *webhooks.Registry, log logger.Logger) *Operator {
	return &Operator{
		api:      api,
		registry: registry,
		logger:   log,
		metrics:  metrics.GetGlobal(),
	}
}

// RecoverOne recovers a single webhook by its provider id
func (o *Operator) RecoverOne(ctx context.Context, remoteWebhookID string) error {
	registration, err := o.registry.FindByRemoteID(ctx, remoteWebhookID)
	if err != nil {
		return err
	}
	return o.recover(ctx, registration)
}

// RecoverAll recovers every webhook currently needing recovery. The pass
// continues through individual failures; the returned error is non-nil
// when at least one webhook could not be recovered.
func (o *Operator) RecoverAll(ctx context.Context) (*Result, error) {
	registrations, err := o.registry.ListNeedingRecovery(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Failures: make(map[string]string)}
	if len(registrations) == 0 {
		o.logger.Info("no webhooks need recovery")
		return result, nil
	}

	for i := range registrations {
		registration := &registrations[i]
		result.Attempted++

		if err := o.recover(ctx, registration); err != nil {
			result.Failed++
			webhookID := ""
			if registration.RemoteID != nil {
				webhookID = *registration.RemoteID
			}
			result.Failures[webhookID] = recoveryReason(err)
			continue
		}
		result.Succeeded++
	}

	if result.Failed > 0 {
		return result, errors.Newf(errors.ErrorTypeExternal, errors.CodeExternalService,
			"recovered %d of %d webhooks", result.Succeeded, result.Attempted)
	}
	return result, nil
}

func (o *Operator) recover(ctx context.Context, registration *webhooks.WebhookRegistration) error {
	if registration.RemoteID == nil {
		return errors.ValidationError(errors.CodeInvalidInput, "registration has no remote webhook")
	}
	webhookID := *registration.RemoteID

	err := o.api.UpdateWebhook(ctx, webhookID, clickup.UpdateWebhookRequest{
		Endpoint: registration.Endpoint,
		Events:   registration.EventList(),
		Status:   "active",
	})
	if err != nil {
		o.logger.Error("webhook recovery failed",
			"webhook_id", webhookID,
			"endpoint", registration.Endpoint,
			"error", recoveryReason(err),
		)
		o.metrics.RecordRecovery("failed")
		return err
	}

	if err := o.registry.MarkRecovered(ctx, registration.ID); err != nil {
		o.metrics.RecordRecovery("failed")
		return err
	}

	o.logger.Info("webhook recovered",
		"webhook_id", webhookID,
		"endpoint", registration.Endpoint,
	)
	o.metrics.RecordRecovery("success")
	return nil
}

// recoveryReason extracts the provider's error string when one exists
func recoveryReason(err error) string {
	if apiErr, ok := clickup.IsAPIError(err); ok {
		return apiErr.Reason()
	}
	return fmt.Sprintf("%v", err)
}
