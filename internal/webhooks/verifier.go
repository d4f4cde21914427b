package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"clickup-bridge/pkg/errors"
	"clickup-bridge/pkg/logger"
)

// Verifier authenticates inbound deliveries with the per-registration HMAC
// secret before anything is persisted.
type Verifier struct {
	registry *Registry
	logger   logger.Logger
}

// NewVerifier creates a verifier over the registry
func NewVerifier(registry *Registry, log logger.Logger) *Verifier {
	return &Verifier{
		registry: registry,
		logger:   log,
	}
}

// Verify checks the signature header against HMAC-SHA256 of the raw body
// keyed with the registration's secret. It returns the matched registration
// on success. Rejections carry the response message in the AppError; the
// secret itself never reaches a log line.
func (v *Verifier) Verify(ctx context.Context, remoteWebhookID, signature string, body []byte, clientIP string) (*WebhookRegistration, error) {
	if signature == "" {
		v.logger.Warn("webhook delivery missing signature", "ip", clientIP, "webhook_id", remoteWebhookID)
		return nil, errors.AuthenticationError(errors.CodeSignatureMissing, "Signature missing")
	}

	if remoteWebhookID == "" {
		v.logger.Warn("webhook delivery missing webhook id", "ip", clientIP)
		return nil, errors.ValidationError(errors.CodeMissingField, "Webhook ID missing")
	}

	registration, err := v.registry.FindByRemoteID(ctx, remoteWebhookID)
	if err != nil {
		if appErr := errors.GetAppError(err); appErr != nil && appErr.Type == errors.ErrorTypeNotFound {
			v.logger.Warn("webhook delivery for unknown webhook", "ip", clientIP, "webhook_id", remoteWebhookID)
			return nil, errors.AuthenticationError(errors.CodeWebhookUnknown, "Invalid webhook")
		}
		return nil, err
	}
	if registration.Secret == "" {
		v.logger.Warn("webhook registration has no secret", "ip", clientIP, "webhook_id", remoteWebhookID)
		return nil, errors.AuthenticationError(errors.CodeWebhookUnknown, "Invalid webhook")
	}

	mac := hmac.New(sha256.New, []byte(registration.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		v.logger.Warn("webhook delivery signature mismatch", "ip", clientIP, "webhook_id", remoteWebhookID)
		return nil, errors.AuthenticationError(errors.CodeSignatureInvalid, "Invalid signature")
	}

	return registration, nil
}
