package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"clickup-bridge/pkg/errors"
	"clickup-bridge/pkg/logger"
	"clickup-bridge/pkg/metrics"
)

// EventDispatcher hands a verified delivery to its subscribers
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventName string, payload map[string]interface{}) error
}

// ReceiptStatus is the pipeline outcome reported to the provider
type ReceiptStatus string

const (
	ReceiptSuccess         ReceiptStatus = "success"
	ReceiptDuplicate       ReceiptStatus = "duplicate"
	ReceiptWebhookNotFound ReceiptStatus = "webhook_not_found"
)

// Receipt summarizes one accepted (or short-circuited) delivery
type Receipt struct {
	Status     ReceiptStatus
	DeliveryID uint
	Event      string
}

// Service runs the inbound delivery pipeline: verify, dedupe, record,
// dispatch, finalize.
type Service struct {
	verifier     *Verifier
	deduplicator *Deduplicator
	registry     *Registry
	ledger       *Ledger
	dispatcher   EventDispatcher
	logger       logger.Logger
	metrics      *metrics.Metrics
}

// NewService wires the pipeline
func NewService(verifier *Verifier, deduplicator *Deduplicator, registry *Registry, ledger *Ledger, dispatcher EventDispatcher, log logger.Logger) *Service {
	return &Service{
		verifier:     verifier,
		deduplicator: deduplicator,
		registry:     registry,
		ledger:       ledger,
		dispatcher:   dispatcher,
		logger:       log,
		metrics:      metrics.GetGlobal(),
	}
}

// Process runs one delivery through the pipeline. Rejections and internal
// failures come back as errors; duplicate and unknown-webhook outcomes are
// regular receipts.
func (s *Service) Process(ctx context.Context, body []byte, signature, clientIP string) (*Receipt, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		payload = map[string]interface{}{}
	}

	remoteWebhookID, _ := payload["webhook_id"].(string)
	eventName, _ := payload["event"].(string)

	registration, err := s.verifier.Verify(ctx, remoteWebhookID, signature, body, clientIP)
	if err != nil {
		if appErr := errors.GetAppError(err); appErr != nil {
			s.metrics.RecordRejection(string(appErr.Code))
		}
		return nil, err
	}

	// Duplicates short-circuit before the active check so provider retries
	// of an already-handled delivery stay cheap and idempotent.
	idempotencyKey := s.deduplicator.KeyFor(remoteWebhookID, payload)
	duplicate, err := s.deduplicator.IsDuplicate(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if duplicate {
		s.logger.Info("duplicate webhook delivery ignored",
			"webhook_id", remoteWebhookID,
			"idempotency_key", idempotencyKey,
		)
		s.metrics.RecordDuplicate(remoteWebhookID)
		return &Receipt{Status: ReceiptDuplicate, Event: eventName}, nil
	}

	if !registration.IsActive {
		s.logger.Warn("webhook delivery for inactive webhook",
			"webhook_id", remoteWebhookID,
			"event", eventName,
		)
		return &Receipt{Status: ReceiptWebhookNotFound, Event: eventName}, nil
	}

	delivery, err := s.ledger.RecordReceived(ctx, registration.ID, idempotencyKey, eventName, body)
	if err != nil {
		if errors.Is(err, ErrDuplicateDelivery) {
			s.metrics.RecordDuplicate(remoteWebhookID)
			return &Receipt{Status: ReceiptDuplicate, Event: eventName}, nil
		}
		return nil, err
	}

	start := time.Now()
	dispatchErr := s.dispatcher.Dispatch(ctx, eventName, payload)
	elapsed := time.Since(start)

	if dispatchErr != nil {
		s.logger.Error("webhook delivery processing failed",
			"webhook_id", remoteWebhookID,
			"event", eventName,
			"delivery_id", delivery.ID,
			"error", dispatchErr,
		)
		if markErr := s.ledger.MarkFailed(ctx, delivery.ID, dispatchErr.Error(), elapsed); markErr != nil {
			s.logger.Error("failed to record delivery failure", "delivery_id", delivery.ID, "error", markErr)
		}
		if recErr := s.registry.RecordFailure(ctx, registration.ID, dispatchErr.Error()); recErr != nil {
			s.logger.Error("failed to record webhook failure", "webhook_id", remoteWebhookID, "error", recErr)
		}
		s.metrics.RecordDelivery(eventName, string(DeliveryFailed), elapsed)
		return nil, errors.Wrap(dispatchErr, errors.ErrorTypeInternal, errors.CodeDispatchFailed, dispatchErr.Error())
	}

	if err := s.ledger.MarkProcessed(ctx, delivery.ID, elapsed); err != nil {
		return nil, err
	}
	if err := s.registry.RecordDelivery(ctx, registration.ID); err != nil {
		return nil, err
	}

	s.logger.Info("webhook delivery processed",
		"webhook_id", remoteWebhookID,
		"event", eventName,
		"delivery_id", delivery.ID,
		"processing_time_ms", elapsed.Milliseconds(),
	)
	s.metrics.RecordDelivery(eventName, string(DeliveryProcessed), elapsed)

	return &Receipt{
		Status:     ReceiptSuccess,
		DeliveryID: delivery.ID,
		Event:      eventName,
	}, nil
}
