package webhooks

import (
	"context"
	"time"

	"clickup-bridge/pkg/errors"

	"gorm.io/gorm"
)

// ErrDuplicateDelivery signals that the idempotency key already exists in
// the ledger. The unique constraint is the final authority; callers treat
// this as a duplicate, not a failure.
var ErrDuplicateDelivery = errors.New(errors.ErrorTypeConflict, errors.CodeDuplicateDelivery, "delivery already recorded")

// Ledger is the append-style record of every accepted delivery and its
// processing outcome.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a ledger backed by the given connection
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Exists reports whether a delivery with this idempotency key was already
// recorded
func (l *Ledger) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&WebhookDelivery{}).
		Where("idempotency_key = ?", idempotencyKey).
		Count(&count).Error
	if err != nil {
		return false, errors.DatabaseError("check delivery existence", err)
	}
	return count > 0, nil
}

// RecordReceived inserts the delivery in the received state with the full
// request payload. A unique-key conflict from a concurrent duplicate is
// reported as ErrDuplicateDelivery.
func (l *Ledger) RecordReceived(ctx context.Context, webhookID uint, idempotencyKey, eventType string, payload []byte) (*WebhookDelivery, error) {
	delivery := &WebhookDelivery{
		WebhookID:      webhookID,
		IdempotencyKey: idempotencyKey,
		EventType:      eventType,
		Payload:        string(payload),
		Status:         DeliveryReceived,
	}

	if err := l.db.WithContext(ctx).Create(delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateDelivery
		}
		return nil, errors.DatabaseError("record delivery", err)
	}
	return delivery, nil
}

// MarkProcessed moves a received delivery to the processed terminal state.
// The status guard in the WHERE clause makes the transition happen at most
// once; a delivery that already reached a terminal state is left untouched.
func (l *Ledger) MarkProcessed(ctx context.Context, id uint, processingTime time.Duration) error {
	return l.finish(ctx, id, map[string]interface{}{
		"status":             DeliveryProcessed,
		"processing_time_ms": processingTime.Milliseconds(),
	})
}

// MarkFailed moves a received delivery to the failed terminal state with
// the error message
func (l *Ledger) MarkFailed(ctx context.Context, id uint, message string, processingTime time.Duration) error {
	return l.finish(ctx, id, map[string]interface{}{
		"status":             DeliveryFailed,
		"error_message":      message,
		"processing_time_ms": processingTime.Milliseconds(),
	})
}

func (l *Ledger) finish(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := l.db.WithContext(ctx).
		Model(&WebhookDelivery{}).
		Where("id = ? AND status = ?", id, DeliveryReceived).
		Updates(updates)
	if result.Error != nil {
		return errors.DatabaseError("finish delivery", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrorTypeConflict, errors.CodeDuplicateDelivery, "delivery already finalized")
	}
	return nil
}

// FindByKey loads a delivery by idempotency key
func (l *Ledger) FindByKey(ctx context.Context, idempotencyKey string) (*WebhookDelivery, error) {
	var delivery WebhookDelivery
	err := l.db.WithContext(ctx).Where("idempotency_key = ?", idempotencyKey).First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("delivery")
		}
		return nil, errors.DatabaseError("find delivery", err)
	}
	return &delivery, nil
}

// ListForWebhook returns the most recent deliveries for one registration
func (l *Ledger) ListForWebhook(ctx context.Context, webhookID uint, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var deliveries []WebhookDelivery
	err := l.db.WithContext(ctx).
		Where("webhook_id = ?", webhookID).
		Order("created_at DESC").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, errors.DatabaseError("list deliveries", err)
	}
	return deliveries, nil
}
