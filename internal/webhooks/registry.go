package webhooks

import (
	"context"
	"time"

	"clickup-bridge/pkg/errors"

	"gorm.io/gorm"
)

// Registry persists webhook registrations. All queries exclude soft-deleted
// rows; counter updates are single atomic UPDATE statements so concurrent
// deliveries never lose increments.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a registry backed by the given connection
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Create inserts a new registration
func (r *Registry) Create(ctx context.Context, registration *WebhookRegistration) error {
	if err := r.db.WithContext(ctx).Create(registration).Error; err != nil {
		return errors.DatabaseError("create webhook registration", err)
	}
	return nil
}

// Update persists changed fields of an existing registration
func (r *Registry) Update(ctx context.Context, registration *WebhookRegistration) error {
	if err := r.db.WithContext(ctx).Save(registration).Error; err != nil {
		return errors.DatabaseError("update webhook registration", err)
	}
	return nil
}

// FindByID loads a registration by local id
func (r *Registry) FindByID(ctx context.Context, id uint) (*WebhookRegistration, error) {
	var registration WebhookRegistration
	err := r.db.WithContext(ctx).First(&registration, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("webhook registration")
		}
		return nil, errors.DatabaseError("find webhook registration", err)
	}
	return &registration, nil
}

// FindByRemoteID loads a registration by the provider's webhook id,
// regardless of whether it is currently active
func (r *Registry) FindByRemoteID(ctx context.Context, remoteID string) (*WebhookRegistration, error) {
	var registration WebhookRegistration
	err := r.db.WithContext(ctx).Where("remote_id = ?", remoteID).First(&registration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("webhook registration")
		}
		return nil, errors.DatabaseError("find webhook registration", err)
	}
	return &registration, nil
}

// FindActiveByRemoteID loads an active registration by the provider's
// webhook id
func (r *Registry) FindActiveByRemoteID(ctx context.Context, remoteID string) (*WebhookRegistration, error) {
	var registration WebhookRegistration
	err := r.db.WithContext(ctx).
		Where("remote_id = ? AND is_active = ?", remoteID, true).
		First(&registration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("webhook registration")
		}
		return nil, errors.DatabaseError("find webhook registration", err)
	}
	return &registration, nil
}

// List returns all registrations, optionally filtered by health status
func (r *Registry) List(ctx context.Context, status HealthStatus) ([]WebhookRegistration, error) {
	query := r.db.WithContext(ctx).Order("id")
	if status != "" {
		query = query.Where("health_status = ?", status)
	}

	var registrations []WebhookRegistration
	if err := query.Find(&registrations).Error; err != nil {
		return nil, errors.DatabaseError("list webhook registrations", err)
	}
	return registrations, nil
}

// ListNeedingRecovery returns registrations that are degraded and have been
// deactivated
func (r *Registry) ListNeedingRecovery(ctx context.Context) ([]WebhookRegistration, error) {
	var registrations []WebhookRegistration
	err := r.db.WithContext(ctx).
		Where("health_status IN ? AND is_active = ?", []HealthStatus{HealthFailing, HealthSuspended}, false).
		Order("id").
		Find(&registrations).Error
	if err != nil {
		return nil, errors.DatabaseError("list webhooks needing recovery", err)
	}
	return registrations, nil
}

// RecordDelivery atomically bumps the delivery counter and trigger time
func (r *Registry) RecordDelivery(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&WebhookRegistration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_deliveries":  gorm.Expr("total_deliveries + ?", 1),
			"last_triggered_at": now,
		}).Error
	if err != nil {
		return errors.DatabaseError("record webhook delivery", err)
	}
	return nil
}

// RecordFailure atomically bumps the failure counter and stores the last
// error with its timestamp
func (r *Registry) RecordFailure(ctx context.Context, id uint, message string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&WebhookRegistration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_deliveries": gorm.Expr("failed_deliveries + ?", 1),
			"last_error":        encodeLastError(message, now),
		}).Error
	if err != nil {
		return errors.DatabaseError("record webhook failure", err)
	}
	return nil
}

// SyncHealth stores the provider-reported health state and stamps the check
// time. Runs on every reconciliation pass, changed or not.
func (r *Registry) SyncHealth(ctx context.Context, id uint, status HealthStatus, failCount int, checkedAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&WebhookRegistration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"health_status":     status,
			"fail_count":        failCount,
			"health_checked_at": checkedAt,
		}).Error
	if err != nil {
		return errors.DatabaseError("sync webhook health", err)
	}
	return nil
}

// Disable deactivates a registration so it stops accepting deliveries
func (r *Registry) Disable(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&WebhookRegistration{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return errors.DatabaseError("disable webhook registration", err)
	}
	return nil
}

// MarkRecovered resets a registration to the healthy state after a
// confirmed remote re-activation
func (r *Registry) MarkRecovered(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&WebhookRegistration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"health_status": HealthActive,
			"is_active":     true,
			"fail_count":    0,
		}).Error
	if err != nil {
		return errors.DatabaseError("mark webhook recovered", err)
	}
	return nil
}

// SoftDelete tombstones a registration. Deleted rows keep their delivery
// history but disappear from every registry query.
func (r *Registry) SoftDelete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&WebhookRegistration{}, id).Error; err != nil {
		return errors.DatabaseError("delete webhook registration", err)
	}
	return nil
}
