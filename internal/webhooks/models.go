// Package webhooks implements webhook registration, delivery tracking, and
// the inbound receipt pipeline.
package webhooks

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// HealthStatus tracks how a registered webhook is behaving on the provider
// side
type HealthStatus string

const (
	HealthActive    HealthStatus = "active"
	HealthFailing   HealthStatus = "failing"
	HealthSuspended HealthStatus = "suspended"
)

// IsHealthy reports whether deliveries are flowing normally
func (s HealthStatus) IsHealthy() bool {
	return s == HealthActive
}

// NeedsRecovery reports whether the provider has degraded the webhook far
// enough that it must be re-registered
func (s HealthStatus) NeedsRecovery() bool {
	return s == HealthFailing || s == HealthSuspended
}

// Label returns a human-readable status name
func (s HealthStatus) Label() string {
	switch s {
	case HealthActive:
		return "Active"
	case HealthFailing:
		return "Failing"
	case HealthSuspended:
		return "Suspended"
	default:
		return string(s)
	}
}

// TargetType identifies what resource a webhook was registered against
type TargetType string

const (
	TargetTask      TargetType = "task"
	TargetList      TargetType = "list"
	TargetFolder    TargetType = "folder"
	TargetSpace     TargetType = "space"
	TargetWorkspace TargetType = "workspace"
)

// WebhookRegistration is the local mirror of a webhook registered with the
// provider.
type WebhookRegistration struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	RemoteID         *string        `gorm:"uniqueIndex;size:64" json:"remote_id"`
	WorkspaceID      string         `gorm:"size:64" json:"workspace_id"`
	Endpoint         string         `gorm:"size:2048" json:"endpoint"`
	Events           string         `gorm:"index;size:2048" json:"events"`
	Secret           string         `gorm:"size:255" json:"-"`
	TargetType       TargetType     `gorm:"size:32" json:"target_type"`
	TargetID         string         `gorm:"size:64" json:"target_id"`
	HealthStatus     HealthStatus   `gorm:"size:32;default:active" json:"health_status"`
	FailCount        int            `gorm:"default:0" json:"fail_count"`
	HealthCheckedAt  *time.Time     `json:"health_checked_at"`
	IsActive         bool           `gorm:"index;default:true" json:"is_active"`
	LastTriggeredAt  *time.Time     `json:"last_triggered_at"`
	TotalDeliveries  int64          `gorm:"default:0" json:"total_deliveries"`
	FailedDeliveries int64          `gorm:"default:0" json:"failed_deliveries"`
	LastError        *string        `gorm:"type:text" json:"last_error"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName pins the table name
func (WebhookRegistration) TableName() string {
	return "webhook_registrations"
}

// EventList splits the stored comma-joined event names
func (w *WebhookRegistration) EventList() []string {
	if w.Events == "" {
		return nil
	}
	parts := strings.Split(w.Events, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// FailureRate returns the failed share of deliveries as a percentage.
// Zero total deliveries yields zero, not a division error.
func (w *WebhookRegistration) FailureRate() float64 {
	if w.TotalDeliveries == 0 {
		return 0
	}
	return float64(w.FailedDeliveries) / float64(w.TotalDeliveries) * 100
}

// NeedsRecovery reports whether this registration is in the degraded,
// deactivated state the recovery operator looks for
func (w *WebhookRegistration) NeedsRecovery() bool {
	return w.HealthStatus.NeedsRecovery() && !w.IsActive
}

// lastErrorEntry is the JSON shape stored in LastError
type lastErrorEntry struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func encodeLastError(message string, at time.Time) string {
	raw, err := json.Marshal(lastErrorEntry{Error: message, Timestamp: at})
	if err != nil {
		return message
	}
	return string(raw)
}

// DeliveryStatus is the delivery ledger state machine: received is the only
// non-terminal state, processed and failed are terminal.
type DeliveryStatus string

const (
	DeliveryReceived  DeliveryStatus = "received"
	DeliveryProcessed DeliveryStatus = "processed"
	DeliveryFailed    DeliveryStatus = "failed"
)

// WebhookDelivery is one ledger row per accepted delivery
type WebhookDelivery struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	WebhookID        uint                `gorm:"index;not null" json:"webhook_id"`
	Webhook          WebhookRegistration `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	IdempotencyKey   string              `gorm:"uniqueIndex;size:255;not null" json:"idempotency_key"`
	EventType        string              `gorm:"size:64" json:"event_type"`
	Payload          string              `gorm:"type:text" json:"payload"`
	Status           DeliveryStatus      `gorm:"index;size:32;default:received" json:"status"`
	ErrorMessage     *string             `gorm:"type:text" json:"error_message"`
	ProcessingTimeMs *int64              `json:"processing_time_ms"`
	CreatedAt        time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// TableName pins the table name
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}

// WasSuccessful reports whether processing completed
func (d *WebhookDelivery) WasSuccessful() bool {
	return d.Status == DeliveryProcessed
}

// HasFailed reports whether processing ended in failure
func (d *WebhookDelivery) HasFailed() bool {
	return d.Status == DeliveryFailed
}

// ProcessingTime returns the recorded processing duration
func (d *WebhookDelivery) ProcessingTime() time.Duration {
	if d.ProcessingTimeMs == nil {
		return 0
	}
	return time.Duration(*d.ProcessingTimeMs) * time.Millisecond
}
