package database

import (
	"fmt"

	"clickup-bridge/internal/webhooks"
)

// Migrate creates or updates the schema for all persisted models
func (db *Database) Migrate() error {
	models := []interface{}{
		&webhooks.WebhookRegistration{},
		&webhooks.WebhookDelivery{},
	}

	if err := db.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}
