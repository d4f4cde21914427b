package webhooks

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// newTestDB opens a private in-memory database with the schema migrated.
// The named shared-cache DSN keeps every pooled connection on the same
// database while isolating tests from each other.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&WebhookRegistration{}, &WebhookDelivery{}))
	return db
}

func strPtr(s string) *string {
	return &s
}

// seedRegistration inserts a registration with sane defaults, applying any
// overrides first
func seedRegistration(t *testing.T, db *gorm.DB, overrides func(*WebhookRegistration)) *WebhookRegistration {
	t.Helper()

	registration := &WebhookRegistration{
		RemoteID:     strPtr("wh-123"),
		WorkspaceID:  "team-1",
		Endpoint:     "https://bridge.example.com/webhooks/clickup",
		Events:       "taskCreated,taskUpdated",
		Secret:       "shhh",
		TargetType:   TargetWorkspace,
		TargetID:     "team-1",
		HealthStatus: HealthActive,
		IsActive:     true,
	}
	if overrides != nil {
		overrides(registration)
	}
	require.NoError(t, db.Create(registration).Error)
	return registration
}
