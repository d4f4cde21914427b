package webhooks

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"clickup-bridge/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFindByRemoteID(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	seedRegistration(t, db, nil)

	found, err := registry.FindByRemoteID(ctx, "wh-123")
	require.NoError(t, err)
	assert.Equal(t, "team-1", found.WorkspaceID)

	_, err = registry.FindByRemoteID(ctx, "wh-missing")
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
}

func TestRegistryFindByRemoteIDIncludesInactive(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	seedRegistration(t, db, func(w *WebhookRegistration) {
		w.IsActive = false
	})

	found, err := registry.FindByRemoteID(ctx, "wh-123")
	require.NoError(t, err)
	assert.False(t, found.IsActive)

	_, err = registry.FindActiveByRemoteID(ctx, "wh-123")
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
}

func TestRegistryCountersAreAtomic(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, registry.RecordDelivery(ctx, registration.ID))
		}()
	}
	wg.Wait()

	found, err := registry.FindByID(ctx, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), found.TotalDeliveries)
	assert.NotNil(t, found.LastTriggeredAt)
}

func TestRegistryRecordFailure(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)

	require.NoError(t, registry.RecordFailure(ctx, registration.ID, "listener blew up"))

	found, err := registry.FindByID(ctx, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.FailedDeliveries)
	require.NotNil(t, found.LastError)

	var entry struct {
		Error     string    `json:"error"`
		Timestamp time.Time `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal([]byte(*found.LastError), &entry))
	assert.Equal(t, "listener blew up", entry.Error)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestRegistrySyncHealth(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)
	checkedAt := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, registry.SyncHealth(ctx, registration.ID, HealthFailing, 45, checkedAt))

	found, err := registry.FindByID(ctx, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, HealthFailing, found.HealthStatus)
	assert.Equal(t, 45, found.FailCount)
	require.NotNil(t, found.HealthCheckedAt)
	// The registration stays active; deactivation is a separate decision
	assert.True(t, found.IsActive)
}

func TestRegistryDisableAndRecover(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, func(w *WebhookRegistration) {
		w.HealthStatus = HealthSuspended
		w.FailCount = 80
	})

	require.NoError(t, registry.Disable(ctx, registration.ID))
	found, err := registry.FindByID(ctx, registration.ID)
	require.NoError(t, err)
	assert.False(t, found.IsActive)

	require.NoError(t, registry.MarkRecovered(ctx, registration.ID))
	found, err = registry.FindByID(ctx, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, HealthActive, found.HealthStatus)
	assert.True(t, found.IsActive)
	assert.Equal(t, 0, found.FailCount)
}

func TestRegistryListNeedingRecovery(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	// Degraded and inactive: needs recovery
	seedRegistration(t, db, func(w *WebhookRegistration) {
		w.RemoteID = strPtr("wh-1")
		w.HealthStatus = HealthFailing
		w.IsActive = false
	})
	// Degraded but still active: not yet
	seedRegistration(t, db, func(w *WebhookRegistration) {
		w.RemoteID = strPtr("wh-2")
		w.HealthStatus = HealthSuspended
		w.IsActive = true
	})
	// Healthy
	seedRegistration(t, db, func(w *WebhookRegistration) {
		w.RemoteID = strPtr("wh-3")
	})
	// Inactive but healthy status
	seedRegistration(t, db, func(w *WebhookRegistration) {
		w.RemoteID = strPtr("wh-4")
		w.IsActive = false
	})

	candidates, err := registry.ListNeedingRecovery(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "wh-1", *candidates[0].RemoteID)
}

func TestRegistrySoftDelete(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)
	require.NoError(t, registry.SoftDelete(ctx, registration.ID))

	_, err := registry.FindByRemoteID(ctx, "wh-123")
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)

	list, err := registry.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	// The tombstoned row is still physically present
	var count int64
	require.NoError(t, db.Unscoped().Model(&WebhookRegistration{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegistryListByStatus(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	seedRegistration(t, db, func(w *WebhookRegistration) {
		w.RemoteID = strPtr("wh-a")
		w.HealthStatus = HealthFailing
	})
	seedRegistration(t, db, func(w *WebhookRegistration) {
		w.RemoteID = strPtr("wh-b")
	})

	failing, err := registry.List(ctx, HealthFailing)
	require.NoError(t, err)
	require.Len(t, failing, 1)
	assert.Equal(t, "wh-a", *failing[0].RemoteID)

	all, err := registry.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
