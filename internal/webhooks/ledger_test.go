package webhooks

import (
	"context"
	"testing"
	"time"

	"clickup-bridge/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRecordReceived(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)

	delivery, err := ledger.RecordReceived(ctx, registration.ID, "wh-123:hist-1", "taskCreated", []byte(`{"event":"taskCreated"}`))
	require.NoError(t, err)
	assert.Equal(t, DeliveryReceived, delivery.Status)
	assert.Equal(t, `{"event":"taskCreated"}`, delivery.Payload)

	exists, err := ledger.Exists(ctx, "wh-123:hist-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ledger.Exists(ctx, "wh-123:hist-other")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLedgerDuplicateKeyRejected(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)

	_, err := ledger.RecordReceived(ctx, registration.ID, "wh-123:hist-1", "taskCreated", []byte(`{}`))
	require.NoError(t, err)

	_, err = ledger.RecordReceived(ctx, registration.ID, "wh-123:hist-1", "taskCreated", []byte(`{}`))
	assert.ErrorIs(t, err, ErrDuplicateDelivery)
}

func TestLedgerTerminalTransitionHappensOnce(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)
	delivery, err := ledger.RecordReceived(ctx, registration.ID, "wh-123:hist-1", "taskCreated", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, ledger.MarkProcessed(ctx, delivery.ID, 42*time.Millisecond))

	found, err := ledger.FindByKey(ctx, "wh-123:hist-1")
	require.NoError(t, err)
	assert.Equal(t, DeliveryProcessed, found.Status)
	require.NotNil(t, found.ProcessingTimeMs)
	assert.Equal(t, int64(42), *found.ProcessingTimeMs)

	// A second finalization attempt must not overwrite the terminal state
	err = ledger.MarkFailed(ctx, delivery.ID, "late failure", time.Millisecond)
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrorTypeConflict, appErr.Type)

	found, err = ledger.FindByKey(ctx, "wh-123:hist-1")
	require.NoError(t, err)
	assert.Equal(t, DeliveryProcessed, found.Status)
	assert.Nil(t, found.ErrorMessage)
}

func TestLedgerMarkFailed(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)
	delivery, err := ledger.RecordReceived(ctx, registration.ID, "wh-123:hist-2", "taskUpdated", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, ledger.MarkFailed(ctx, delivery.ID, "listener blew up", 10*time.Millisecond))

	found, err := ledger.FindByKey(ctx, "wh-123:hist-2")
	require.NoError(t, err)
	assert.Equal(t, DeliveryFailed, found.Status)
	require.NotNil(t, found.ErrorMessage)
	assert.Equal(t, "listener blew up", *found.ErrorMessage)
}

func TestLedgerListForWebhook(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	registration := seedRegistration(t, db, nil)
	for _, key := range []string{"wh-123:a", "wh-123:b", "wh-123:c"} {
		_, err := ledger.RecordReceived(ctx, registration.ID, key, "taskCreated", []byte(`{}`))
		require.NoError(t, err)
	}

	deliveries, err := ledger.ListForWebhook(ctx, registration.ID, 2)
	require.NoError(t, err)
	assert.Len(t, deliveries, 2)
}
