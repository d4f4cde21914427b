package health

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clickup-bridge/internal/clickup"
	"clickup-bridge/internal/webhooks"
	"clickup-bridge/pkg/errors"
	"clickup-bridge/pkg/logger"
	"clickup-bridge/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var fastRetry = &retry.Config{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     time.Millisecond,
	Strategy:     retry.StrategyFixed,
	Timeout:      time.Second,
}

type fakeLister struct {
	webhooks []clickup.Webhook
	err      error
	calls    int
}

func (f *fakeLister) ListWebhooks(ctx context.Context, workspaceID string) ([]clickup.Webhook, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.webhooks, nil
}

var testDBSeq int

func newTestRegistry(t *testing.T) (*webhooks.Registry, *gorm.DB) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:healthdb_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&webhooks.WebhookRegistration{}, &webhooks.WebhookDelivery{}))
	return webhooks.NewRegistry(db), db
}

func seedRegistration(t *testing.T, db *gorm.DB, remoteID string, status webhooks.HealthStatus) *webhooks.WebhookRegistration {
	t.Helper()

	id := remoteID
	registration := &webhooks.WebhookRegistration{
		RemoteID:     &id,
		WorkspaceID:  "team-1",
		Endpoint:     "https://bridge.example.com/webhooks/clickup",
		Events:       "taskCreated",
		Secret:       "shhh",
		TargetType:   webhooks.TargetWorkspace,
		TargetID:     "team-1",
		HealthStatus: status,
		IsActive:     true,
	}
	require.NoError(t, db.Create(registration).Error)
	return registration
}

func newTestReconciler(t *testing.T, api *fakeLister, workspaceID string) (*Reconciler, *webhooks.Registry, *gorm.DB) {
	t.Helper()
	registry, db := newTestRegistry(t)
	reconciler := NewReconciler(api, registry, workspaceID, logger.New("test")).WithRetryConfig(fastRetry)
	return reconciler, registry, db
}

func TestRunSyncsRemoteHealth(t *testing.T) {
	api := &fakeLister{webhooks: []clickup.Webhook{
		{ID: "wh-1", Health: &clickup.WebhookHealth{Status: "failing", FailCount: 12}},
	}}
	reconciler, registry, db := newTestReconciler(t, api, "team-1")
	registration := seedRegistration(t, db, "wh-1", webhooks.HealthActive)

	require.NoError(t, reconciler.Run(context.Background()))

	found, err := registry.FindByID(context.Background(), registration.ID)
	require.NoError(t, err)
	assert.Equal(t, webhooks.HealthFailing, found.HealthStatus)
	assert.Equal(t, 12, found.FailCount)
	require.NotNil(t, found.HealthCheckedAt)
	// Failing is degraded, so the webhook is pulled out of rotation
	assert.False(t, found.IsActive)
}

func TestRunDisablesOnSuspendedTransition(t *testing.T) {
	api := &fakeLister{webhooks: []clickup.Webhook{
		{ID: "wh-1", Health: &clickup.WebhookHealth{Status: "suspended", FailCount: 100}},
	}}
	reconciler, registry, db := newTestReconciler(t, api, "team-1")
	registration := seedRegistration(t, db, "wh-1", webhooks.HealthFailing)

	require.NoError(t, reconciler.Run(context.Background()))

	found, err := registry.FindByID(context.Background(), registration.ID)
	require.NoError(t, err)
	assert.Equal(t, webhooks.HealthSuspended, found.HealthStatus)
	assert.False(t, found.IsActive)
}

func TestRunLeavesUnchangedStatusAlone(t *testing.T) {
	api := &fakeLister{webhooks: []clickup.Webhook{
		{ID: "wh-1", Health: &clickup.WebhookHealth{Status: "failing", FailCount: 13}},
	}}
	reconciler, registry, db := newTestReconciler(t, api, "team-1")
	registration := seedRegistration(t, db, "wh-1", webhooks.HealthFailing)

	require.NoError(t, reconciler.Run(context.Background()))

	found, err := registry.FindByID(context.Background(), registration.ID)
	require.NoError(t, err)
	assert.Equal(t, webhooks.HealthFailing, found.HealthStatus)
	assert.Equal(t, 13, found.FailCount)
	// Disabling only happens on a status transition
	assert.True(t, found.IsActive)
}

func TestRunDefaultsMissingHealthToActive(t *testing.T) {
	api := &fakeLister{webhooks: []clickup.Webhook{
		{ID: "wh-1"},
	}}
	reconciler, registry, db := newTestReconciler(t, api, "team-1")
	registration := seedRegistration(t, db, "wh-1", webhooks.HealthFailing)

	require.NoError(t, reconciler.Run(context.Background()))

	found, err := registry.FindByID(context.Background(), registration.ID)
	require.NoError(t, err)
	assert.Equal(t, webhooks.HealthActive, found.HealthStatus)
	assert.Equal(t, 0, found.FailCount)
	assert.True(t, found.IsActive)
}

func TestRunSkipsRemoteOrphans(t *testing.T) {
	api := &fakeLister{webhooks: []clickup.Webhook{
		{ID: "wh-not-ours", Health: &clickup.WebhookHealth{Status: "failing", FailCount: 50}},
	}}
	reconciler, registry, db := newTestReconciler(t, api, "team-1")
	registration := seedRegistration(t, db, "wh-ours", webhooks.HealthActive)

	require.NoError(t, reconciler.Run(context.Background()))

	found, err := registry.FindByID(context.Background(), registration.ID)
	require.NoError(t, err)
	assert.Equal(t, webhooks.HealthActive, found.HealthStatus)
	assert.Nil(t, found.HealthCheckedAt)
}

func TestRunSkipsWithoutWorkspace(t *testing.T) {
	api := &fakeLister{}
	reconciler, _, _ := newTestReconciler(t, api, "")

	require.NoError(t, reconciler.Run(context.Background()))
	assert.Zero(t, api.calls)
}

func TestRunSwallowsProviderHTTPErrors(t *testing.T) {
	apiErr := &clickup.APIError{StatusCode: 401, Message: "Team not authorized", ECode: "OAUTH_027"}
	api := &fakeLister{
		err: errors.Wrap(apiErr, errors.ErrorTypeExternal, errors.CodeExternalService, apiErr.Message).SetRetryable(false),
	}
	reconciler, _, _ := newTestReconciler(t, api, "team-1")

	// An HTTP error response from the provider is not this job's failure
	require.NoError(t, reconciler.Run(context.Background()))
	assert.Equal(t, 1, api.calls)
}

func TestRunRetriesTransportFailures(t *testing.T) {
	api := &fakeLister{
		err: errors.ExternalError("clickup", fmt.Errorf("connection refused")).SetRetryable(true),
	}
	reconciler, _, _ := newTestReconciler(t, api, "team-1")

	err := reconciler.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, fastRetry.MaxAttempts, api.calls)
}
