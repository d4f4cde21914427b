package webhooks

import (
	"context"
	"strings"

	"clickup-bridge/internal/clickup"
	"clickup-bridge/pkg/errors"
	"clickup-bridge/pkg/logger"
)

// RemoteAPI is the provider surface the manager needs
type RemoteAPI interface {
	ListWebhooks(ctx context.Context, workspaceID string) ([]clickup.Webhook, error)
	CreateWebhook(ctx context.Context, workspaceID string, req clickup.CreateWebhookRequest) (*clickup.Webhook, error)
	UpdateWebhook(ctx context.Context, webhookID string, req clickup.UpdateWebhookRequest) error
	DeleteWebhook(ctx context.Context, webhookID string) error
}

// Manager keeps local registrations and provider-side webhooks in step:
// remote first, local mirror second.
type Manager struct {
	api         RemoteAPI
	registry    *Registry
	appURL      string
	webhookPath string
	logger      logger.Logger
}

// NewManager creates a manager. appURL and webhookPath form the default
// delivery endpoint for new registrations.
func NewManager(api RemoteAPI, registry *Registry, appURL, webhookPath string, log logger.Logger) *Manager {
	return &Manager{
		api:         api,
		registry:    registry,
		appURL:      strings.TrimRight(appURL, "/"),
		webhookPath: webhookPath,
		logger:      log,
	}
}

// CreateParams describes a managed webhook registration. At most one
// target id should be set; with none set the webhook watches the whole
// workspace.
type CreateParams struct {
	WorkspaceID string
	Endpoint    string
	Events      []string
	Secret      string
	TaskID      string
	ListID      string
	FolderID    string
	SpaceID     string
}

// CreateManaged registers the webhook with the provider, then mirrors it
// locally. The local row is only written after the provider confirms.
func (m *Manager) CreateManaged(ctx context.Context, params CreateParams) (*WebhookRegistration, error) {
	if params.WorkspaceID == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "workspace id is required")
	}
	if len(params.Events) == 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "at least one event is required")
	}

	endpoint := params.Endpoint
	if endpoint == "" {
		endpoint = m.appURL + m.webhookPath
	}

	remote, err := m.api.CreateWebhook(ctx, params.WorkspaceID, clickup.CreateWebhookRequest{
		Endpoint: endpoint,
		Events:   params.Events,
		TaskID:   params.TaskID,
		ListID:   params.ListID,
		FolderID: params.FolderID,
		SpaceID:  params.SpaceID,
	})
	if err != nil {
		return nil, err
	}

	secret := remote.Secret
	if secret == "" {
		secret = params.Secret
	}

	targetType, targetID := determineTarget(params)
	remoteID := remote.ID

	registration := &WebhookRegistration{
		RemoteID:     &remoteID,
		WorkspaceID:  params.WorkspaceID,
		Endpoint:     endpoint,
		Events:       strings.Join(params.Events, ","),
		Secret:       secret,
		TargetType:   targetType,
		TargetID:     targetID,
		HealthStatus: HealthActive,
		IsActive:     true,
	}

	if err := m.registry.Create(ctx, registration); err != nil {
		return nil, err
	}

	m.logger.Info("managed webhook created",
		"webhook_id", remoteID,
		"workspace_id", params.WorkspaceID,
		"endpoint", endpoint,
		"target_type", targetType,
		"target_id", targetID,
	)
	return registration, nil
}

// UpdateManaged changes a webhook's endpoint and event set on the provider,
// then locally
func (m *Manager) UpdateManaged(ctx context.Context, id uint, endpoint string, eventNames []string) (*WebhookRegistration, error) {
	registration, err := m.registry.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if registration.RemoteID == nil {
		return nil, errors.ValidationError(errors.CodeInvalidInput, "registration has no remote webhook")
	}

	if endpoint == "" {
		endpoint = registration.Endpoint
	}
	if len(eventNames) == 0 {
		eventNames = registration.EventList()
	}

	err = m.api.UpdateWebhook(ctx, *registration.RemoteID, clickup.UpdateWebhookRequest{
		Endpoint: endpoint,
		Events:   eventNames,
		Status:   "active",
	})
	if err != nil {
		return nil, err
	}

	registration.Endpoint = endpoint
	registration.Events = strings.Join(eventNames, ",")
	if err := m.registry.Update(ctx, registration); err != nil {
		return nil, err
	}

	m.logger.Info("managed webhook updated", "webhook_id", *registration.RemoteID, "endpoint", endpoint)
	return registration, nil
}

// DeleteManaged removes the webhook from the provider, then tombstones the
// local row. A failed remote delete leaves the local row untouched.
func (m *Manager) DeleteManaged(ctx context.Context, id uint) error {
	registration, err := m.registry.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if registration.RemoteID != nil {
		if err := m.api.DeleteWebhook(ctx, *registration.RemoteID); err != nil {
			return err
		}
	}

	if err := m.registry.SoftDelete(ctx, registration.ID); err != nil {
		return err
	}

	m.logger.Info("managed webhook deleted", "registration_id", registration.ID)
	return nil
}

// SyncFromRemote imports the workspace's webhooks, creating missing local
// mirrors and refreshing existing ones, including provider-reported health.
// Returns the number of webhooks synced.
func (m *Manager) SyncFromRemote(ctx context.Context, workspaceID string) (int, error) {
	remotes, err := m.api.ListWebhooks(ctx, workspaceID)
	if err != nil {
		return 0, err
	}

	synced := 0
	for i := range remotes {
		remote := &remotes[i]

		registration, err := m.registry.FindByRemoteID(ctx, remote.ID)
		if err != nil {
			appErr := errors.GetAppError(err)
			if appErr == nil || appErr.Type != errors.ErrorTypeNotFound {
				return synced, err
			}

			remoteID := remote.ID
			registration = &WebhookRegistration{
				RemoteID:     &remoteID,
				WorkspaceID:  workspaceID,
				Endpoint:     remote.Endpoint,
				Events:       strings.Join(remote.Events, ","),
				Secret:       remote.Secret,
				TargetType:   TargetWorkspace,
				TargetID:     workspaceID,
				HealthStatus: HealthStatus(remote.HealthStatus()),
				FailCount:    remote.FailCount(),
				IsActive:     true,
			}
			if err := m.registry.Create(ctx, registration); err != nil {
				return synced, err
			}
			synced++
			continue
		}

		registration.Endpoint = remote.Endpoint
		registration.Events = strings.Join(remote.Events, ",")
		registration.HealthStatus = HealthStatus(remote.HealthStatus())
		registration.FailCount = remote.FailCount()
		if remote.Secret != "" {
			registration.Secret = remote.Secret
		}
		if err := m.registry.Update(ctx, registration); err != nil {
			return synced, err
		}
		synced++
	}

	m.logger.Info("webhooks synced from provider", "workspace_id", workspaceID, "count", synced)
	return synced, nil
}

// determineTarget picks the most specific target the params name
func determineTarget(params CreateParams) (TargetType, string) {
	switch {
	case params.TaskID != "":
		return TargetTask, params.TaskID
	case params.ListID != "":
		return TargetList, params.ListID
	case params.FolderID != "":
		return TargetFolder, params.FolderID
	case params.SpaceID != "":
		return TargetSpace, params.SpaceID
	default:
		return TargetWorkspace, params.WorkspaceID
	}
}
