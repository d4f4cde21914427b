package clickup

import (
	"context"
	"fmt"
	"net/http"
)

// WebhookHealth is the provider's view of a webhook's delivery health
type WebhookHealth struct {
	Status    string `json:"status"`
	FailCount int    `json:"fail_count"`
}

// Webhook is a webhook registration as returned by the API
type Webhook struct {
	ID       string         `json:"id"`
	UserID   int64          `json:"userid,omitempty"`
	TeamID   int64          `json:"team_id,omitempty"`
	Endpoint string         `json:"endpoint"`
	Events   []string       `json:"events"`
	Secret   string         `json:"secret,omitempty"`
	Health   *WebhookHealth `json:"health,omitempty"`
}

// HealthStatus returns the nested health status, defaulting to active when
// the provider omits it
func (w *Webhook) HealthStatus() string {
	if w.Health == nil || w.Health.Status == "" {
		return "active"
	}
	return w.Health.Status
}

// FailCount returns the nested failure count, defaulting to zero
func (w *Webhook) FailCount() int {
	if w.Health == nil {
		return 0
	}
	return w.Health.FailCount
}

// CreateWebhookRequest registers a new webhook. At most one of the target
// fields should be set; with none set the webhook watches the whole
// workspace.
type CreateWebhookRequest struct {
	Endpoint string   `json:"endpoint"`
	Events   []string `json:"events"`
	TaskID   string   `json:"task_id,omitempty"`
	ListID   string   `json:"list_id,omitempty"`
	FolderID string   `json:"folder_id,omitempty"`
	SpaceID  string   `json:"space_id,omitempty"`
}

// UpdateWebhookRequest replaces a webhook's endpoint, events, and status
type UpdateWebhookRequest struct {
	Endpoint string   `json:"endpoint"`
	Events   []string `json:"events"`
	Status   string   `json:"status"`
}

type webhookListResponse struct {
	Webhooks []Webhook `json:"webhooks"`
}

type webhookCreateResponse struct {
	ID      string  `json:"id"`
	Webhook Webhook `json:"webhook"`
}

// ListWebhooks returns every webhook registered for the workspace
func (c *Client) ListWebhooks(ctx context.Context, workspaceID string) ([]Webhook, error) {
	var out webhookListResponse
	path := fmt.Sprintf("/team/%s/webhook", workspaceID)
	if err := c.do(ctx, http.MethodGet, path, "list_webhooks", nil, &out); err != nil {
		return nil, err
	}
	return out.Webhooks, nil
}

// CreateWebhook registers a new webhook for the workspace
func (c *Client) CreateWebhook(ctx context.Context, workspaceID string, req CreateWebhookRequest) (*Webhook, error) {
	var out webhookCreateResponse
	path := fmt.Sprintf("/team/%s/webhook", workspaceID)
	if err := c.do(ctx, http.MethodPost, path, "create_webhook", req, &out); err != nil {
		return nil, err
	}

	webhook := out.Webhook
	if webhook.ID == "" {
		webhook.ID = out.ID
	}
	return &webhook, nil
}

// UpdateWebhook replaces the webhook's endpoint, events, and status. A nil
// error means the provider confirmed the update with a 2xx response.
func (c *Client) UpdateWebhook(ctx context.Context, webhookID string, req UpdateWebhookRequest) error {
	path := fmt.Sprintf("/webhook/%s", webhookID)
	return c.do(ctx, http.MethodPut, path, "update_webhook", req, nil)
}

// DeleteWebhook removes the webhook from the provider
func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	path := fmt.Sprintf("/webhook/%s", webhookID)
	return c.do(ctx, http.MethodDelete, path, "delete_webhook", nil, nil)
}
