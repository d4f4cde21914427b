package webhooks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Deduplicator builds idempotency keys for inbound deliveries and probes
// the ledger for duplicates.
type Deduplicator struct {
	ledger *Ledger
}

// NewDeduplicator creates a deduplicator over the given ledger
func NewDeduplicator(ledger *Ledger) *Deduplicator {
	return &Deduplicator{ledger: ledger}
}

// KeyFor derives the idempotency key for a delivery. The key is the remote
// webhook id joined with the first history item's id. Payloads without
// history items get a fresh random token, so they are never deduplicated;
// the provider includes history items on every retried delivery.
func (d *Deduplicator) KeyFor(remoteWebhookID string, payload map[string]interface{}) string {
	return fmt.Sprintf("%s:%s", remoteWebhookID, historyItemID(payload))
}

func historyItemID(payload map[string]interface{}) string {
	items, ok := payload["history_items"].([]interface{})
	if ok && len(items) > 0 {
		if first, ok := items[0].(map[string]interface{}); ok {
			if id, ok := first["id"].(string); ok && id != "" {
				return id
			}
		}
	}
	return uuid.NewString()
}

// IsDuplicate reports whether the key was already recorded
func (d *Deduplicator) IsDuplicate(ctx context.Context, idempotencyKey string) (bool, error) {
	return d.ledger.Exists(ctx, idempotencyKey)
}
