package entity

import (
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

// WebhookLog is the append-only audit and deduplication ledger for provider
// events. EventID uniqueness is what makes ingestion idempotent; the
// Processed flag is informational only.
type WebhookLog struct {
	ID uint64

	Provider  types.Provider
	EventID   string
	EventType string
	PaymentID string
	Payload   string
	Processed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
