package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

// ErrWebhookAlreadyLogged signals that an event with the same id was seen
// before. The unique index on event_id makes the check-and-insert atomic, so
// two concurrent deliveries of one event cannot both get past Create.
var ErrWebhookAlreadyLogged = errors.New("webhook event already logged")

type WebhookLogRepository struct {
	db DBTX
}

func NewWebhookLogRepository(db DBTX) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

func (r *WebhookLogRepository) Create(ctx context.Context, log *entity.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (
			provider, event_id, event_type, payment_id, payload, processed, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		string(log.Provider),
		log.EventID,
		log.EventType,
		log.PaymentID,
		log.Payload,
		log.Processed,
		log.CreatedAt,
		log.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrWebhookAlreadyLogged
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = uint64(id)

	return nil
}

func (r *WebhookLogRepository) FindByEventID(ctx context.Context, eventID string) (*entity.WebhookLog, error) {
	query := `
		SELECT id, provider, event_id, event_type, payment_id, payload, processed, created_at, updated_at
		FROM webhook_logs
		WHERE event_id = ?
	`

	log := &entity.WebhookLog{}
	var provider string
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&log.ID,
		&provider,
		&log.EventID,
		&log.EventType,
		&log.PaymentID,
		&log.Payload,
		&log.Processed,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Provider = types.Provider(provider)

	return log, nil
}

func (r *WebhookLogRepository) MarkProcessed(ctx context.Context, eventID string) error {
	query := `UPDATE webhook_logs SET processed = TRUE, updated_at = NOW() WHERE event_id = ?`
	_, err := r.db.ExecContext(ctx, query, eventID)
	return err
}
