package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

var (
	ErrLinkNotFound      = errors.New("payment link not found")
	ErrLinkAlreadyExists = errors.New("payment link already exists")
)

type LinkFilter struct {
	UserID    string
	HasStatus bool
	Status    types.LinkStatus
	Provider  types.Provider
	Limit     int32
	Offset    int32
}

const paymentLinkColumns = `id, provider, provider_link_id, provider_url,
			title, description, amount, amount_usd, amount_type, currency,
			logo_url, payment_methods, callback_url,
			status, expiration_date, transaction_id, payment_method, payer_email, paid_at,
			user_id, created_at, updated_at`

type PaymentLinkRepository struct {
	db DBTX
}

func NewPaymentLinkRepository(db DBTX) *PaymentLinkRepository {
	return &PaymentLinkRepository{db: db}
}

func (r *PaymentLinkRepository) Create(ctx context.Context, link *entity.PaymentLink) error {
	methodsJSON, err := serializeStringList(link.PaymentMethods)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payment_links (` + paymentLinkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		link.ID,
		string(link.Provider),
		nullableStringValue(link.ProviderLinkID),
		nullableStringValue(link.ProviderURL),
		link.Title,
		nullableStringValue(link.Description),
		link.Amount,
		nullableFloat64Value(link.AmountUsd),
		string(link.AmountType),
		link.Currency,
		nullableStringValue(link.LogoURL),
		methodsJSON,
		nullableStringValue(link.CallbackURL),
		string(link.Status),
		nullableTimeValue(link.ExpirationDate),
		nullableStringValue(link.TransactionID),
		nullableStringValue(link.PaymentMethod),
		nullableStringValue(link.PayerEmail),
		nullableTimeValue(link.PaidAt),
		link.UserID,
		link.CreatedAt,
		link.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrLinkAlreadyExists
		}
		return err
	}

	return nil
}

func (r *PaymentLinkRepository) Update(ctx context.Context, link *entity.PaymentLink) error {
	methodsJSON, err := serializeStringList(link.PaymentMethods)
	if err != nil {
		return err
	}

	query := `
		UPDATE payment_links SET
			provider_link_id = ?,
			provider_url = ?,
			title = ?,
			description = ?,
			amount = ?,
			amount_usd = ?,
			amount_type = ?,
			currency = ?,
			logo_url = ?,
			payment_methods = ?,
			callback_url = ?,
			status = ?,
			expiration_date = ?,
			transaction_id = ?,
			payment_method = ?,
			payer_email = ?,
			paid_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableStringValue(link.ProviderLinkID),
		nullableStringValue(link.ProviderURL),
		link.Title,
		nullableStringValue(link.Description),
		link.Amount,
		nullableFloat64Value(link.AmountUsd),
		string(link.AmountType),
		link.Currency,
		nullableStringValue(link.LogoURL),
		methodsJSON,
		nullableStringValue(link.CallbackURL),
		string(link.Status),
		nullableTimeValue(link.ExpirationDate),
		nullableStringValue(link.TransactionID),
		nullableStringValue(link.PaymentMethod),
		nullableStringValue(link.PayerEmail),
		nullableTimeValue(link.PaidAt),
		link.UpdatedAt,
		link.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *PaymentLinkRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payment_links WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *PaymentLinkRepository) FindByID(ctx context.Context, id string) (*entity.PaymentLink, error) {
	query := `SELECT ` + paymentLinkColumns + ` FROM payment_links WHERE id = ?`

	link := &entity.PaymentLink{}
	if err := scanPaymentLink(r.db.QueryRowContext(ctx, query, id), link); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return link, nil
}

// FindByProviderLinkID matches on the provider's own link identifier, which
// is the correlation key for both webhooks and polling.
func (r *PaymentLinkRepository) FindByProviderLinkID(ctx context.Context, providerLinkID string) (*entity.PaymentLink, error) {
	query := `SELECT ` + paymentLinkColumns + ` FROM payment_links WHERE provider_link_id = ? LIMIT 1`

	link := &entity.PaymentLink{}
	if err := scanPaymentLink(r.db.QueryRowContext(ctx, query, providerLinkID), link); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return link, nil
}

// FindByReference matches a transaction reference against either the
// provider link id or the internal id, scoped to one provider.
func (r *PaymentLinkRepository) FindByReference(ctx context.Context, provider types.Provider, reference string) (*entity.PaymentLink, error) {
	query := `
		SELECT ` + paymentLinkColumns + `
		FROM payment_links
		WHERE provider = ? AND (provider_link_id = ? OR id = ?)
		LIMIT 1
	`

	link := &entity.PaymentLink{}
	if err := scanPaymentLink(r.db.QueryRowContext(ctx, query, string(provider), reference, reference), link); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return link, nil
}

func (r *PaymentLinkRepository) List(ctx context.Context, filter LinkFilter) ([]*entity.PaymentLink, error) {
	query := `SELECT ` + paymentLinkColumns + ` FROM payment_links`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if strings.TrimSpace(filter.UserID) != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, string(filter.Provider))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]*entity.PaymentLink, 0)
	for rows.Next() {
		item, err := scanPaymentLinkFromRows(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return links, nil
}

func (r *PaymentLinkRepository) Count(ctx context.Context, filter LinkFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM payment_links`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if strings.TrimSpace(filter.UserID) != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, string(filter.Provider))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListForReconcile returns provider-backed links whose stored status may be
// stale: ACTIVE links not refreshed recently, and PROCESSING links waiting
// on a webhook that may never arrive.
func (r *PaymentLinkRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.PaymentLink, error) {
	query := `
		SELECT ` + paymentLinkColumns + `
		FROM payment_links
		WHERE status IN (?, ?)
		  AND provider_link_id IS NOT NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		string(types.LinkStatusActive), string(types.LinkStatusProcessing), before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]*entity.PaymentLink, 0)
	for rows.Next() {
		item, err := scanPaymentLinkFromRows(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return links, nil
}

// ListExpired returns ACTIVE links whose expiration date has passed.
func (r *PaymentLinkRepository) ListExpired(ctx context.Context, now time.Time, limit int32) ([]*entity.PaymentLink, error) {
	query := `
		SELECT ` + paymentLinkColumns + `
		FROM payment_links
		WHERE status = ?
		  AND expiration_date IS NOT NULL
		  AND expiration_date <= ?
		ORDER BY expiration_date ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, string(types.LinkStatusActive), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]*entity.PaymentLink, 0)
	for rows.Next() {
		item, err := scanPaymentLinkFromRows(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return links, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPaymentLink(scan rowScanner, link *entity.PaymentLink) error {
	var provider string
	var providerLinkID sql.NullString
	var providerURL sql.NullString
	var description sql.NullString
	var amountUsd sql.NullFloat64
	var amountType string
	var logoURL sql.NullString
	var methodsJSON string
	var callbackURL sql.NullString
	var status string
	var expirationDate sql.NullTime
	var transactionID sql.NullString
	var paymentMethod sql.NullString
	var payerEmail sql.NullString
	var paidAt sql.NullTime

	err := scan.Scan(
		&link.ID,
		&provider,
		&providerLinkID,
		&providerURL,
		&link.Title,
		&description,
		&link.Amount,
		&amountUsd,
		&amountType,
		&link.Currency,
		&logoURL,
		&methodsJSON,
		&callbackURL,
		&status,
		&expirationDate,
		&transactionID,
		&paymentMethod,
		&payerEmail,
		&paidAt,
		&link.UserID,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return err
	}

	link.Provider = types.Provider(provider)
	link.AmountType = types.AmountType(amountType)
	link.Status = types.LinkStatus(status)
	link.ProviderLinkID = stringPtrFromNull(providerLinkID)
	link.ProviderURL = stringPtrFromNull(providerURL)
	link.Description = stringPtrFromNull(description)
	link.AmountUsd = float64PtrFromNull(amountUsd)
	link.LogoURL = stringPtrFromNull(logoURL)
	link.CallbackURL = stringPtrFromNull(callbackURL)
	link.ExpirationDate = timePtrFromNull(expirationDate)
	link.TransactionID = stringPtrFromNull(transactionID)
	link.PaymentMethod = stringPtrFromNull(paymentMethod)
	link.PayerEmail = stringPtrFromNull(payerEmail)
	link.PaidAt = timePtrFromNull(paidAt)

	methods, err := parseStringList(methodsJSON)
	if err != nil {
		return err
	}
	link.PaymentMethods = methods

	return nil
}

func scanPaymentLinkFromRows(rows *sql.Rows) (*entity.PaymentLink, error) {
	item := &entity.PaymentLink{}
	if err := scanPaymentLink(rows, item); err != nil {
		return nil, err
	}
	return item, nil
}
