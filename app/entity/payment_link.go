package entity

import (
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

type PaymentLink struct {
	ID string

	Provider       types.Provider
	ProviderLinkID *string
	ProviderURL    *string

	Title          string
	Description    *string
	Amount         int64
	AmountUsd      *float64
	AmountType     types.AmountType
	Currency       string
	LogoURL        *string
	PaymentMethods []string
	CallbackURL    *string

	Status         types.LinkStatus
	ExpirationDate *time.Time
	TransactionID  *string
	PaymentMethod  *string
	PayerEmail     *string
	PaidAt         *time.Time

	UserID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the link can no longer accept a payment attempt.
func (l *PaymentLink) Terminal() bool {
	return l.Status == types.LinkStatusPaid || l.Status == types.LinkStatusExpired
}
