package provider

import (
	"context"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

type CreateLinkInput struct {
	Title          string
	Description    string
	Amount         int64
	AmountType     types.AmountType
	Currency       string
	LogoURL        string
	CallbackURL    string
	RedirectURL    string
	ExpirationDate *time.Time
	PaymentMethods []string
	PayerEmail     string
}

type CreateLinkOutput struct {
	ProviderLinkID string
	ProviderURL    string
}

// LinkStatusInfo is a provider's current view of a link. Pointer fields stay
// nil when the provider's status endpoint does not expose them; nil fields
// must not overwrite stored values.
type LinkStatusInfo struct {
	Status        types.LinkStatus
	TransactionID *string
	PaymentMethod *string
}

type TransactionMethod struct {
	Type                     string
	Token                    string
	Installments             int32
	PhoneNumber              string
	UserType                 string
	UserLegalIDType          string
	UserLegalID              string
	FinancialInstitutionCode string
	PaymentDescription       string
}

type TransactionInput struct {
	Amount            int64
	Currency          string
	CustomerEmail     string
	Reference         string
	RedirectURL       string
	AcceptanceToken   string
	PersonalDataToken string
	Method            *TransactionMethod
}

type TransactionOutput struct {
	TransactionID   string
	Status          string
	LinkStatus      types.LinkStatus
	Reference       string
	CustomerEmail   string
	PaymentMethod   string
	AsyncPaymentURL string
	FinalizedAt     *time.Time
}

// WebhookEvent is the provider-agnostic reading of an inbound callback.
// Ignorable events are acknowledged without being logged. An empty NewStatus
// means the event is logged but drives no transition.
type WebhookEvent struct {
	EventID            string
	EventType          string
	Ignorable          bool
	NewStatus          types.LinkStatus
	ClearPaymentFields bool
	TransactionID      string
	PaymentMethod      string
	CustomerEmail      string
	Reference          string
	ProviderLinkID     string
	PaidAt             *time.Time
}

type Provider interface {
	Code() types.Provider
	CreateLink(ctx context.Context, input *CreateLinkInput) (*CreateLinkOutput, error)
	GetLinkStatus(ctx context.Context, providerLinkID string) (*LinkStatusInfo, error)
	CreateTransaction(ctx context.Context, input *TransactionInput) (*TransactionOutput, error)
	GetTransaction(ctx context.Context, transactionID string) (*TransactionOutput, error)
	VerifyAndParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}
