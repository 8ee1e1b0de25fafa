package types

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// PaymentLink is the API representation of a stored link.
type PaymentLink struct {
	ID             string     `json:"id"`
	Provider       Provider   `json:"provider"`
	ProviderLinkID string     `json:"providerLinkId,omitempty"`
	ProviderURL    string     `json:"providerUrl,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Amount         int64      `json:"amount"`
	AmountUsd      float64    `json:"amountUsd,omitempty"`
	AmountType     AmountType `json:"amountType"`
	Currency       string     `json:"currency"`
	LogoURL        string     `json:"logoUrl,omitempty"`
	PaymentMethods []string   `json:"paymentMethods"`
	CallbackURL    string     `json:"callbackUrl,omitempty"`
	Status         LinkStatus `json:"status"`
	ExpirationDate string     `json:"expirationDate,omitempty"`
	TransactionID  string     `json:"transactionId,omitempty"`
	PaymentMethod  string     `json:"paymentMethod,omitempty"`
	PayerEmail     string     `json:"payerEmail,omitempty"`
	PaidAt         string     `json:"paidAt,omitempty"`
	UserID         string     `json:"userId"`
	User           *LinkOwner `json:"user,omitempty"`
	CreatedAt      string     `json:"createdAt"`
	UpdatedAt      string     `json:"updatedAt"`
}

// LinkOwner is the subset of the creating user embedded in link payloads.
type LinkOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LinkEnvelopeResponse struct {
	Link *PaymentLink `json:"link"`
}

type ListLinksResponse struct {
	Data       []*PaymentLink `json:"data"`
	Total      int64          `json:"total"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalPages int32          `json:"totalPages"`
}

// CheckoutSessionResponse carries the ephemeral Wompi tokens the browser
// needs before tokenizing a payment instrument.
type CheckoutSessionResponse struct {
	AcceptanceToken   string           `json:"acceptanceToken"`
	PersonalDataToken string           `json:"personalDataToken"`
	PublicKey         string           `json:"publicKey"`
	PseInstitutions   []PseInstitution `json:"pseInstitutions,omitempty"`
}

type PseInstitution struct {
	Code string `json:"financialInstitutionCode"`
	Name string `json:"financialInstitutionName"`
}

type TransactionResponse struct {
	TransactionID   string     `json:"transactionId"`
	Status          string     `json:"status"`
	Reference       string     `json:"reference"`
	LinkStatus      LinkStatus `json:"linkStatus"`
	AsyncPaymentURL string     `json:"asyncPaymentUrl,omitempty"`
}

// BoldPaymentMethodsResponse mirrors Bold's available-methods payload with
// per-method amount bounds.
type BoldPaymentMethodsResponse struct {
	PaymentMethods map[string]PaymentMethodLimits `json:"paymentMethods"`
}

type PaymentMethodLimits struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}
