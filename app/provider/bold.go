package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

type BoldConfig struct {
	APIURL                string
	APIKey                string
	WebhookSecret         string
	AllowUnsignedWebhooks bool
	HTTPTimeout           time.Duration
}

// BoldProvider talks to Bold's payment-link API. Bold works in whole COP
// units, expects expirations as nanosecond epoch timestamps, and reports
// domain failures through an errors array even on HTTP 200.
type BoldProvider struct {
	cfg    BoldConfig
	client *http.Client
}

func NewBoldProvider(cfg BoldConfig) *BoldProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	return &BoldProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *BoldProvider) Code() types.Provider {
	return types.ProviderBold
}

type boldAmount struct {
	Currency    string `json:"currency"`
	TotalAmount int64  `json:"total_amount"`
}

type boldCreateLinkRequest struct {
	AmountType     string      `json:"amount_type"`
	Amount         *boldAmount `json:"amount,omitempty"`
	Description    string      `json:"description,omitempty"`
	ExpirationDate int64       `json:"expiration_date,omitempty"`
	CallbackURL    string      `json:"callback_url,omitempty"`
	PaymentMethods []string    `json:"payment_methods,omitempty"`
	PayerEmail     string      `json:"payer_email,omitempty"`
	ImageURL       string      `json:"image_url,omitempty"`
}

type boldCreateLinkResponse struct {
	Payload struct {
		PaymentLink string `json:"payment_link"`
		URL         string `json:"url"`
	} `json:"payload"`
	Errors []string `json:"errors"`
}

func (p *BoldProvider) CreateLink(ctx context.Context, input *CreateLinkInput) (*CreateLinkOutput, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, errors.New("bold api key is not configured")
	}

	request := boldCreateLinkRequest{
		AmountType:     string(input.AmountType),
		CallbackURL:    input.CallbackURL,
		PaymentMethods: input.PaymentMethods,
		PayerEmail:     input.PayerEmail,
		ImageURL:       input.LogoURL,
	}

	// OPEN links carry no amount at all; the payer enters it.
	if input.AmountType == types.AmountTypeClose && input.Amount > 0 {
		request.Amount = &boldAmount{
			Currency:    input.Currency,
			TotalAmount: input.Amount,
		}
	}

	description := input.Description
	if description == "" {
		description = input.Title
	}
	request.Description = truncateRunes(description, 100)

	if input.ExpirationDate != nil {
		request.ExpirationDate = toBoldNanos(*input.ExpirationDate)
	}

	body, err := p.doJSON(ctx, http.MethodPost, "/online/link/v1", request)
	if err != nil {
		return nil, err
	}

	var response boldCreateLinkResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("bold link creation failed: %s", strings.Join(response.Errors, ", "))
	}
	if strings.TrimSpace(response.Payload.PaymentLink) == "" {
		return nil, errors.New("bold response is missing the payment link id")
	}

	return &CreateLinkOutput{
		ProviderLinkID: response.Payload.PaymentLink,
		ProviderURL:    response.Payload.URL,
	}, nil
}

type boldLinkStatusResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	PaymentMethod string `json:"payment_method"`
}

func (p *BoldProvider) GetLinkStatus(ctx context.Context, providerLinkID string) (*LinkStatusInfo, error) {
	body, err := p.doJSON(ctx, http.MethodGet, "/online/link/v1/"+url.PathEscape(providerLinkID), nil)
	if err != nil {
		return nil, err
	}

	var response boldLinkStatusResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	status := types.LinkStatus(strings.ToUpper(strings.TrimSpace(response.Status)))
	if !types.IsValidLinkStatus(status) {
		return nil, fmt.Errorf("bold returned an unknown link status: %q", response.Status)
	}

	info := &LinkStatusInfo{Status: status}
	if s := strings.TrimSpace(response.TransactionID); s != "" {
		info.TransactionID = &s
	}
	if s := strings.TrimSpace(response.PaymentMethod); s != "" {
		info.PaymentMethod = &s
	}

	return info, nil
}

type boldPaymentMethodsResponse struct {
	Payload struct {
		PaymentMethods map[string]struct {
			Max int64 `json:"max"`
			Min int64 `json:"min"`
		} `json:"payment_methods"`
	} `json:"payload"`
	Errors []string `json:"errors"`
}

// GetPaymentMethods returns the methods Bold currently offers along with
// their per-method amount bounds.
func (p *BoldProvider) GetPaymentMethods(ctx context.Context) (map[string]types.PaymentMethodLimits, error) {
	body, err := p.doJSON(ctx, http.MethodGet, "/online/link/v1/payment_methods", nil)
	if err != nil {
		return nil, err
	}

	var response boldPaymentMethodsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("bold payment methods failed: %s", strings.Join(response.Errors, ", "))
	}

	methods := make(map[string]types.PaymentMethodLimits, len(response.Payload.PaymentMethods))
	for name, limits := range response.Payload.PaymentMethods {
		methods[name] = types.PaymentMethodLimits{Min: limits.Min, Max: limits.Max}
	}

	return methods, nil
}

// Bold checkout runs on the provider-hosted page, so there is no local
// transaction orchestration.
func (p *BoldProvider) CreateTransaction(context.Context, *TransactionInput) (*TransactionOutput, error) {
	return nil, fmt.Errorf("%w: bold checkout is provider-hosted", ErrOperationNotSupported)
}

func (p *BoldProvider) GetTransaction(context.Context, string) (*TransactionOutput, error) {
	return nil, fmt.Errorf("%w: bold exposes no transaction endpoint", ErrOperationNotSupported)
}

type boldWebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		PaymentID     string `json:"payment_id"`
		PaymentMethod string `json:"payment_method"`
		Metadata      struct {
			Reference string `json:"reference"`
		} `json:"metadata"`
	} `json:"data"`
}

func (p *BoldProvider) VerifyAndParseWebhook(_ context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		// Fail closed: an unconfigured secret only passes in explicit
		// sandbox mode.
		if !p.cfg.AllowUnsignedWebhooks {
			return nil, errors.New("bold webhook secret is not configured")
		}
	} else if !verifyBoldSignature(payload, signature, p.cfg.WebhookSecret) {
		return nil, errors.New("invalid bold webhook signature")
	}

	var event boldWebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, errors.New("bold webhook is missing the event id")
	}

	result := &WebhookEvent{
		EventID:       event.ID,
		EventType:     event.Type,
		TransactionID: event.Data.PaymentID,
		Reference:     strings.TrimSpace(event.Data.Metadata.Reference),
	}

	switch event.Type {
	case "SALE_APPROVED":
		now := time.Now().UTC()
		result.NewStatus = types.LinkStatusPaid
		result.PaymentMethod = event.Data.PaymentMethod
		result.PaidAt = &now
	case "SALE_REJECTED":
		result.NewStatus = types.LinkStatusActive
	case "VOID_APPROVED":
		result.NewStatus = types.LinkStatusActive
		result.ClearPaymentFields = true
		result.TransactionID = ""
	default:
		// Unrecognized events are logged but drive no transition.
	}

	return result, nil
}

// The signature is an HMAC-SHA256 over the base64 encoding of the raw body,
// hex encoded, delivered in the x-bold-signature header.
func verifyBoldSignature(payload []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(encoded))
	expected := mac.Sum(nil)

	candidate, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(candidate, expected)
}

func (p *BoldProvider) doJSON(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.APIURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "x-api-key "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bold API error: %d", resp.StatusCode)
	}

	return body, nil
}

// Bold expects expirations as nanosecond epoch timestamps with millisecond
// precision.
func toBoldNanos(t time.Time) int64 {
	return t.UnixMilli() * 1e6
}

func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
