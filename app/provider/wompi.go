package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

type WompiConfig struct {
	APIURL          string
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	EventsSecret    string
	HTTPTimeout     time.Duration
}

// WompiProvider talks to Wompi's REST API. Wompi amounts are expressed in
// cents, so COP values are multiplied by 100 on the way out and divided
// back on the way in.
type WompiProvider struct {
	cfg    WompiConfig
	client *http.Client
}

func NewWompiProvider(cfg WompiConfig) *WompiProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	return &WompiProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *WompiProvider) Code() types.Provider {
	return types.ProviderWompi
}

func (p *WompiProvider) PublicKey() string {
	return p.cfg.PublicKey
}

// MerchantInfo is the subset of Wompi's merchant payload checkout needs:
// the presigned acceptance tokens a payer must accept before tokenizing.
type MerchantInfo struct {
	AcceptanceToken   string
	PersonalDataToken string
}

type wompiMerchantResponse struct {
	Data struct {
		PresignedAcceptance struct {
			AcceptanceToken string `json:"acceptance_token"`
		} `json:"presigned_acceptance"`
		PresignedPersonalDataAuth struct {
			AcceptanceToken string `json:"acceptance_token"`
		} `json:"presigned_personal_data_auth"`
	} `json:"data"`
}

func (p *WompiProvider) GetMerchantInfo(ctx context.Context) (*MerchantInfo, error) {
	body, err := p.doJSON(ctx, http.MethodGet, "/merchants/"+url.PathEscape(p.cfg.PublicKey), nil, p.cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	var response wompiMerchantResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if response.Data.PresignedAcceptance.AcceptanceToken == "" {
		return nil, errors.New("wompi merchant info is missing the acceptance token")
	}

	return &MerchantInfo{
		AcceptanceToken:   response.Data.PresignedAcceptance.AcceptanceToken,
		PersonalDataToken: response.Data.PresignedPersonalDataAuth.AcceptanceToken,
	}, nil
}

type wompiPseInstitutionsResponse struct {
	Data []struct {
		Code string `json:"financial_institution_code"`
		Name string `json:"financial_institution_name"`
	} `json:"data"`
}

func (p *WompiProvider) GetPSEInstitutions(ctx context.Context) ([]types.PseInstitution, error) {
	body, err := p.doJSON(ctx, http.MethodGet, "/pse/financial_institutions", nil, p.cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	var response wompiPseInstitutionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	institutions := make([]types.PseInstitution, 0, len(response.Data))
	for _, item := range response.Data {
		institutions = append(institutions, types.PseInstitution{
			Code: item.Code,
			Name: item.Name,
		})
	}

	return institutions, nil
}

type wompiCreateLinkRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	SingleUse       bool   `json:"single_use"`
	CollectShipping bool   `json:"collect_shipping"`
	Currency        string `json:"currency"`
	AmountInCents   *int64 `json:"amount_in_cents"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	RedirectURL     string `json:"redirect_url,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
}

type wompiCreateLinkResponse struct {
	Data struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"data"`
}

func (p *WompiProvider) CreateLink(ctx context.Context, input *CreateLinkInput) (*CreateLinkOutput, error) {
	if strings.TrimSpace(p.cfg.PrivateKey) == "" {
		return nil, errors.New("wompi private key is not configured")
	}

	description := input.Description
	if description == "" {
		description = input.Title
	}

	request := wompiCreateLinkRequest{
		Name:            input.Title,
		Description:     description,
		SingleUse:       true,
		CollectShipping: false,
		Currency:        input.Currency,
		RedirectURL:     input.RedirectURL,
		ImageURL:        input.LogoURL,
	}

	// OPEN links are created with a null amount so the payer fills it in.
	if input.AmountType == types.AmountTypeClose && input.Amount > 0 {
		cents := toWompiCents(input.Amount)
		request.AmountInCents = &cents
	}
	if input.ExpirationDate != nil {
		request.ExpiresAt = input.ExpirationDate.UTC().Format(time.RFC3339)
	}

	body, err := p.doJSON(ctx, http.MethodPost, "/payment_links", request, p.cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	var response wompiCreateLinkResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if response.Data.ID == "" {
		return nil, errors.New("wompi response is missing the payment link id")
	}

	linkURL := response.Data.URL
	if linkURL == "" {
		linkURL = "https://checkout.wompi.co/l/" + response.Data.ID
	}

	return &CreateLinkOutput{
		ProviderLinkID: response.Data.ID,
		ProviderURL:    linkURL,
	}, nil
}

type wompiLinkStatusResponse struct {
	Data struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	} `json:"data"`
}

// GetLinkStatus can only distinguish live links from expired ones; payment
// outcomes arrive through webhooks or the transactions endpoint.
func (p *WompiProvider) GetLinkStatus(ctx context.Context, providerLinkID string) (*LinkStatusInfo, error) {
	body, err := p.doJSON(ctx, http.MethodGet, "/payment_links/"+url.PathEscape(providerLinkID), nil, p.cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	var response wompiLinkStatusResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	status := types.LinkStatusExpired
	if response.Data.Active {
		status = types.LinkStatusActive
	}

	return &LinkStatusInfo{Status: status}, nil
}

type wompiPaymentMethodPayload struct {
	Type                     string `json:"type"`
	Token                    string `json:"token,omitempty"`
	Installments             int32  `json:"installments,omitempty"`
	PhoneNumber              string `json:"phone_number,omitempty"`
	UserType                 string `json:"user_type,omitempty"`
	UserLegalIDType          string `json:"user_legal_id_type,omitempty"`
	UserLegalID              string `json:"user_legal_id,omitempty"`
	FinancialInstitutionCode string `json:"financial_institution_code,omitempty"`
	PaymentDescription       string `json:"payment_description,omitempty"`
}

type wompiCreateTransactionRequest struct {
	AcceptanceToken    string                     `json:"acceptance_token"`
	AcceptPersonalAuth string                     `json:"accept_personal_auth,omitempty"`
	AmountInCents      int64                      `json:"amount_in_cents"`
	Currency           string                     `json:"currency"`
	Signature          string                     `json:"signature"`
	CustomerEmail      string                     `json:"customer_email"`
	Reference          string                     `json:"reference"`
	PaymentMethod      *wompiPaymentMethodPayload `json:"payment_method,omitempty"`
	RedirectURL        string                     `json:"redirect_url,omitempty"`
}

type wompiTransactionData struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Reference         string `json:"reference"`
	AmountInCents     int64  `json:"amount_in_cents"`
	CustomerEmail     string `json:"customer_email"`
	PaymentMethodType string `json:"payment_method_type"`
	PaymentLinkID     string `json:"payment_link_id"`
	FinalizedAt       string `json:"finalized_at"`
	PaymentMethod     struct {
		Extra struct {
			AsyncPaymentURL string `json:"async_payment_url"`
		} `json:"extra"`
	} `json:"payment_method"`
	RedirectURL string `json:"redirect_url"`
}

type wompiTransactionResponse struct {
	Data wompiTransactionData `json:"data"`
}

func (p *WompiProvider) CreateTransaction(ctx context.Context, input *TransactionInput) (*TransactionOutput, error) {
	if strings.TrimSpace(p.cfg.PrivateKey) == "" {
		return nil, errors.New("wompi private key is not configured")
	}

	acceptance := input.AcceptanceToken
	personal := input.PersonalDataToken
	if acceptance == "" {
		merchant, err := p.GetMerchantInfo(ctx)
		if err != nil {
			return nil, err
		}
		acceptance = merchant.AcceptanceToken
		if personal == "" {
			personal = merchant.PersonalDataToken
		}
	}

	cents := toWompiCents(input.Amount)
	request := wompiCreateTransactionRequest{
		AcceptanceToken:    acceptance,
		AcceptPersonalAuth: personal,
		AmountInCents:      cents,
		Currency:           input.Currency,
		Signature:          p.integritySignature(input.Reference, cents, input.Currency),
		CustomerEmail:      input.CustomerEmail,
		Reference:          input.Reference,
		RedirectURL:        input.RedirectURL,
	}
	if input.Method != nil {
		request.PaymentMethod = &wompiPaymentMethodPayload{
			Type:                     input.Method.Type,
			Token:                    input.Method.Token,
			Installments:             input.Method.Installments,
			PhoneNumber:              input.Method.PhoneNumber,
			UserType:                 input.Method.UserType,
			UserLegalIDType:          input.Method.UserLegalIDType,
			UserLegalID:              input.Method.UserLegalID,
			FinancialInstitutionCode: input.Method.FinancialInstitutionCode,
			PaymentDescription:       input.Method.PaymentDescription,
		}
	}

	body, err := p.doJSON(ctx, http.MethodPost, "/transactions", request, p.cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	var response wompiTransactionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if response.Data.ID == "" {
		return nil, errors.New("wompi response is missing the transaction id")
	}

	return transactionOutputFromWompi(&response.Data), nil
}

func (p *WompiProvider) GetTransaction(ctx context.Context, transactionID string) (*TransactionOutput, error) {
	body, err := p.doJSON(ctx, http.MethodGet, "/transactions/"+url.PathEscape(transactionID), nil, p.cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	var response wompiTransactionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if response.Data.ID == "" {
		return nil, errors.New("wompi transaction was not found")
	}

	return transactionOutputFromWompi(&response.Data), nil
}

type wompiWebhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Transaction wompiTransactionData `json:"transaction"`
	} `json:"data"`
	Signature struct {
		Properties []string `json:"properties"`
		Checksum   string   `json:"checksum"`
	} `json:"signature"`
	Timestamp int64 `json:"timestamp"`
}

func (p *WompiProvider) VerifyAndParseWebhook(_ context.Context, payload []byte, _ string) (*WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.EventsSecret) == "" {
		return nil, errors.New("wompi events secret is not configured")
	}

	var envelope wompiWebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}

	if err := p.verifyWompiChecksum(payload, &envelope); err != nil {
		return nil, err
	}

	if envelope.Event != "transaction.updated" {
		return &WebhookEvent{EventType: envelope.Event, Ignorable: true}, nil
	}

	tx := envelope.Data.Transaction
	if tx.ID == "" {
		return nil, errors.New("wompi webhook is missing the transaction id")
	}

	event := &WebhookEvent{
		EventID:        fmt.Sprintf("wompi_%s_%d", tx.ID, envelope.Timestamp),
		EventType:      envelope.Event,
		Reference:      tx.Reference,
		ProviderLinkID: tx.PaymentLinkID,
	}

	switch strings.ToUpper(tx.Status) {
	case "APPROVED":
		event.NewStatus = types.LinkStatusPaid
		event.TransactionID = tx.ID
		event.PaymentMethod = tx.PaymentMethodType
		event.CustomerEmail = tx.CustomerEmail
		paidAt := parseWompiTime(tx.FinalizedAt)
		event.PaidAt = &paidAt
	case "DECLINED", "ERROR":
		event.NewStatus = types.LinkStatusActive
	case "VOIDED":
		event.NewStatus = types.LinkStatusActive
		event.ClearPaymentFields = true
	case "PENDING":
		event.NewStatus = types.LinkStatusProcessing
		event.TransactionID = tx.ID
	default:
		// Unknown statuses are logged without a transition.
	}

	return event, nil
}

// The checksum covers the dotted-path property values named by the event
// itself, concatenated with the timestamp and the events secret.
func (p *WompiProvider) verifyWompiChecksum(payload []byte, envelope *wompiWebhookEnvelope) error {
	if envelope.Signature.Checksum == "" {
		return errors.New("wompi webhook is missing its checksum")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return err
	}
	data, _ := raw["data"].(map[string]interface{})

	var builder strings.Builder
	for _, property := range envelope.Signature.Properties {
		builder.WriteString(lookupDottedPath(data, property))
	}
	builder.WriteString(strconv.FormatInt(envelope.Timestamp, 10))
	builder.WriteString(p.cfg.EventsSecret)

	sum := sha256.Sum256([]byte(builder.String()))
	expected := hex.EncodeToString(sum[:])
	candidate := strings.ToLower(strings.TrimSpace(envelope.Signature.Checksum))

	if subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) != 1 {
		return errors.New("invalid wompi webhook checksum")
	}

	return nil
}

func lookupDottedPath(data map[string]interface{}, path string) string {
	var current interface{} = data
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current = node[segment]
	}

	switch value := current.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case nil:
		return ""
	default:
		encoded, _ := json.Marshal(value)
		return string(encoded)
	}
}

type wompiErrorResponse struct {
	Error struct {
		Type     string              `json:"type"`
		Reason   string              `json:"reason"`
		Messages map[string][]string `json:"messages"`
	} `json:"error"`
	Message string `json:"message"`
}

// Wompi's error shape varies by endpoint; reduce the candidates to the
// first usable message.
func normalizeWompiError(statusCode int, body []byte) error {
	var response wompiErrorResponse
	if err := json.Unmarshal(body, &response); err == nil {
		if response.Error.Reason != "" {
			return fmt.Errorf("wompi API error: %s", response.Error.Reason)
		}
		if len(response.Error.Messages) > 0 {
			for field, messages := range response.Error.Messages {
				if len(messages) > 0 {
					return fmt.Errorf("wompi API error: %s %s", field, messages[0])
				}
			}
		}
		if response.Error.Type != "" {
			return fmt.Errorf("wompi API error: %s", response.Error.Type)
		}
		if response.Message != "" {
			return fmt.Errorf("wompi API error: %s", response.Message)
		}
	}

	var bare struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &bare); err == nil && bare.Error != "" {
		return fmt.Errorf("wompi API error: %s", bare.Error)
	}

	return fmt.Errorf("wompi API error: %d", statusCode)
}

func (p *WompiProvider) doJSON(ctx context.Context, method, path string, payload interface{}, bearer string) ([]byte, error) {
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
	req.Header.Set("Authorization", "Bearer "+bearer)
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
		return nil, normalizeWompiError(resp.StatusCode, body)
	}

	return body, nil
}

func (p *WompiProvider) integritySignature(reference string, amountInCents int64, currency string) string {
	material := reference + strconv.FormatInt(amountInCents, 10) + currency + p.cfg.IntegritySecret
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

func transactionOutputFromWompi(data *wompiTransactionData) *TransactionOutput {
	output := &TransactionOutput{
		TransactionID:   data.ID,
		Status:          strings.ToUpper(data.Status),
		Reference:       data.Reference,
		CustomerEmail:   data.CustomerEmail,
		PaymentMethod:   data.PaymentMethodType,
		AsyncPaymentURL: data.PaymentMethod.Extra.AsyncPaymentURL,
	}

	switch output.Status {
	case "APPROVED":
		output.LinkStatus = types.LinkStatusPaid
	case "PENDING":
		output.LinkStatus = types.LinkStatusProcessing
	default:
		output.LinkStatus = types.LinkStatusActive
	}

	if data.FinalizedAt != "" {
		t := parseWompiTime(data.FinalizedAt)
		output.FinalizedAt = &t
	}

	return output
}

func parseWompiTime(value string) time.Time {
	if value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

func toWompiCents(amount int64) int64 {
	return amount * 100
}
