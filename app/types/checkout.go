package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	PaymentMethodCard  = "CARD"
	PaymentMethodPSE   = "PSE"
	PaymentMethodNequi = "NEQUI"
)

// PaymentMethodPayload carries the method-specific fields the checkout page
// collected. Card data never appears here; the browser tokenizes the card
// against Wompi directly and only the opaque token reaches this service.
type PaymentMethodPayload struct {
	Type                     string `json:"type"`
	Token                    string `json:"token,omitempty"`
	Installments             int32  `json:"installments,omitempty"`
	PhoneNumber              string `json:"phoneNumber,omitempty"`
	UserType                 string `json:"userType,omitempty"`
	UserLegalIDType          string `json:"userLegalIdType,omitempty"`
	UserLegalID              string `json:"userLegalId,omitempty"`
	FinancialInstitutionCode string `json:"financialInstitutionCode,omitempty"`
	PaymentDescription       string `json:"paymentDescription,omitempty"`
}

type CreateTransactionRequest struct {
	LinkID            string                `json:"-"`
	PaymentMethod     *PaymentMethodPayload `json:"paymentMethod"`
	CustomerEmail     string                `json:"customerEmail"`
	AcceptanceToken   string                `json:"acceptanceToken"`
	PersonalDataToken string                `json:"personalDataToken"`
}

func NewCreateTransactionRequestFromContext(ctx echo.Context) (*CreateTransactionRequest, error) {
	var body CreateTransactionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.LinkID = strings.TrimSpace(ctx.Param("linkId"))
	body.CustomerEmail = strings.TrimSpace(body.CustomerEmail)
	body.AcceptanceToken = strings.TrimSpace(body.AcceptanceToken)
	body.PersonalDataToken = strings.TrimSpace(body.PersonalDataToken)
	if body.PaymentMethod != nil {
		body.PaymentMethod.Type = strings.ToUpper(strings.TrimSpace(body.PaymentMethod.Type))
		body.PaymentMethod.Token = strings.TrimSpace(body.PaymentMethod.Token)
		body.PaymentMethod.PhoneNumber = strings.TrimSpace(body.PaymentMethod.PhoneNumber)
		body.PaymentMethod.UserLegalID = strings.TrimSpace(body.PaymentMethod.UserLegalID)
		body.PaymentMethod.FinancialInstitutionCode = strings.TrimSpace(body.PaymentMethod.FinancialInstitutionCode)
	}

	return &body, nil
}

func (r *CreateTransactionRequest) Validate() error {
	if r.LinkID == "" {
		return errors.New("invalid link id")
	}
	if r.CustomerEmail == "" || !strings.Contains(r.CustomerEmail, "@") {
		return errors.New("customerEmail is required")
	}
	if r.AcceptanceToken == "" {
		return errors.New("acceptanceToken is required")
	}
	if r.PersonalDataToken == "" {
		return errors.New("personalDataToken is required")
	}
	if r.PaymentMethod == nil {
		return errors.New("paymentMethod is required")
	}

	switch r.PaymentMethod.Type {
	case PaymentMethodCard:
		if r.PaymentMethod.Token == "" {
			return errors.New("card token is required")
		}
	case PaymentMethodPSE:
		if r.PaymentMethod.FinancialInstitutionCode == "" {
			return errors.New("financialInstitutionCode is required for PSE")
		}
		if r.PaymentMethod.UserLegalID == "" {
			return errors.New("userLegalId is required for PSE")
		}
		if r.PaymentMethod.UserLegalIDType == "" {
			return errors.New("userLegalIdType is required for PSE")
		}
	case PaymentMethodNequi:
		if len(r.PaymentMethod.PhoneNumber) != 10 {
			return errors.New("phoneNumber must have 10 digits for NEQUI")
		}
	default:
		return errors.New("paymentMethod.type must be CARD, PSE or NEQUI")
	}

	return nil
}

type GetCheckoutSessionRequest struct {
	LinkID string
}

func NewGetCheckoutSessionRequestFromContext(ctx echo.Context) (*GetCheckoutSessionRequest, error) {
	return &GetCheckoutSessionRequest{LinkID: strings.TrimSpace(ctx.Param("linkId"))}, nil
}

func (r *GetCheckoutSessionRequest) Validate() error {
	if r.LinkID == "" {
		return errors.New("invalid link id")
	}
	return nil
}
