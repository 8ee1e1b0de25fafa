package types

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = int32(10)
	maxPageSize     = int32(100)
)

type CreateLinkRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Amount         int64      `json:"amount"`
	AmountUsd      float64    `json:"amountUsd"`
	AmountType     AmountType `json:"amountType"`
	Currency       string     `json:"currency"`
	LogoURL        string     `json:"logoUrl"`
	ExpirationDate string     `json:"expirationDate"`
	CallbackURL    string     `json:"callbackUrl"`
	PaymentMethods []string   `json:"paymentMethods"`
	Provider       Provider   `json:"provider"`
}

func NewCreateLinkRequestFromContext(ctx echo.Context) (*CreateLinkRequest, error) {
	var body CreateLinkRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Title = strings.TrimSpace(body.Title)
	body.Description = strings.TrimSpace(body.Description)
	body.LogoURL = strings.TrimSpace(body.LogoURL)
	body.ExpirationDate = strings.TrimSpace(body.ExpirationDate)
	body.CallbackURL = strings.TrimSpace(body.CallbackURL)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Provider = Provider(strings.ToUpper(strings.TrimSpace(string(body.Provider))))
	body.AmountType = AmountType(strings.ToUpper(strings.TrimSpace(string(body.AmountType))))

	if body.Currency == "" {
		body.Currency = "COP"
	}
	if body.Provider == "" {
		body.Provider = ProviderWompi
	}
	if body.AmountType == "" {
		body.AmountType = AmountTypeClose
	}

	return &body, nil
}

func (r *CreateLinkRequest) Validate() error {
	if len(r.Title) < 2 {
		return errors.New("title must have at least 2 characters")
	}
	if len(r.Description) > 100 {
		return errors.New("description must have at most 100 characters")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	if r.AmountType != AmountTypeOpen && r.AmountType != AmountTypeClose {
		return errors.New("amountType must be OPEN or CLOSE")
	}
	if !IsValidProvider(r.Provider) {
		return errors.New("provider must be BOLD or WOMPI")
	}
	if r.Currency != "COP" {
		return errors.New("currency must be COP")
	}
	if r.ExpirationDate != "" {
		if _, err := r.Expiration(); err != nil {
			return errors.New("expirationDate must be RFC3339")
		}
	}
	return nil
}

// Expiration parses the optional RFC3339 expiration date.
func (r *CreateLinkRequest) Expiration() (*time.Time, error) {
	if r.ExpirationDate == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, r.ExpirationDate)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type UpdateLinkRequest struct {
	ID             string    `json:"-"`
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Amount         *int64    `json:"amount"`
	LogoURL        *string   `json:"logoUrl"`
	ExpirationDate *string   `json:"expirationDate"`
	CallbackURL    *string   `json:"callbackUrl"`
	PaymentMethods *[]string `json:"paymentMethods"`
}

func NewUpdateLinkRequestFromContext(ctx echo.Context) (*UpdateLinkRequest, error) {
	var body UpdateLinkRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.ID = strings.TrimSpace(ctx.Param("id"))
	return &body, nil
}

func (r *UpdateLinkRequest) Validate() error {
	if r.ID == "" {
		return errors.New("invalid link id")
	}
	if r.Title != nil && len(strings.TrimSpace(*r.Title)) < 2 {
		return errors.New("title must have at least 2 characters")
	}
	if r.Description != nil && len(*r.Description) > 100 {
		return errors.New("description must have at most 100 characters")
	}
	if r.Amount != nil && *r.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	if r.ExpirationDate != nil && strings.TrimSpace(*r.ExpirationDate) != "" {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*r.ExpirationDate)); err != nil {
			return errors.New("expirationDate must be RFC3339")
		}
	}
	return nil
}

type ListLinksRequest struct {
	Status    LinkStatus
	HasStatus bool
	Provider  Provider
	Page      int32
	PageSize  int32
}

func NewListLinksRequestFromContext(ctx echo.Context) (*ListLinksRequest, error) {
	req := &ListLinksRequest{
		Page:     1,
		PageSize: defaultPageSize,
	}

	statusRaw := strings.ToUpper(strings.TrimSpace(ctx.QueryParam("status")))
	if statusRaw != "" {
		req.HasStatus = true
		req.Status = LinkStatus(statusRaw)
	}

	providerRaw := strings.ToUpper(strings.TrimSpace(ctx.QueryParam("provider")))
	if providerRaw != "" {
		req.Provider = Provider(providerRaw)
	}

	if pageRaw := strings.TrimSpace(ctx.QueryParam("page")); pageRaw != "" {
		page, err := strconv.ParseInt(pageRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Page = int32(page)
	}

	if sizeRaw := strings.TrimSpace(ctx.QueryParam("pageSize")); sizeRaw != "" {
		size, err := strconv.ParseInt(sizeRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.PageSize = int32(size)
	}

	return req, nil
}

func (r *ListLinksRequest) Validate() error {
	if r.Page <= 0 {
		return errors.New("page must be >= 1")
	}
	if r.PageSize <= 0 || r.PageSize > maxPageSize {
		return errors.New("pageSize must be between 1 and 100")
	}
	if r.HasStatus && !IsValidLinkStatus(r.Status) {
		return errors.New("invalid status")
	}
	if r.Provider != "" && !IsValidProvider(r.Provider) {
		return errors.New("invalid provider")
	}
	return nil
}

type GetLinkRequest struct {
	ID string
}

func NewGetLinkRequestFromContext(ctx echo.Context) (*GetLinkRequest, error) {
	return &GetLinkRequest{ID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetLinkRequest) Validate() error {
	if r.ID == "" {
		return errors.New("invalid link id")
	}
	return nil
}
