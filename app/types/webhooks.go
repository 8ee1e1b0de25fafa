package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

// ProviderWebhookRequest is the raw inbound webhook: the unparsed body plus
// whatever signature material travels out of band. Bold signs via the
// x-bold-signature header; Wompi embeds its checksum in the body.
type ProviderWebhookRequest struct {
	Provider  Provider
	Signature string
	Payload   []byte
}

func NewProviderWebhookRequestFromContext(ctx echo.Context) (*ProviderWebhookRequest, error) {
	provider := Provider(strings.ToUpper(strings.TrimSpace(ctx.Param("provider"))))

	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &ProviderWebhookRequest{
		Provider:  provider,
		Signature: strings.TrimSpace(ctx.Request().Header.Get("x-bold-signature")),
		Payload:   rawBody,
	}, nil
}

func (r *ProviderWebhookRequest) Validate() error {
	if !IsValidProvider(r.Provider) {
		return errors.New("unknown webhook provider")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	return nil
}
