package controller

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/provider"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

func newWebhookContext(e *echo.Echo, providerName, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/"+providerName, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues(providerName)
	return c, rec
}

func TestHandleProviderWebhookEndpointProcessed(t *testing.T) {
	e := echo.New()
	providerLinkID := "LNK_abc"
	repo := &controllerLinkRepo{
		findByProviderLinkIDFn: func(context.Context, string) (*entity.PaymentLink, error) {
			return &entity.PaymentLink{ID: "link-1", UserID: "user-1", Provider: types.ProviderBold, ProviderLinkID: &providerLinkID, Status: types.LinkStatusActive}, nil
		},
	}
	svc := newServiceForControllerTest(repo, &controllerWebhookRepo{}, &controllerProvider{
		code: types.ProviderBold,
		webhookEvent: &provider.WebhookEvent{
			EventID:   "evt_1",
			EventType: "SALE_APPROVED",
			NewStatus: types.LinkStatusPaid,
			Reference: "LNK_abc",
		},
	})
	ctrl := NewWebhookController(svc)

	c, rec := newWebhookContext(e, "bold", `{"id":"evt_1"}`)
	if err := ctrl.HandleProviderWebhook(c); err != nil {
		t.Fatalf("webhook handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleProviderWebhookEndpointBadSignatureIs401(t *testing.T) {
	e := echo.New()
	svc := newServiceForControllerTest(&controllerLinkRepo{}, &controllerWebhookRepo{}, &controllerProvider{
		code:       types.ProviderBold,
		webhookErr: errors.New("invalid signature"),
	})
	ctrl := NewWebhookController(svc)

	c, rec := newWebhookContext(e, "bold", `{"id":"evt_1"}`)
	if err := ctrl.HandleProviderWebhook(c); err != nil {
		t.Fatalf("webhook handler: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProviderWebhookEndpointUnknownLinkIs200(t *testing.T) {
	e := echo.New()
	svc := newServiceForControllerTest(&controllerLinkRepo{}, &controllerWebhookRepo{}, &controllerProvider{
		code: types.ProviderBold,
		webhookEvent: &provider.WebhookEvent{
			EventID:   "evt_orphan",
			EventType: "SALE_APPROVED",
			NewStatus: types.LinkStatusPaid,
			Reference: "LNK_missing",
		},
	})
	ctrl := NewWebhookController(svc)

	c, rec := newWebhookContext(e, "bold", `{"id":"evt_orphan"}`)
	if err := ctrl.HandleProviderWebhook(c); err != nil {
		t.Fatalf("webhook handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown link, got %d", rec.Code)
	}
}

func TestHandleProviderWebhookEndpointUnknownProviderIs400(t *testing.T) {
	e := echo.New()
	svc := newServiceForControllerTest(&controllerLinkRepo{}, &controllerWebhookRepo{}, &controllerProvider{code: types.ProviderBold})
	ctrl := NewWebhookController(svc)

	c, rec := newWebhookContext(e, "paypal", `{"id":"evt_1"}`)
	if err := ctrl.HandleProviderWebhook(c); err != nil {
		t.Fatalf("webhook handler: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
