package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

func wompiLinkRepo() *controllerLinkRepo {
	providerLinkID := "wlink_1"
	return &controllerLinkRepo{
		findByIDFn: func(_ context.Context, id string) (*entity.PaymentLink, error) {
			if id != "link-1" {
				return nil, nil
			}
			return &entity.PaymentLink{
				ID:             "link-1",
				UserID:         "user-1",
				Provider:       types.ProviderWompi,
				ProviderLinkID: &providerLinkID,
				Title:          "Consulting",
				Amount:         50000,
				AmountType:     types.AmountTypeClose,
				Currency:       "COP",
				Status:         types.LinkStatusActive,
			}, nil
		},
	}
}

func TestGetPublicLinkEndpoint(t *testing.T) {
	e := echo.New()
	svc := newServiceForControllerTest(wompiLinkRepo(), &controllerWebhookRepo{}, &controllerProvider{code: types.ProviderWompi})
	ctrl := NewCheckoutController(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/pay/link-1/link", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("linkId")
	c.SetParamValues("link-1")

	if err := ctrl.GetPublicLink(c); err != nil {
		t.Fatalf("public link handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var response types.LinkEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Link == nil || response.Link.Title != "Consulting" {
		t.Fatalf("unexpected response: %+v", response.Link)
	}
}

func TestGetCheckoutSessionEndpoint(t *testing.T) {
	e := echo.New()
	svc := newServiceForControllerTest(wompiLinkRepo(), &controllerWebhookRepo{}, &controllerProvider{code: types.ProviderWompi})
	ctrl := NewCheckoutController(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/pay/link-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("linkId")
	c.SetParamValues("link-1")

	if err := ctrl.GetCheckoutSession(c); err != nil {
		t.Fatalf("checkout session handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var session types.CheckoutSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if session.AcceptanceToken != "acc-1" || session.PublicKey != "pub_test_key" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if len(session.PseInstitutions) != 1 {
		t.Fatalf("expected PSE institutions, got %+v", session.PseInstitutions)
	}
}

func TestCreateTransactionEndpointInvalidMethodIs400(t *testing.T) {
	e := echo.New()
	svc := newServiceForControllerTest(wompiLinkRepo(), &controllerWebhookRepo{}, &controllerProvider{code: types.ProviderWompi})
	ctrl := NewCheckoutController(svc)

	body := `{"customerEmail":"payer@example.com","acceptanceToken":"acc-1","personalDataToken":"pda-1","paymentMethod":{"type":"CASH"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/pay/link-1", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("linkId")
	c.SetParamValues("link-1")

	if err := ctrl.CreateTransaction(c); err != nil {
		t.Fatalf("create transaction handler: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetCheckoutSessionEndpointMissingLinkIs404(t *testing.T) {
	e := echo.New()
	svc := newServiceForControllerTest(&controllerLinkRepo{}, &controllerWebhookRepo{}, &controllerProvider{code: types.ProviderWompi})
	ctrl := NewCheckoutController(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/pay/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("linkId")
	c.SetParamValues("missing")

	if err := ctrl.GetCheckoutSession(c); err != nil {
		t.Fatalf("checkout session handler: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
