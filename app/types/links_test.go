package types

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewCreateLinkRequestFromContextDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/api/links", bytes.NewBufferString(`{"title":"  Store link  ","amount":50000}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewCreateLinkRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.Title != "Store link" {
		t.Fatalf("expected trimmed title, got %q", parsed.Title)
	}
	if parsed.Provider != ProviderWompi {
		t.Fatalf("expected WOMPI default, got %q", parsed.Provider)
	}
	if parsed.Currency != "COP" {
		t.Fatalf("expected COP default, got %q", parsed.Currency)
	}
	if parsed.AmountType != AmountTypeClose {
		t.Fatalf("expected CLOSE default, got %q", parsed.AmountType)
	}
}

func TestCreateLinkValidate(t *testing.T) {
	req := &CreateLinkRequest{
		Title:      "X",
		Amount:     1000,
		AmountType: AmountTypeClose,
		Provider:   ProviderBold,
		Currency:   "COP",
	}
	if err := req.Validate(); err == nil {
		t.Fatal("expected title length validation error")
	}

	req.Title = "Donation"
	req.Amount = 0
	if err := req.Validate(); err == nil {
		t.Fatal("expected amount validation error")
	}

	req.Amount = 1000
	req.Currency = "USD"
	if err := req.Validate(); err == nil {
		t.Fatal("expected currency validation error")
	}

	req.Currency = "COP"
	req.Provider = "PAYPAL"
	if err := req.Validate(); err == nil {
		t.Fatal("expected provider validation error")
	}

	req.Provider = ProviderBold
	req.ExpirationDate = "not-a-date"
	if err := req.Validate(); err == nil {
		t.Fatal("expected expiration format validation error")
	}

	req.ExpirationDate = "2026-12-31T23:59:59Z"
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestUpdateLinkValidatePointerFields(t *testing.T) {
	req := &UpdateLinkRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected id validation error")
	}

	req.ID = "link-1"
	if err := req.Validate(); err != nil {
		t.Fatalf("expected empty patch to be valid, got %v", err)
	}

	badAmount := int64(0)
	req.Amount = &badAmount
	if err := req.Validate(); err == nil {
		t.Fatal("expected amount validation error")
	}

	goodAmount := int64(2500)
	req.Amount = &goodAmount
	title := "New title"
	req.Title = &title
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid patch, got %v", err)
	}
}

func TestNewListLinksRequestFromContextAndValidate(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/api/links?status=paid&provider=bold&page=2&pageSize=20", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewListLinksRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !parsed.HasStatus || parsed.Status != LinkStatusPaid {
		t.Fatalf("unexpected status parse: %+v", parsed)
	}
	if parsed.Provider != ProviderBold {
		t.Fatalf("unexpected provider parse: %+v", parsed)
	}
	if parsed.Page != 2 || parsed.PageSize != 20 {
		t.Fatalf("unexpected pagination parse: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid list request, got %v", err)
	}
}

func TestListLinksValidateBounds(t *testing.T) {
	req := &ListLinksRequest{Page: 0, PageSize: 10}
	if err := req.Validate(); err == nil {
		t.Fatal("expected page validation error")
	}

	req = &ListLinksRequest{Page: 1, PageSize: 101}
	if err := req.Validate(); err == nil {
		t.Fatal("expected pageSize validation error")
	}

	req = &ListLinksRequest{Page: 1, PageSize: 10, HasStatus: true, Status: "ARCHIVED"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected status validation error")
	}
}
