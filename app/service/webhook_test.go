package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/provider"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

func boldWebhookRequest() *types.ProviderWebhookRequest {
	return &types.ProviderWebhookRequest{
		Provider:  types.ProviderBold,
		Signature: "sig",
		Payload:   []byte(`{"id":"evt_1"}`),
	}
}

func TestHandleProviderWebhookMarksLinkPaid(t *testing.T) {
	repo := newServiceLinkRepo()
	providerLinkID := "LNK_abc"
	repo.links["link-1"] = &entity.PaymentLink{
		ID:             "link-1",
		UserID:         "user-1",
		Provider:       types.ProviderBold,
		ProviderLinkID: &providerLinkID,
		Status:         types.LinkStatusActive,
	}

	paidAt := time.Now().UTC()
	webhookRepo := newServiceWebhookRepo()
	svc := newLinkServiceForTest(repo, webhookRepo, &fakeProvider{
		code: types.ProviderBold,
		webhookEvent: &provider.WebhookEvent{
			EventID:       "evt_1",
			EventType:     "SALE_APPROVED",
			NewStatus:     types.LinkStatusPaid,
			TransactionID: "tx-1",
			PaymentMethod: "CARD",
			Reference:     "LNK_abc",
			PaidAt:        &paidAt,
		},
	})

	link, err := svc.HandleProviderWebhook(context.Background(), boldWebhookRequest())
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if link.Status != types.LinkStatusPaid {
		t.Fatalf("unexpected status: %s", link.Status)
	}

	stored := repo.links["link-1"]
	if stored.Status != types.LinkStatusPaid {
		t.Fatal("status transition was not persisted")
	}
	if stored.TransactionID == nil || *stored.TransactionID != "tx-1" {
		t.Fatalf("unexpected transaction id: %v", stored.TransactionID)
	}
	if stored.PaidAt == nil {
		t.Fatal("expected paid at to be set")
	}
	if len(webhookRepo.logs) != 1 {
		t.Fatalf("expected one webhook log, got %d", len(webhookRepo.logs))
	}
	if !webhookRepo.processed["evt_1"] {
		t.Fatal("expected event to be marked processed")
	}
}

func TestHandleProviderWebhookSurvivesMarkProcessedFailure(t *testing.T) {
	repo := newServiceLinkRepo()
	providerLinkID := "LNK_abc"
	repo.links["link-1"] = &entity.PaymentLink{
		ID:             "link-1",
		UserID:         "user-1",
		Provider:       types.ProviderBold,
		ProviderLinkID: &providerLinkID,
		Status:         types.LinkStatusActive,
	}

	webhookRepo := newServiceWebhookRepo()
	webhookRepo.markProcessedErr = errors.New("audit table unavailable")
	svc := newLinkServiceForTest(repo, webhookRepo, &fakeProvider{
		code: types.ProviderBold,
		webhookEvent: &provider.WebhookEvent{
			EventID:       "evt_1",
			EventType:     "SALE_APPROVED",
			NewStatus:     types.LinkStatusPaid,
			TransactionID: "tx-1",
			Reference:     "LNK_abc",
		},
	})

	link, err := svc.HandleProviderWebhook(context.Background(), boldWebhookRequest())
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if link.Status != types.LinkStatusPaid {
		t.Fatalf("unexpected status: %s", link.Status)
	}
	if repo.links["link-1"].Status != types.LinkStatusPaid {
		t.Fatal("status transition was not persisted")
	}
}

func TestHandleProviderWebhookIsIdempotent(t *testing.T) {
	repo := newServiceLinkRepo()
	providerLinkID := "LNK_abc"
	repo.links["link-1"] = &entity.PaymentLink{
		ID:             "link-1",
		UserID:         "user-1",
		Provider:       types.ProviderBold,
		ProviderLinkID: &providerLinkID,
		Status:         types.LinkStatusActive,
	}

	webhookRepo := newServiceWebhookRepo()
	svc := newLinkServiceForTest(repo, webhookRepo, &fakeProvider{
		code: types.ProviderBold,
		webhookEvent: &provider.WebhookEvent{
			EventID:       "evt_1",
			EventType:     "SALE_APPROVED",
			NewStatus:     types.LinkStatusPaid,
			TransactionID: "tx-1",
			Reference:     "LNK_abc",
		},
	})

	if _, err := svc.HandleProviderWebhook(context.Background(), boldWebhookRequest()); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// Simulate an out-of-band rollback, then replay the same event.
	repo.links["link-1"].Status = types.LinkStatusActive

	if _, err := svc.HandleProviderWebhook(context.Background(), boldWebhookRequest()); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if repo.links["link-1"].Status != types.LinkStatusActive {
		t.Fatal("replayed event must not be applied again")
	}
	if len(webhookRepo.logs) != 1 {
		t.Fatalf("expected one webhook log, got %d", len(webhookRepo.logs))
	}
}

func TestHandleProviderWebhookRejectsBadSignature(t *testing.T) {
	svc := newLinkServiceForTest(newServiceLinkRepo(), newServiceWebhookRepo(), &fakeProvider{
		code:       types.ProviderBold,
		webhookErr: errors.New("invalid signature"),
	})

	_, err := svc.HandleProviderWebhook(context.Background(), boldWebhookRequest())
	if !errors.Is(err, ErrWebhookRejected) {
		t.Fatalf("expected ErrWebhookRejected, got %v", err)
	}
}

func TestHandleProviderWebhookIgnorableEvent(t *testing.T) {
	webhookRepo := newServiceWebhookRepo()
	svc := newLinkServiceForTest(newServiceLinkRepo(), webhookRepo, &fakeProvider{
		code:         types.ProviderWompi,
		webhookEvent: &provider.WebhookEvent{EventType: "nequi_token.updated", Ignorable: true},
	})

	link, err := svc.HandleProviderWebhook(context.Background(), &types.ProviderWebhookRequest{
		Provider: types.ProviderWompi,
		Payload:  []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if link != nil {
		t.Fatal("ignorable events resolve no link")
	}
	if len(webhookRepo.logs) != 0 {
		t.Fatal("ignorable events must not be logged")
	}
}

func TestHandleProviderWebhookUnknownLinkStillLogged(t *testing.T) {
	webhookRepo := newServiceWebhookRepo()
	svc := newLinkServiceForTest(newServiceLinkRepo(), webhookRepo, &fakeProvider{
		code: types.ProviderBold,
		webhookEvent: &provider.WebhookEvent{
			EventID:   "evt_orphan",
			EventType: "SALE_APPROVED",
			NewStatus: types.LinkStatusPaid,
			Reference: "LNK_missing",
		},
	})

	_, err := svc.HandleProviderWebhook(context.Background(), boldWebhookRequest())
	if !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
	if len(webhookRepo.logs) != 1 {
		t.Fatal("orphan events must still be logged for audit")
	}
}

func TestHandleProviderWebhookVoidClearsPaymentFields(t *testing.T) {
	repo := newServiceLinkRepo()
	providerLinkID := "LNK_abc"
	txID := "tx-1"
	method := "CARD"
	email := "payer@example.com"
	paidAt := time.Now().UTC()
	repo.links["link-1"] = &entity.PaymentLink{
		ID:             "link-1",
		UserID:         "user-1",
		Provider:       types.ProviderBold,
		ProviderLinkID: &providerLinkID,
		Status:         types.LinkStatusPaid,
		TransactionID:  &txID,
		PaymentMethod:  &method,
		PayerEmail:     &email,
		PaidAt:         &paidAt,
	}

	svc := newLinkServiceForTest(repo, newServiceWebhookRepo(), &fakeProvider{
		code: types.ProviderBold,
		webhookEvent: &provider.WebhookEvent{
			EventID:            "evt_void",
			EventType:          "VOID_APPROVED",
			NewStatus:          types.LinkStatusActive,
			ClearPaymentFields: true,
			Reference:          "LNK_abc",
		},
	})

	link, err := svc.HandleProviderWebhook(context.Background(), boldWebhookRequest())
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if link.Status != types.LinkStatusActive {
		t.Fatalf("unexpected status: %s", link.Status)
	}

	stored := repo.links["link-1"]
	if stored.TransactionID != nil || stored.PaymentMethod != nil || stored.PayerEmail != nil || stored.PaidAt != nil {
		t.Fatal("void must clear all payment fields")
	}
}

func TestHandleProviderWebhookWompiResolvesByCheckoutReference(t *testing.T) {
	repo := newServiceLinkRepo()
	repo.links["link-1"] = &entity.PaymentLink{
		ID:       "link-1",
		UserID:   "user-1",
		Provider: types.ProviderWompi,
		Status:   types.LinkStatusProcessing,
	}

	svc := newLinkServiceForTest(repo, newServiceWebhookRepo(), &fakeProvider{
		code: types.ProviderWompi,
		webhookEvent: &provider.WebhookEvent{
			EventID:       "wompi_tx-1_1756500000",
			EventType:     "transaction.updated",
			NewStatus:     types.LinkStatusPaid,
			TransactionID: "tx-1",
			Reference:     "link-1_1756499000123",
		},
	})

	link, err := svc.HandleProviderWebhook(context.Background(), &types.ProviderWebhookRequest{
		Provider: types.ProviderWompi,
		Payload:  []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if link.ID != "link-1" {
		t.Fatalf("resolved wrong link: %s", link.ID)
	}
	if repo.links["link-1"].Status != types.LinkStatusPaid {
		t.Fatal("status transition was not persisted")
	}
}

func TestHandleProviderWebhookLogOnlyEvent(t *testing.T) {
	repo := newServiceLinkRepo()
	providerLinkID := "LNK_abc"
	repo.links["link-1"] = &entity.PaymentLink{
		ID:             "link-1",
		UserID:         "user-1",
		Provider:       types.ProviderBold,
		ProviderLinkID: &providerLinkID,
		Status:         types.LinkStatusActive,
	}

	webhookRepo := newServiceWebhookRepo()
	svc := newLinkServiceForTest(repo, webhookRepo, &fakeProvider{
		code: types.ProviderBold,
		webhookEvent: &provider.WebhookEvent{
			EventID:   "evt_unknown_type",
			EventType: "SALE_SOMETHING",
			Reference: "LNK_abc",
		},
	})

	link, err := svc.HandleProviderWebhook(context.Background(), boldWebhookRequest())
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if link.Status != types.LinkStatusActive {
		t.Fatal("log-only events must not change status")
	}
	if len(webhookRepo.logs) != 1 {
		t.Fatal("log-only events are still logged")
	}
}
