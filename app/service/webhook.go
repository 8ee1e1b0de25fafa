package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/provider"
	"github.com/linkpagos/ms-go-paylinks/app/repository"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

const boldLinkPrefix = "LNK_"

// HandleProviderWebhook verifies, deduplicates and applies one inbound
// provider event. The webhook log's unique event id is the idempotency
// barrier: a replayed event is acknowledged without touching the link again.
func (s *LinkService) HandleProviderWebhook(ctx context.Context, req *types.ProviderWebhookRequest) (*entity.PaymentLink, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	providerClient, err := s.providerReg.Get(req.Provider)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	event, err := providerClient.VerifyAndParseWebhook(ctx, req.Payload, req.Signature)
	if err != nil {
		s.logger.WithError(err).WithField("provider", req.Provider).Warn("webhook rejected")
		return nil, ErrWebhookRejected
	}
	if event.Ignorable {
		return nil, nil
	}
	if strings.TrimSpace(event.EventID) == "" {
		return nil, ErrWebhookRejected
	}

	link, err := s.findLinkForWebhook(ctx, req.Provider, event)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	log := &entity.WebhookLog{
		Provider:  req.Provider,
		EventID:   event.EventID,
		EventType: event.EventType,
		Payload:   string(req.Payload),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if link != nil {
		log.PaymentID = link.ID
	}

	if err := s.webhookRepo.Create(ctx, log); err != nil {
		if errors.Is(err, repository.ErrWebhookAlreadyLogged) {
			// Replay of an event we already have.
			return link, nil
		}
		return nil, err
	}

	if link == nil {
		s.logger.WithFields(map[string]interface{}{
			"provider":   req.Provider,
			"event_id":   event.EventID,
			"event_type": event.EventType,
		}).Warn("webhook received for unknown link")
		return nil, ErrLinkNotFound
	}

	if event.NewStatus == "" {
		s.logger.WithFields(map[string]interface{}{
			"provider":   req.Provider,
			"event_id":   event.EventID,
			"event_type": event.EventType,
			"link_id":    link.ID,
		}).Info("webhook logged without a status transition")
		if err := s.webhookRepo.MarkProcessed(ctx, event.EventID); err != nil {
			s.logger.WithError(err).WithField("event_id", event.EventID).Warn("failed to mark webhook log processed")
		}
		return link, nil
	}

	applyWebhookTransition(link, event, now)

	if err := s.linkRepo.Update(ctx, link); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if err := s.webhookRepo.MarkProcessed(ctx, event.EventID); err != nil {
		s.logger.WithError(err).WithField("event_id", event.EventID).Warn("failed to mark webhook log processed")
	}

	return link, nil
}

func applyWebhookTransition(link *entity.PaymentLink, event *provider.WebhookEvent, now time.Time) {
	link.Status = event.NewStatus

	if event.ClearPaymentFields {
		link.TransactionID = nil
		link.PaymentMethod = nil
		link.PayerEmail = nil
		link.PaidAt = nil
	} else {
		if event.TransactionID != "" {
			link.TransactionID = &event.TransactionID
		}
		if event.PaymentMethod != "" {
			link.PaymentMethod = &event.PaymentMethod
		}
		if event.CustomerEmail != "" {
			link.PayerEmail = &event.CustomerEmail
		}
		if event.PaidAt != nil {
			link.PaidAt = event.PaidAt
		}
	}

	link.UpdatedAt = now
}

// findLinkForWebhook resolves the event to a stored link. Bold references
// carry the provider link id directly; Wompi events may name the payment
// link id, or only a transaction reference that matches either column.
func (s *LinkService) findLinkForWebhook(ctx context.Context, providerCode types.Provider, event *provider.WebhookEvent) (*entity.PaymentLink, error) {
	if providerCode == types.ProviderBold {
		reference := strings.TrimSpace(event.Reference)
		if !strings.HasPrefix(reference, boldLinkPrefix) {
			return nil, nil
		}
		return s.linkRepo.FindByProviderLinkID(ctx, reference)
	}

	if providerLinkID := strings.TrimSpace(event.ProviderLinkID); providerLinkID != "" {
		link, err := s.linkRepo.FindByProviderLinkID(ctx, providerLinkID)
		if err != nil || link != nil {
			return link, err
		}
	}

	if reference := strings.TrimSpace(event.Reference); reference != "" {
		// Checkout references are "{linkID}_{millis}"; strip the suffix
		// before matching against our own ids.
		candidate := reference
		if idx := strings.LastIndex(reference, "_"); idx > 0 {
			candidate = reference[:idx]
		}
		link, err := s.linkRepo.FindByReference(ctx, providerCode, candidate)
		if err != nil || link != nil {
			return link, err
		}
		if candidate != reference {
			return s.linkRepo.FindByReference(ctx, providerCode, reference)
		}
	}

	return nil, nil
}
