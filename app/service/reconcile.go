package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/provider"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

// SyncLinkStatus refreshes one link against its provider. It is best-effort:
// a provider or storage failure leaves the stored link untouched and the
// caller gets the last known state.
func (s *LinkService) SyncLinkStatus(ctx context.Context, link *entity.PaymentLink) *entity.PaymentLink {
	if link == nil || link.Terminal() {
		return link
	}

	updated, err := s.reconcileLink(ctx, link, time.Now().UTC())
	if err != nil {
		s.logger.WithError(err).WithField("link_id", link.ID).Warn("link status sync failed")
		return link
	}

	return updated
}

// RunReconcileBatch re-checks stale non-terminal links against their
// providers. PROCESSING Wompi links additionally poll the transaction
// endpoint, since the payment-link endpoint never reports payment outcomes.
func (s *LinkService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.staleAfter())

	items, err := s.linkRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, link := range items {
		if link == nil {
			continue
		}
		if _, err := s.reconcileLink(ctx, link, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *LinkService) reconcileLink(ctx context.Context, link *entity.PaymentLink, now time.Time) (*entity.PaymentLink, error) {
	if link.ProviderLinkID == nil || strings.TrimSpace(*link.ProviderLinkID) == "" {
		return link, nil
	}

	providerClient, err := s.providerReg.Get(link.Provider)
	if err != nil {
		return link, err
	}

	// A PROCESSING Wompi link has a payment in flight; its payment-link
	// endpoint would only say "inactive" and clobber the attempt. Ask the
	// transactions endpoint instead.
	if link.Provider == types.ProviderWompi && link.Status == types.LinkStatusProcessing {
		changed, err := s.pollPendingTransaction(ctx, providerClient, link, now)
		if err != nil || !changed {
			return link, err
		}
		link.UpdatedAt = now
		if err := s.linkRepo.Update(ctx, link); err != nil {
			return link, err
		}
		return link, nil
	}

	info, err := providerClient.GetLinkStatus(ctx, strings.TrimSpace(*link.ProviderLinkID))
	if err != nil {
		return link, err
	}

	changed := false

	if info.Status != "" && info.Status != link.Status {
		// A provider cannot un-pay a link during reconcile; voids arrive
		// as webhooks with explicit clear semantics.
		if !(link.Status == types.LinkStatusPaid && info.Status != types.LinkStatusPaid) {
			link.Status = info.Status
			changed = true

			if info.Status == types.LinkStatusPaid && link.PaidAt == nil {
				link.PaidAt = &now
			}
		}
	}
	if info.TransactionID != nil && *info.TransactionID != "" {
		if link.TransactionID == nil || *link.TransactionID != *info.TransactionID {
			link.TransactionID = info.TransactionID
			changed = true
		}
	}
	if info.PaymentMethod != nil && *info.PaymentMethod != "" {
		if link.PaymentMethod == nil || *link.PaymentMethod != *info.PaymentMethod {
			link.PaymentMethod = info.PaymentMethod
			changed = true
		}
	}

	if !changed {
		return link, nil
	}

	link.UpdatedAt = now
	if err := s.linkRepo.Update(ctx, link); err != nil {
		return link, err
	}

	return link, nil
}

// pollPendingTransaction narrows the gap where a Wompi payment settled but
// the webhook never arrived: a PROCESSING link with a known transaction asks
// the transactions endpoint directly.
func (s *LinkService) pollPendingTransaction(ctx context.Context, providerClient provider.Provider, link *entity.PaymentLink, now time.Time) (bool, error) {
	if link.Provider != types.ProviderWompi || link.Status != types.LinkStatusProcessing {
		return false, nil
	}
	if link.TransactionID == nil || strings.TrimSpace(*link.TransactionID) == "" {
		return false, nil
	}

	output, err := providerClient.GetTransaction(ctx, strings.TrimSpace(*link.TransactionID))
	if err != nil {
		if errors.Is(err, provider.ErrOperationNotSupported) {
			return false, nil
		}
		return false, err
	}

	switch output.LinkStatus {
	case types.LinkStatusPaid:
		link.Status = types.LinkStatusPaid
		if output.PaymentMethod != "" {
			link.PaymentMethod = &output.PaymentMethod
		}
		if output.CustomerEmail != "" {
			link.PayerEmail = &output.CustomerEmail
		}
		if output.FinalizedAt != nil {
			link.PaidAt = output.FinalizedAt
		} else {
			link.PaidAt = &now
		}
		return true, nil
	case types.LinkStatusActive:
		// The attempt failed; the link goes back to accepting payments.
		link.Status = types.LinkStatusActive
		return true, nil
	default:
		return false, nil
	}
}

func (s *LinkService) staleAfter() time.Duration {
	if s.linksCfg.ReconcileStaleAfter > 0 {
		return s.linksCfg.ReconcileStaleAfter
	}
	return 15 * time.Minute
}
