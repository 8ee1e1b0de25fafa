package service

import (
	"context"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

// RunExpireBatch marks ACTIVE links whose expiration date has passed as
// EXPIRED. Links mid-payment are left alone; the reconciler settles those.
func (s *LinkService) RunExpireBatch(ctx context.Context) error {
	now := time.Now().UTC()

	items, err := s.linkRepo.ListExpired(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, link := range items {
		if link == nil || link.Status != types.LinkStatusActive {
			continue
		}

		link.Status = types.LinkStatusExpired
		link.UpdatedAt = now

		if err := s.linkRepo.Update(ctx, link); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		s.logger.WithField("link_id", link.ID).Info("payment link expired")
	}

	return firstErr
}
