package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/cache"
	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/provider"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

const (
	cacheKeyMerchantInfo    = "wompi:merchant_info"
	cacheKeyPseInstitutions = "wompi:pse_institutions"
)

// checkoutGateway is the slice of the Wompi client the embedded checkout
// needs beyond the generic provider contract.
type checkoutGateway interface {
	GetMerchantInfo(ctx context.Context) (*provider.MerchantInfo, error)
	GetPSEInstitutions(ctx context.Context) ([]types.PseInstitution, error)
	PublicKey() string
}

type boldMethodsGateway interface {
	GetPaymentMethods(ctx context.Context) (map[string]types.PaymentMethodLimits, error)
}

// GetCheckoutSession prepares the embedded Wompi checkout for a link: the
// acceptance tokens the payer must accept, the public key the browser
// tokenizes against, and the PSE institution list.
func (s *LinkService) GetCheckoutSession(ctx context.Context, req *types.GetCheckoutSessionRequest) (*types.CheckoutSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	link, err := s.payableLink(ctx, req.LinkID)
	if err != nil {
		return nil, err
	}
	if link.Provider != types.ProviderWompi {
		return nil, fmt.Errorf("%w: embedded checkout requires a WOMPI link", ErrProviderUnsupported)
	}

	merchant, err := s.merchantInfo(ctx)
	if err != nil {
		return nil, err
	}

	institutions, err := s.pseInstitutions(ctx)
	if err != nil {
		// The rest of the session is still usable without PSE.
		s.logger.WithError(err).Warn("failed to load PSE institutions")
		institutions = nil
	}

	return &types.CheckoutSessionResponse{
		AcceptanceToken:   merchant.AcceptanceToken,
		PersonalDataToken: merchant.PersonalDataToken,
		PublicKey:         s.checkout.PublicKey(),
		PseInstitutions:   institutions,
	}, nil
}

// CreateCheckoutTransaction charges a link through the embedded checkout.
// The reference ties the provider transaction back to the link id.
func (s *LinkService) CreateCheckoutTransaction(ctx context.Context, req *types.CreateTransactionRequest) (*entity.PaymentLink, *provider.TransactionOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	link, err := s.payableLink(ctx, req.LinkID)
	if err != nil {
		return nil, nil, err
	}
	if link.Provider != types.ProviderWompi {
		return nil, nil, fmt.Errorf("%w: embedded checkout requires a WOMPI link", ErrProviderUnsupported)
	}

	providerClient, err := s.providerReg.Get(link.Provider)
	if err != nil {
		return nil, nil, err
	}

	reference := fmt.Sprintf("%s_%d", link.ID, time.Now().UnixMilli())

	var method *provider.TransactionMethod
	if req.PaymentMethod != nil {
		method = &provider.TransactionMethod{
			Type:                     req.PaymentMethod.Type,
			Token:                    req.PaymentMethod.Token,
			Installments:             req.PaymentMethod.Installments,
			PhoneNumber:              req.PaymentMethod.PhoneNumber,
			UserType:                 req.PaymentMethod.UserType,
			UserLegalIDType:          req.PaymentMethod.UserLegalIDType,
			UserLegalID:              req.PaymentMethod.UserLegalID,
			FinancialInstitutionCode: req.PaymentMethod.FinancialInstitutionCode,
			PaymentDescription:       link.Title,
		}
		if method.Installments <= 0 && method.Type == types.PaymentMethodCard {
			method.Installments = 1
		}
	}

	redirectURL := ""
	if link.CallbackURL != nil {
		redirectURL = *link.CallbackURL
	}

	output, err := providerClient.CreateTransaction(ctx, &provider.TransactionInput{
		Amount:            link.Amount,
		Currency:          link.Currency,
		CustomerEmail:     req.CustomerEmail,
		Reference:         reference,
		RedirectURL:       redirectURL,
		AcceptanceToken:   req.AcceptanceToken,
		PersonalDataToken: req.PersonalDataToken,
		Method:            method,
	})
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	link.TransactionID = &output.TransactionID
	link.PayerEmail = normalizeOptionalString(req.CustomerEmail)
	if output.PaymentMethod != "" {
		link.PaymentMethod = &output.PaymentMethod
	}

	switch output.LinkStatus {
	case types.LinkStatusPaid:
		link.Status = types.LinkStatusPaid
		if output.FinalizedAt != nil {
			link.PaidAt = output.FinalizedAt
		} else {
			link.PaidAt = &now
		}
	case types.LinkStatusProcessing:
		link.Status = types.LinkStatusProcessing
	}

	link.UpdatedAt = now
	if err := s.linkRepo.Update(ctx, link); err != nil {
		return nil, nil, err
	}

	return link, output, nil
}

// GetBoldPaymentMethods proxies Bold's available-methods endpoint so the
// dashboard can narrow the method picker, cached to spare the upstream.
func (s *LinkService) GetBoldPaymentMethods(ctx context.Context) (map[string]types.PaymentMethodLimits, error) {
	const cacheKey = "bold:payment_methods"

	var cached map[string]types.PaymentMethodLimits
	if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WithError(err).Warn("payment methods cache read failed")
	}

	methods, err := s.boldMethods.GetPaymentMethods(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, cacheKey, methods); err != nil {
		s.logger.WithError(err).Warn("payment methods cache write failed")
	}

	return methods, nil
}

// payableLink loads a link for a payment attempt, expiring it first when its
// expiration date has passed.
func (s *LinkService) payableLink(ctx context.Context, linkID string) (*entity.PaymentLink, error) {
	link, err := s.linkRepo.FindByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}

	now := time.Now().UTC()
	if link.Status == types.LinkStatusActive && link.ExpirationDate != nil && link.ExpirationDate.Before(now) {
		link.Status = types.LinkStatusExpired
		link.UpdatedAt = now
		if err := s.linkRepo.Update(ctx, link); err != nil {
			return nil, err
		}
	}

	if link.Terminal() {
		return nil, fmt.Errorf("%w: link is %s", ErrLinkNotPayable, link.Status)
	}

	return link, nil
}

func (s *LinkService) merchantInfo(ctx context.Context) (*provider.MerchantInfo, error) {
	var cached provider.MerchantInfo
	if err := s.cache.GetJSON(ctx, cacheKeyMerchantInfo, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WithError(err).Warn("merchant info cache read failed")
	}

	merchant, err := s.checkout.GetMerchantInfo(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, cacheKeyMerchantInfo, merchant); err != nil {
		s.logger.WithError(err).Warn("merchant info cache write failed")
	}

	return merchant, nil
}

func (s *LinkService) pseInstitutions(ctx context.Context) ([]types.PseInstitution, error) {
	var cached []types.PseInstitution
	if err := s.cache.GetJSON(ctx, cacheKeyPseInstitutions, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WithError(err).Warn("pse institutions cache read failed")
	}

	institutions, err := s.checkout.GetPSEInstitutions(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, cacheKeyPseInstitutions, institutions); err != nil {
		s.logger.WithError(err).Warn("pse institutions cache write failed")
	}

	return institutions, nil
}
