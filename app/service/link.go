package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/linkpagos/ms-go-paylinks/app/auth"
	"github.com/linkpagos/ms-go-paylinks/app/cache"
	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/provider"
	"github.com/linkpagos/ms-go-paylinks/app/repository"
	"github.com/linkpagos/ms-go-paylinks/app/types"
	"github.com/linkpagos/ms-go-paylinks/config"
)

const defaultBatchSize = int32(100)

type linkRepository interface {
	Create(ctx context.Context, link *entity.PaymentLink) error
	Update(ctx context.Context, link *entity.PaymentLink) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.PaymentLink, error)
	FindByProviderLinkID(ctx context.Context, providerLinkID string) (*entity.PaymentLink, error)
	FindByReference(ctx context.Context, provider types.Provider, reference string) (*entity.PaymentLink, error)
	List(ctx context.Context, filter repository.LinkFilter) ([]*entity.PaymentLink, error)
	Count(ctx context.Context, filter repository.LinkFilter) (int64, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.PaymentLink, error)
	ListExpired(ctx context.Context, now time.Time, limit int32) ([]*entity.PaymentLink, error)
}

type webhookLogRepository interface {
	Create(ctx context.Context, log *entity.WebhookLog) error
	MarkProcessed(ctx context.Context, eventID string) error
}

type userRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

type LinkService struct {
	linkRepo    linkRepository
	webhookRepo webhookLogRepository
	userRepo    userRepository
	providerReg *provider.Registry
	checkout    checkoutGateway
	boldMethods boldMethodsGateway
	cache       *cache.Cache
	linksCfg    config.LinksConfig
	logger      logrus.FieldLogger
}

func NewLinkService(
	linkRepo linkRepository,
	webhookRepo webhookLogRepository,
	userRepo userRepository,
	providerReg *provider.Registry,
	checkout checkoutGateway,
	boldMethods boldMethodsGateway,
	cacheClient *cache.Cache,
	linksCfg config.LinksConfig,
	logger logrus.FieldLogger,
) *LinkService {
	if cacheClient == nil {
		cacheClient = cache.NewDisabled()
	}

	return &LinkService{
		linkRepo:    linkRepo,
		webhookRepo: webhookRepo,
		userRepo:    userRepo,
		providerReg: providerReg,
		checkout:    checkout,
		boldMethods: boldMethods,
		cache:       cacheClient,
		linksCfg:    linksCfg,
		logger:      logger,
	}
}

func (s *LinkService) CreateLink(ctx context.Context, principal *auth.Principal, req *types.CreateLinkRequest) (*entity.PaymentLink, error) {
	if principal == nil {
		return nil, ErrInvalidRequest
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	if req.AmountType == types.AmountTypeClose && req.Amount < s.minAmount() {
		return nil, fmt.Errorf("%w: amount must be at least %d COP", ErrInvalidRequest, s.minAmount())
	}

	providerClient, err := s.providerReg.Get(req.Provider)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	expiration, err := req.Expiration()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	if expiration != nil && expiration.Before(time.Now()) {
		return nil, fmt.Errorf("%w: expirationDate must be in the future", ErrInvalidRequest)
	}

	methods := req.PaymentMethods
	if len(methods) == 0 {
		methods = append([]string(nil), types.DefaultPaymentMethods...)
	}

	providerOutput, err := providerClient.CreateLink(ctx, &provider.CreateLinkInput{
		Title:          req.Title,
		Description:    req.Description,
		Amount:         req.Amount,
		AmountType:     req.AmountType,
		Currency:       req.Currency,
		LogoURL:        req.LogoURL,
		CallbackURL:    req.CallbackURL,
		RedirectURL:    req.CallbackURL,
		ExpirationDate: expiration,
		PaymentMethods: methods,
		PayerEmail:     "",
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	link := &entity.PaymentLink{
		ID:             uuid.NewString(),
		Provider:       req.Provider,
		ProviderLinkID: normalizeOptionalString(providerOutput.ProviderLinkID),
		ProviderURL:    normalizeOptionalString(providerOutput.ProviderURL),
		Title:          req.Title,
		Description:    normalizeOptionalString(req.Description),
		Amount:         req.Amount,
		AmountUsd:      normalizeOptionalFloat64(req.AmountUsd),
		AmountType:     req.AmountType,
		Currency:       req.Currency,
		LogoURL:        normalizeOptionalString(req.LogoURL),
		PaymentMethods: methods,
		CallbackURL:    normalizeOptionalString(req.CallbackURL),
		Status:         types.LinkStatusActive,
		ExpirationDate: expiration,
		UserID:         principal.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.linkRepo.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrLinkAlreadyExists) {
			return nil, ErrLinkAlreadyExists
		}
		return nil, err
	}

	return link, nil
}

func (s *LinkService) GetLink(ctx context.Context, principal *auth.Principal, req *types.GetLinkRequest) (*entity.PaymentLink, *entity.User, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	link, err := s.findOwnedLink(ctx, principal, req.ID)
	if err != nil {
		return nil, nil, err
	}
	link = s.SyncLinkStatus(ctx, link)

	owner, err := s.userRepo.FindByID(ctx, link.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("link_id", link.ID).Warn("failed to load link owner")
		owner = nil
	}

	return link, owner, nil
}

// GetPublicLink serves the checkout page. It never requires a session, and
// stale non-terminal links are refreshed against the provider first.
func (s *LinkService) GetPublicLink(ctx context.Context, linkID string) (*entity.PaymentLink, error) {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, ErrInvalidRequest
	}

	link, err := s.linkRepo.FindByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}

	return s.SyncLinkStatus(ctx, link), nil
}

func (s *LinkService) ListLinks(ctx context.Context, principal *auth.Principal, req *types.ListLinksRequest) ([]*entity.PaymentLink, int64, error) {
	if principal == nil {
		return nil, 0, ErrInvalidRequest
	}
	if err := req.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	filter := repository.LinkFilter{
		HasStatus: req.HasStatus,
		Status:    req.Status,
		Provider:  req.Provider,
		Limit:     req.PageSize,
		Offset:    (req.Page - 1) * req.PageSize,
	}
	if !principal.IsAdmin() {
		filter.UserID = principal.UserID
	}

	items, err := s.linkRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.linkRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (s *LinkService) UpdateLink(ctx context.Context, principal *auth.Principal, req *types.UpdateLinkRequest) (*entity.PaymentLink, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	link, err := s.findOwnedLink(ctx, principal, req.ID)
	if err != nil {
		return nil, err
	}
	if link.Terminal() {
		return nil, fmt.Errorf("%w: %s links cannot be updated", ErrInvalidStatus, link.Status)
	}

	if req.Title != nil {
		link.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		link.Description = normalizeOptionalString(*req.Description)
	}
	if req.Amount != nil {
		if link.AmountType == types.AmountTypeClose && *req.Amount < s.minAmount() {
			return nil, fmt.Errorf("%w: amount must be at least %d COP", ErrInvalidRequest, s.minAmount())
		}
		link.Amount = *req.Amount
	}
	if req.LogoURL != nil {
		link.LogoURL = normalizeOptionalString(*req.LogoURL)
	}
	if req.CallbackURL != nil {
		link.CallbackURL = normalizeOptionalString(*req.CallbackURL)
	}
	if req.PaymentMethods != nil {
		link.PaymentMethods = *req.PaymentMethods
	}
	if req.ExpirationDate != nil {
		trimmed := strings.TrimSpace(*req.ExpirationDate)
		if trimmed == "" {
			link.ExpirationDate = nil
		} else {
			parsed, parseErr := time.Parse(time.RFC3339, trimmed)
			if parseErr != nil {
				return nil, fmt.Errorf("%w: expirationDate must be RFC3339", ErrInvalidRequest)
			}
			link.ExpirationDate = &parsed
		}
	}

	link.UpdatedAt = time.Now().UTC()
	if err := s.linkRepo.Update(ctx, link); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	return link, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, principal *auth.Principal, req *types.GetLinkRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	link, err := s.findOwnedLink(ctx, principal, req.ID)
	if err != nil {
		return err
	}
	if link.Status == types.LinkStatusPaid {
		return fmt.Errorf("%w: paid links cannot be deleted", ErrInvalidStatus)
	}

	return s.linkRepo.Delete(ctx, link.ID)
}

// findOwnedLink hides other users' links from non-admins; a foreign id reads
// the same as a missing one.
func (s *LinkService) findOwnedLink(ctx context.Context, principal *auth.Principal, id string) (*entity.PaymentLink, error) {
	if principal == nil {
		return nil, ErrInvalidRequest
	}

	link, err := s.linkRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if !principal.IsAdmin() && link.UserID != principal.UserID {
		return nil, ErrLinkNotFound
	}

	return link, nil
}

func (s *LinkService) minAmount() int64 {
	if s.linksCfg.MinAmountCOP > 0 {
		return s.linksCfg.MinAmountCOP
	}
	return 1000
}

func (s *LinkService) batchSize() int32 {
	if s.linksCfg.JobBatchSize > 0 {
		return s.linksCfg.JobBatchSize
	}
	return defaultBatchSize
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeOptionalFloat64(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
