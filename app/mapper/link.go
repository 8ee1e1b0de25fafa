package mapper

import (
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/entity"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

func LinkToResponse(item *entity.PaymentLink) *types.PaymentLink {
	if item == nil {
		return nil
	}

	return &types.PaymentLink{
		ID:             item.ID,
		Provider:       item.Provider,
		ProviderLinkID: derefString(item.ProviderLinkID),
		ProviderURL:    derefString(item.ProviderURL),
		Title:          item.Title,
		Description:    derefString(item.Description),
		Amount:         item.Amount,
		AmountUsd:      derefFloat64(item.AmountUsd),
		AmountType:     item.AmountType,
		Currency:       item.Currency,
		LogoURL:        derefString(item.LogoURL),
		PaymentMethods: clonePaymentMethods(item.PaymentMethods),
		CallbackURL:    derefString(item.CallbackURL),
		Status:         item.Status,
		ExpirationDate: formatTimePtr(item.ExpirationDate),
		TransactionID:  derefString(item.TransactionID),
		PaymentMethod:  derefString(item.PaymentMethod),
		PayerEmail:     derefString(item.PayerEmail),
		PaidAt:         formatTimePtr(item.PaidAt),
		UserID:         item.UserID,
		CreatedAt:      item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func LinksToResponse(items []*entity.PaymentLink) []*types.PaymentLink {
	result := make([]*types.PaymentLink, 0, len(items))
	for _, item := range items {
		result = append(result, LinkToResponse(item))
	}
	return result
}

func LinkOwnerToResponse(user *entity.User) *types.LinkOwner {
	if user == nil {
		return nil
	}
	return &types.LinkOwner{
		Name:  user.Name,
		Email: user.Email,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat64(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatTimePtr(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func clonePaymentMethods(methods []string) []string {
	if len(methods) == 0 {
		return []string{}
	}
	cloned := make([]string, len(methods))
	copy(cloned, methods)
	return cloned
}
