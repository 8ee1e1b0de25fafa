package types

// LinkStatus is the lifecycle state of a payment link.
type LinkStatus string

const (
	LinkStatusActive     LinkStatus = "ACTIVE"
	LinkStatusProcessing LinkStatus = "PROCESSING"
	LinkStatusPaid       LinkStatus = "PAID"
	LinkStatusExpired    LinkStatus = "EXPIRED"
)

// Provider identifies the payment gateway backing a link.
type Provider string

const (
	ProviderBold  Provider = "BOLD"
	ProviderWompi Provider = "WOMPI"
)

// AmountType controls whether the payer may enter the amount (OPEN) or the
// link fixes it (CLOSE).
type AmountType string

const (
	AmountTypeOpen  AmountType = "OPEN"
	AmountTypeClose AmountType = "CLOSE"
)

const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperadmin = "SUPERADMIN"
)

func IsValidLinkStatus(status LinkStatus) bool {
	switch status {
	case LinkStatusActive, LinkStatusProcessing, LinkStatusPaid, LinkStatusExpired:
		return true
	default:
		return false
	}
}

func IsValidProvider(provider Provider) bool {
	return provider == ProviderBold || provider == ProviderWompi
}

// DefaultPaymentMethods is applied when a link is created without an
// explicit method selection.
var DefaultPaymentMethods = []string{"CARD", "PSE", "NEQUI", "BANCOLOMBIA_TRANSFER"}
