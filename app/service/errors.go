package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrLinkNotFound        = errors.New("payment link not found")
	ErrLinkAlreadyExists   = errors.New("payment link already exists")
	ErrLinkNotPayable      = errors.New("payment link is not payable")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrWebhookRejected     = errors.New("webhook rejected")
)
