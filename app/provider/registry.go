package provider

import (
	"errors"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

var (
	ErrProviderNotSupported  = errors.New("provider is not supported")
	ErrOperationNotSupported = errors.New("operation is not supported by this provider")
)

type Registry struct {
	providers map[types.Provider]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	items := make(map[types.Provider]Provider, len(providers))
	for _, p := range providers {
		items[p.Code()] = p
	}
	return &Registry{providers: items}
}

func (r *Registry) Get(code types.Provider) (Provider, error) {
	provider, ok := r.providers[code]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return provider, nil
}
