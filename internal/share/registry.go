package share

import (
	"fmt"
	"sync"

	"serwer-udostepnien/internal/models"
)

// Registry resolves providers by share type or provider id. Providers are
// registered once at process start; resolution order for a type follows
// registration order, so the primary provider should be registered first.
type Registry struct {
	mu    sync.RWMutex
	order []Provider
	byID  map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.Identifier()]; ok {
		return fmt.Errorf("provider %q already registered", p.Identifier())
	}
	r.byID[p.Identifier()] = p
	r.order = append(r.order, p)
	return nil
}

func (r *Registry) ProviderForType(t models.ShareType) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.order {
		if p.SupportsType(t) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("share type %s: %w", t, ErrNoSuchProvider)
}

func (r *Registry) Provider(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("provider id %q: %w", id, ErrNoSuchProvider)
}

// All returns every provider in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, len(r.order))
	copy(out, r.order)
	return out
}
