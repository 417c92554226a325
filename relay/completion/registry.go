package completion

import (
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/context-relay/relay/config"
	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
)

// Registry hands out one Client per provider id, keyed from a KeyRing.
type Registry struct {
	cfg  config.CompletionConfig
	keys *config.KeyRing
	opts []Option

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry creates a registry; opts are applied to every client it builds.
func NewRegistry(cfg config.CompletionConfig, keys *config.KeyRing, opts ...Option) *Registry {
	return &Registry{
		cfg:     cfg,
		keys:    keys,
		opts:    opts,
		clients: make(map[string]*Client),
	}
}

// Resolve returns the client for providerID, the configured default provider
// when empty. A provider without a key yields config.ErrMissingAPIKey.
func (r *Registry) Resolve(providerID string) (ports.Provider, error) {
	id := strings.TrimSpace(providerID)
	if id == "" {
		id = r.cfg.DefaultProvider
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[id]; ok {
		return c, nil
	}

	key, err := r.keys.APIKey(id)
	if err != nil {
		return nil, err
	}

	c := NewClient(id, key, r.cfg, r.opts...)
	r.clients[id] = c
	return c, nil
}

var _ ports.ProviderResolver = (*Registry)(nil)
