package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/context-relay/relay/completion"
	"github.com/ZanzyTHEbar/context-relay/relay/config"
	"github.com/ZanzyTHEbar/context-relay/relay/fetch"
	"github.com/ZanzyTHEbar/context-relay/relay/harness/adapters"
	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
	"github.com/ZanzyTHEbar/context-relay/relay/search"
	"github.com/rs/zerolog"
)

// ErrNoDatabase is returned when the libsql backend is selected without a connection.
var ErrNoDatabase = errors.New("libsql store backend requires a database connection")

// Factory creates and wires pipeline components from configuration.
type Factory struct {
	cfg    *config.Config
	keys   *config.KeyRing
	db     *sql.DB // Optional, for the libsql store
	logger zerolog.Logger
}

// NewFactory creates a new factory.
func NewFactory(cfg *config.Config, keys *config.KeyRing, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		keys:   keys,
		db:     db,
		logger: logger,
	}
}

// CreateAssembler creates a fully wired Assembler.
func (f *Factory) CreateAssembler() (*Assembler, error) {
	store, err := f.CreateStore()
	if err != nil {
		return nil, err
	}

	fetcher := f.CreateFetcher()
	searcher := search.New(f.cfg.Search, fetcher,
		search.WithLogger(f.logger.With().Str("component", "search").Logger()))
	registry := completion.NewRegistry(f.cfg.Completion, f.keys,
		completion.WithLogger(f.logger.With().Str("component", "completion").Logger()))

	return NewAssembler(
		registry,
		store,
		DefaultEnrichers(fetcher, searcher, f.cfg.Fetcher.MaxLines),
		NewPromptBuilder(),
		f.createRateLimiter(f.cfg.Harness.RateLimitCapacity),
		f.createTracer(),
		f.logger.With().Str("component", "assembler").Logger(),
		ports.Options{
			MaxNewTokens: f.cfg.Completion.MaxTokens,
			Temperature:  f.cfg.Completion.Temperature,
		},
	), nil
}

// CreateStore creates the conversation store selected by store.backend.
func (f *Factory) CreateStore() (ports.ConversationStore, error) {
	switch f.cfg.Store.Backend {
	case "json", "":
		return adapters.NewJSONFileStore(f.cfg.Store.Dir)
	case "libsql":
		if f.db == nil {
			return nil, ErrNoDatabase
		}
		return adapters.NewLibSQLConversationStore(f.db), nil
	case "none":
		return &noOpStore{}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", f.cfg.Store.Backend)
	}
}

// CreateFetcher creates the content fetcher with the shared cache and a
// per-host rate limiter.
func (f *Factory) CreateFetcher() *fetch.Fetcher {
	opts := []fetch.Option{
		fetch.WithLogger(f.logger.With().Str("component", "fetch").Logger()),
	}
	if f.cfg.Harness.CacheEnabled {
		opts = append(opts, fetch.WithCache(f.createCache(), f.cfg.Harness.CacheTTLSeconds))
	}
	if f.cfg.Harness.RateLimitEnabled {
		opts = append(opts, fetch.WithRateLimiter(f.createRateLimiter(f.cfg.Harness.FetchRateCapacity)))
	}
	return fetch.New(f.cfg.Fetcher, opts...)
}

func (f *Factory) createCache() ports.Cache {
	if !f.cfg.Harness.CacheEnabled {
		return &noOpCache{}
	}
	return adapters.NewLRUCache(f.cfg.Harness.CacheCapacity)
}

func (f *Factory) createRateLimiter(capacity int) ports.RateLimiter {
	if !f.cfg.Harness.RateLimitEnabled {
		return &noOpRateLimiter{}
	}
	return adapters.NewTokenBucket(capacity, f.cfg.Harness.RateLimitRefillRate)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Harness.EnableTracing {
		return &noOpTracer{}
	}
	switch f.cfg.Harness.Tracer {
	case "otel":
		return adapters.NewOTelTracer(nil)
	default:
		return adapters.NewZerologTracer(f.logger.With().Str("component", "trace").Logger())
	}
}

// noOpCache implements Cache with no-op behavior for a disabled cache.
type noOpCache struct{}

func (c *noOpCache) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (c *noOpCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return nil
}
func (c *noOpCache) Delete(ctx context.Context, key string) error { return nil }

// noOpRateLimiter implements RateLimiter with no-op behavior.
type noOpRateLimiter struct{}

func (r *noOpRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	return func() {}, nil
}

// noOpTracer implements Tracer with no-op behavior.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// noOpStore keeps nothing: every thread loads empty.
type noOpStore struct{}

func (s *noOpStore) Append(ctx context.Context, threadID string, turns ...ports.Turn) error {
	return nil
}

func (s *noOpStore) Load(ctx context.Context, threadID string) ([]ports.Turn, error) {
	return []ports.Turn{}, nil
}

func (s *noOpStore) Clear(ctx context.Context, threadID string) error { return nil }

func (s *noOpStore) ClearAll(ctx context.Context) error { return nil }

var (
	_ ports.Cache             = (*noOpCache)(nil)
	_ ports.RateLimiter       = (*noOpRateLimiter)(nil)
	_ ports.Tracer            = (*noOpTracer)(nil)
	_ ports.ConversationStore = (*noOpStore)(nil)
)
