// Package fetch turns URLs and local files into short plain-text excerpts.
// Failures are reported inline as text so a bad source never aborts a request.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/context-relay/relay/config"
	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
	"github.com/armon/go-radix"
	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"
)

const maxBodyBytes = 8 << 20

// Fetcher fetches and trims page and file content.
type Fetcher struct {
	client        *http.Client
	timeout       time.Duration
	userAgent     string
	defaultAnchor string
	anchors       *radix.Tree
	deny          *ignore.GitIgnore

	cache    ports.Cache
	cacheTTL int
	limiter  ports.RateLimiter
	logger   zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithCache memoizes successful page excerpts for ttlSeconds.
func WithCache(c ports.Cache, ttlSeconds int) Option {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttlSeconds
	}
}

// WithRateLimiter throttles page fetches per host.
func WithRateLimiter(l ports.RateLimiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New builds a Fetcher from the fetcher config section.
func New(cfg config.FetcherConfig, opts ...Option) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	anchors := radix.New()
	for _, rule := range cfg.ContentAnchors {
		if rule.Prefix != "" {
			anchors.Insert(rule.Prefix, rule.ID)
		}
	}

	f := &Fetcher{
		client:        &http.Client{},
		timeout:       timeout,
		userAgent:     cfg.UserAgent,
		defaultAnchor: cfg.ContentAnchor,
		anchors:       anchors,
		logger:        zerolog.Nop(),
	}
	if len(cfg.DenyPatterns) > 0 {
		f.deny = ignore.CompileIgnoreLines(cfg.DenyPatterns...)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AnchorFor returns the primary-content element id for rawURL: the longest
// configured prefix match, else the default anchor.
func (f *Fetcher) AnchorFor(rawURL string) string {
	if _, v, ok := f.anchors.LongestPrefix(rawURL); ok {
		if id, _ := v.(string); id != "" {
			return id
		}
	}
	return f.defaultAnchor
}

// FetchURL downloads rawURL and returns the first maxLines non-empty lines of
// its visible text, or "Error fetching content: <detail>".
func (f *Fetcher) FetchURL(ctx context.Context, rawURL string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	key := fmt.Sprintf("url:%d:%s", maxLines, rawURL)
	if f.cache != nil {
		if cached, ok := f.cache.Get(ctx, key); ok {
			f.logger.Debug().Str("url", rawURL).Msg("fetch cache hit")
			return string(cached)
		}
	}

	text, err := f.fetchURL(ctx, rawURL)
	if err != nil {
		f.logger.Debug().Err(err).Str("url", rawURL).Msg("fetch failed")
		return "Error fetching content: " + err.Error()
	}

	excerpt := TrimLines(text, maxLines)
	if f.cache != nil {
		if err := f.cache.Set(ctx, key, []byte(excerpt), f.cacheTTL); err != nil {
			f.logger.Warn().Err(err).Str("url", rawURL).Msg("fetch cache write failed")
		}
	}
	return excerpt
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	if f.limiter != nil {
		release, err := f.limiter.Acquire(ctx, "host:"+u.Host)
		if err != nil {
			return "", err
		}
		defer release()
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s for url: %s", resp.Status, rawURL)
	}

	text, err := ExtractText(io.LimitReader(resp.Body, maxBodyBytes), f.AnchorFor(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	return strings.TrimSpace(text), nil
}

var _ ports.ContentFetcher = (*Fetcher)(nil)
