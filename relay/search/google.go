// Package search queries the Google Custom Search JSON API and renders the
// top results, with a short excerpt of each result page, as one text block.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/context-relay/relay/config"
	"github.com/ZanzyTHEbar/context-relay/relay/guardrails"
	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
	"github.com/rs/zerolog"
)

// NoResults is returned in place of result text when the query matched nothing.
const NoResults = "No web search results."

// PageLines bounds the excerpt fetched for each result link.
const PageLines = 20

// ErrMissingCredentials means the API key or engine id is not configured.
var ErrMissingCredentials = errors.New("search api key or engine id (cx) is not configured")

// StatusError is a non-2xx answer from the search API.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "search request failed: " + e.Status
	}
	return fmt.Sprintf("search request failed: %s: %s", e.Status, e.Body)
}

var responseValidator = guardrails.MustJSONValidator(`{
  "type": "object",
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title":   {"type": "string"},
          "snippet": {"type": "string"},
          "link":    {"type": "string"}
        }
      }
    }
  }
}`)

type response struct {
	Items []struct {
		Title   *string `json:"title"`
		Snippet string  `json:"snippet"`
		Link    string  `json:"link"`
	} `json:"items"`
}

// Google is a Custom Search client.
type Google struct {
	endpoint   string
	apiKey     string
	cx         string
	numResults int
	timeout    time.Duration
	client     *http.Client
	fetcher    ports.ContentFetcher
	logger     zerolog.Logger
}

// Option configures a Google client.
type Option func(*Google)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Google) { g.client = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Google) { g.logger = l }
}

// New creates a client from the search config section. fetcher supplies the
// per-result page excerpts.
func New(cfg config.SearchConfig, fetcher ports.ContentFetcher, opts ...Option) *Google {
	g := &Google{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		cx:         cfg.CX,
		numResults: cfg.NumResults,
		timeout:    cfg.Timeout,
		client:     &http.Client{},
		fetcher:    fetcher,
		logger:     zerolog.Nop(),
	}
	if g.numResults <= 0 {
		g.numResults = 3
	}
	if g.timeout <= 0 {
		g.timeout = 15 * time.Second
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Search runs query and renders the results. Credential, transport, status
// and decoding failures are returned as errors.
func (g *Google) Search(ctx context.Context, query string) (string, error) {
	if g.apiKey == "" || g.cx == "" {
		return "", ErrMissingCredentials
	}

	body, err := g.get(ctx, query)
	if err != nil {
		return "", err
	}

	if err := responseValidator.Validate(body); err != nil {
		return "", fmt.Errorf("unexpected search response: %w", err)
	}
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	g.logger.Debug().Str("query", query).Int("items", len(resp.Items)).Msg("search completed")

	if len(resp.Items) == 0 {
		return NoResults, nil
	}

	var b strings.Builder
	for _, item := range resp.Items {
		title := "Untitled"
		if item.Title != nil {
			title = *item.Title
		}
		excerpt := g.fetcher.FetchURL(ctx, item.Link, PageLines)
		fmt.Fprintf(&b, "Title: %s\nSnippet: %s\nLink: %s\nPartial page content:\n%s\n\n",
			title, item.Snippet, item.Link, excerpt)
	}
	return b.String(), nil
}

func (g *Google) get(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(g.numResults))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %s", guardrails.Redact(err.Error()))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// The request URL carries the API key.
		return nil, fmt.Errorf("search request failed: %s", guardrails.Redact(err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: snippet}
	}
	return body, nil
}

var _ ports.WebSearcher = (*Google)(nil)
