package harness

import (
	"context"
	"errors"
	"regexp"
	"strings"

	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
	"github.com/ZanzyTHEbar/context-relay/relay/search"
)

var (
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	urlGapPattern = regexp.MustCompile(`[ \t]*https?://\S+[ \t]*`) // a URL plus the blanks around it
)

// ExtractURLs returns every http(s) URL in text, in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// StripURLs removes URLs from text, collapses the gaps they leave and trims.
// Whitespace elsewhere in text is kept as typed.
func StripURLs(text string) string {
	text = urlGapPattern.ReplaceAllStringFunc(text, func(m string) string {
		// Words on both sides stay one space apart.
		if isBlank(m[0]) && isBlank(m[len(m)-1]) {
			return " "
		}
		return ""
	})
	return strings.TrimSpace(text)
}

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

// Enrichment is what a strategy contributes to one request.
type Enrichment struct {
	System      string // synthesized system text, never persisted
	UserMessage string // user text to forward and persist
}

// Enricher is one enrichment strategy. Strategies are tried in order and the
// first that applies is the only one used.
type Enricher interface {
	Name() string
	Applies(req *Request) bool
	Enrich(ctx context.Context, req *Request) (Enrichment, error)
}

// DefaultEnrichers returns the file, url, search and prompt strategies in
// precedence order.
func DefaultEnrichers(fetcher ports.ContentFetcher, searcher ports.WebSearcher, maxLines int) []Enricher {
	return []Enricher{
		&fileEnricher{fetcher: fetcher, maxLines: maxLines},
		&urlEnricher{fetcher: fetcher, maxLines: maxLines},
		&searchEnricher{searcher: searcher},
		promptEnricher{},
	}
}

// SelectEnricher returns the first applicable strategy, or nil when the
// request gets no system content.
func SelectEnricher(enrichers []Enricher, req *Request) Enricher {
	for _, e := range enrichers {
		if e.Applies(req) {
			return e
		}
	}
	return nil
}

type fileEnricher struct {
	fetcher  ports.ContentFetcher
	maxLines int
}

func (e *fileEnricher) Name() string { return "file" }

func (e *fileEnricher) Applies(req *Request) bool { return len(req.FilePaths) > 0 }

func (e *fileEnricher) Enrich(ctx context.Context, req *Request) (Enrichment, error) {
	body := renderSources(ctx, "Content of file", req.FilePaths, func(_ context.Context, path string) string {
		return e.fetcher.FetchFile(path, e.maxLines)
	})
	return Enrichment{
		System:      composeSystem(filePreamble, req.Prompt, "Information from files:\n", body),
		UserMessage: req.UserMessage,
	}, nil
}

type urlEnricher struct {
	fetcher  ports.ContentFetcher
	maxLines int
}

func (e *urlEnricher) Name() string { return "url" }

func (e *urlEnricher) Applies(req *Request) bool { return urlPattern.MatchString(req.UserMessage) }

func (e *urlEnricher) Enrich(ctx context.Context, req *Request) (Enrichment, error) {
	body := renderSources(ctx, "Content of site", ExtractURLs(req.UserMessage), func(ctx context.Context, u string) string {
		return e.fetcher.FetchURL(ctx, u, e.maxLines)
	})
	return Enrichment{
		System:      composeSystem(sitePreamble, req.Prompt, "Information from sites:\n", body),
		UserMessage: StripURLs(req.UserMessage),
	}, nil
}

type searchEnricher struct {
	searcher ports.WebSearcher
}

func (e *searchEnricher) Name() string { return "search" }

func (e *searchEnricher) Applies(req *Request) bool { return req.EnableWebSearch }

func (e *searchEnricher) Enrich(ctx context.Context, req *Request) (Enrichment, error) {
	if e.searcher == nil {
		return Enrichment{}, fail(KindConfig, "web search", search.ErrMissingCredentials)
	}
	results, err := e.searcher.Search(ctx, req.UserMessage)
	if err != nil {
		if errors.Is(err, search.ErrMissingCredentials) {
			return Enrichment{}, fail(KindConfig, "web search", err)
		}
		return Enrichment{}, fail(KindSearch, "web search", err)
	}
	heading := "Web search results for query '" + req.UserMessage + "':\n"
	return Enrichment{
		System:      composeSystem(searchPreamble, req.Prompt, heading, results),
		UserMessage: req.UserMessage,
	}, nil
}

type promptEnricher struct{}

func (promptEnricher) Name() string { return "prompt" }

func (promptEnricher) Applies(req *Request) bool { return req.Prompt != "" }

func (promptEnricher) Enrich(_ context.Context, req *Request) (Enrichment, error) {
	return Enrichment{System: req.Prompt, UserMessage: req.UserMessage}, nil
}
