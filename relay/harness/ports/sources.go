package harnessports

import "context"

// ContentFetcher turns a URL or a local file into a bounded plain-text excerpt.
// Failures come back as human-readable text in place of the excerpt.
type ContentFetcher interface {
	FetchURL(ctx context.Context, url string, maxLines int) string
	FetchFile(path string, maxLines int) string
}

// WebSearcher runs a web search and renders the results as one text block.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}
