package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/context-relay/relay/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchURL(ctx context.Context, url string, maxLines int) string {
	args := m.Called(url, maxLines)
	return args.String(0)
}

func (m *mockFetcher) FetchFile(path string, maxLines int) string {
	args := m.Called(path, maxLines)
	return args.String(0)
}

func searchConfig(endpoint string) config.SearchConfig {
	return config.SearchConfig{
		Endpoint:   endpoint,
		APIKey:     "test-key",
		CX:         "test-cx",
		NumResults: 3,
		Timeout:    2 * time.Second,
	}
}

func TestSearchRendersResults(t *testing.T) {
	var query atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"kind": "customsearch#search",
			"items": [
				{"title": "Go", "snippet": "The Go language", "link": "https://go.dev/"},
				{"snippet": "No title here", "link": "https://example.com/"}
			]
		}`)
	}))
	defer server.Close()

	fetcher := new(mockFetcher)
	fetcher.On("FetchURL", "https://go.dev/", PageLines).Return("Build simple software")
	fetcher.On("FetchURL", "https://example.com/", PageLines).Return("Error fetching content: boom")

	g := New(searchConfig(server.URL), fetcher)
	got, err := g.Search(context.Background(), "golang")
	require.NoError(t, err)

	want := "Title: Go\nSnippet: The Go language\nLink: https://go.dev/\nPartial page content:\nBuild simple software\n\n" +
		"Title: Untitled\nSnippet: No title here\nLink: https://example.com/\nPartial page content:\nError fetching content: boom\n\n"
	assert.Equal(t, want, got)
	fetcher.AssertExpectations(t)

	params := query.Load().(url.Values)
	assert.Equal(t, "test-key", params.Get("key"))
	assert.Equal(t, "test-cx", params.Get("cx"))
	assert.Equal(t, "golang", params.Get("q"))
	assert.Equal(t, "3", params.Get("num"))
}

func TestSearchNoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kind": "customsearch#search", "searchInformation": {"totalResults": "0"}}`)
	}))
	defer server.Close()

	fetcher := new(mockFetcher)
	g := New(searchConfig(server.URL), fetcher)

	got, err := g.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Equal(t, NoResults, got)
	fetcher.AssertNotCalled(t, "FetchURL", mock.Anything, mock.Anything)
}

func TestSearchMissingCredentials(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	for _, cfg := range []config.SearchConfig{
		{Endpoint: server.URL, CX: "cx"},
		{Endpoint: server.URL, APIKey: "key"},
	} {
		g := New(cfg, new(mockFetcher))
		_, err := g.Search(context.Background(), "q")
		assert.ErrorIs(t, err, ErrMissingCredentials)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"code": 403, "message": "quota exceeded"}}`)
	}))
	defer server.Close()

	g := New(searchConfig(server.URL), new(mockFetcher))
	_, err := g.Search(context.Background(), "q")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "quota exceeded")
}

func TestSearchRejectsMalformedBody(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"items": "should be a list"}`,
		`{"items": [{"title": 42}]}`,
	}
	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))

		g := New(searchConfig(server.URL), new(mockFetcher))
		_, err := g.Search(context.Background(), "q")
		assert.Error(t, err, body)
		server.Close()
	}
}

func TestSearchTransportErrorIsRedacted(t *testing.T) {
	g := New(searchConfig("http://127.0.0.1:1/customsearch/v1"), new(mockFetcher))

	_, err := g.Search(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "search request failed: "), err.Error())
	assert.NotContains(t, err.Error(), "test-key")
}
