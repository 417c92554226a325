package harness

import (
	"context"
	"strings"
)

// Preambles open the synthesized system text for each enrichment source.
const (
	filePreamble   = "Please use the data retrieved from the files below to form your answer.\n\n"
	sitePreamble   = "Please use the data retrieved from the sites below to form your answer.\n\n"
	searchPreamble = "Please use the web search results below to form your answer.\n\n"
)

// excerptFunc fetches one source as a bounded excerpt or inline error text.
type excerptFunc func(ctx context.Context, source string) string

// renderSources builds "<label> <source>:\n<excerpt>\n\n" blocks in order.
// Sources are fetched one at a time.
func renderSources(ctx context.Context, label string, sources []string, fetch excerptFunc) string {
	var b strings.Builder
	for _, src := range sources {
		b.WriteString(label)
		b.WriteByte(' ')
		b.WriteString(src)
		b.WriteString(":\n")
		b.WriteString(fetch(ctx, src))
		b.WriteString("\n\n")
	}
	return b.String()
}

// composeSystem joins preamble, the caller prompt, a heading and the body.
func composeSystem(preamble, prompt, heading, body string) string {
	var b strings.Builder
	b.Grow(len(preamble) + len(prompt) + len(heading) + len(body) + 2)
	b.WriteString(preamble)
	b.WriteString(prompt)
	b.WriteString("\n\n")
	b.WriteString(heading)
	b.WriteString(body)
	return b.String()
}
