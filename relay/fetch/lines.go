package fetch

import "strings"

// DefaultMaxLines bounds an excerpt when the caller passes maxLines <= 0.
const DefaultMaxLines = 20

// TrimLines splits text into lines, trims each, drops blank ones and keeps
// the first maxLines in their original order.
func TrimLines(text string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	kept := make([]string, 0, maxLines)
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
		if len(kept) == maxLines {
			break
		}
	}
	return strings.Join(kept, "\n")
}
