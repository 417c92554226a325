package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimLines(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxLines int
		want     string
	}{
		{"drops blanks and trims", "  a  \n\n\tb\n   \nc", 20, "a\nb\nc"},
		{"keeps first n in order", "1\n2\n3\n4\n5", 3, "1\n2\n3"},
		{"crlf and cr", "a\r\nb\rc", 20, "a\nb\nc"},
		{"empty", "", 5, ""},
		{"only whitespace", " \n\t\n", 5, ""},
		{"non-positive uses default", strings.Repeat("x\n", 30), 0, strings.TrimSuffix(strings.Repeat("x\n", DefaultMaxLines), "\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimLines(tt.text, tt.maxLines))
		})
	}
}

func TestTrimLinesNeverExceedsBound(t *testing.T) {
	text := strings.Repeat("line\n\n", 100)
	for _, n := range []int{1, 5, 20, 99} {
		out := TrimLines(text, n)
		assert.Len(t, strings.Split(out, "\n"), n)
	}
}
