package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".log":  true,
}

// FetchFile returns the first maxLines non-empty lines of a local text or
// PDF file, or a readable error message in place of the excerpt.
func (f *Fetcher) FetchFile(path string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	// Checked before existence so a denied path never reveals whether it exists.
	if f.denied(path) {
		f.logger.Warn().Str("path", path).Msg("refused to read denied file")
		return fmt.Sprintf("Error: access to file %s is denied.", path)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Sprintf("Error: file %s not found.", path)
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case textExtensions[ext]:
		text, err := readText(path)
		if err != nil {
			return "Error reading text file: " + err.Error()
		}
		return TrimLines(text, maxLines)
	case ext == ".pdf":
		text, err := readPDF(path)
		if err != nil {
			return "Error reading PDF file: " + err.Error()
		}
		return TrimLines(text, maxLines)
	default:
		return fmt.Sprintf("File format %s is not supported. Only text and PDF files are supported.", ext)
	}
}

func (f *Fetcher) denied(path string) bool {
	if f.deny == nil {
		return false
	}
	slashed := filepath.ToSlash(path)
	return f.deny.MatchesPath(slashed) || f.deny.MatchesPath(filepath.Base(path))
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8", path)
	}
	return string(data), nil
}

// readPDF extracts text one visual row per line, top to bottom, page by page.
func readPDF(path string) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			for _, text := range row.Content {
				buf.WriteString(text.S)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}
