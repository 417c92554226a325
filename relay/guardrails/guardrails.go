// Package guardrails validates third-party JSON responses against schemas and
// masks credentials before text reaches logs.
package guardrails

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidJSON is returned for bodies that are not JSON at all.
var ErrInvalidJSON = errors.New("data is not valid JSON")

// JSONValidator checks documents against one compiled schema.
type JSONValidator struct {
	schema *gojsonschema.Schema
}

// NewJSONValidator compiles schema once for repeated use.
func NewJSONValidator(schema []byte) (*JSONValidator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &JSONValidator{schema: s}, nil
}

// MustJSONValidator is NewJSONValidator for package-level schemas.
func MustJSONValidator(schema string) *JSONValidator {
	v, err := NewJSONValidator([]byte(schema))
	if err != nil {
		panic(err)
	}
	return v
}

// Validate reports every schema violation in data as one error.
func (v *JSONValidator) Validate(data []byte) error {
	if !json.Valid(data) {
		return ErrInvalidJSON
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(msgs, "; "))
	}
	return nil
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._\-]+`),
	regexp.MustCompile(`(?i)((?:api[_-]?key|key|token|secret|password)=)[^&\s"]+`),
	regexp.MustCompile(`(?i)("(?:api[_-]?key|token|secret|password)"\s*:\s*")[^"]*`),
}

// Redact masks bearer tokens and key-like parameters in s.
func Redact(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllString(s, "${1}[REDACTED]")
	}
	return s
}
