package completion

import "fmt"

// Kind classifies completion failures.
type Kind string

const (
	Transport  Kind = "transport"
	StatusCode Kind = "status_code"
	Decode     Kind = "decode"
)

// APIError is returned for every failed completion call.
type APIError struct {
	Kind     Kind
	Provider string
	Status   int // set for StatusCode
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case Transport:
		return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
	case StatusCode:
		return fmt.Sprintf("%s status error: %s (status %d)", e.Provider, e.Message, e.Status)
	case Decode:
		if e.Err != nil {
			return fmt.Sprintf("%s decode error: %s: %v", e.Provider, e.Message, e.Err)
		}
		return fmt.Sprintf("%s decode error: %s", e.Provider, e.Message)
	default:
		return e.Message
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}
