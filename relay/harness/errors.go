package harness

import (
	"errors"
	"fmt"
)

// ErrorKind tags why an Assemble call failed.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindConfig     ErrorKind = "config"
	KindSearch     ErrorKind = "search"
	KindCompletion ErrorKind = "completion"
	KindStore      ErrorKind = "store"
	KindRateLimit  ErrorKind = "rate_limit"
	KindInternal   ErrorKind = "internal"
)

// AssembleError is the tagged failure of one pipeline stage.
type AssembleError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AssembleError) Unwrap() error {
	return e.Err
}

func fail(kind ErrorKind, op string, err error) error {
	return &AssembleError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind carried by err, KindInternal for untagged errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ae *AssembleError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
