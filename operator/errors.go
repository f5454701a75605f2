package operator

import (
	"errors"
	"fmt"
)

// Error kinds, per spec §7: configuration, schema, not-implemented,
// storage, evaluation. All are fatal; none are retried.

var (
	ErrConfiguration  = errors.New("operator: configuration error")
	ErrSchema         = errors.New("operator: schema error")
	ErrNotImplemented = errors.New("operator: not implemented")
)

// configErrorf wraps a configuration error with detail, per spec §7.
func configErrorf(format string, args ...any) error {
	return &kindError{kind: ErrConfiguration, detail: fmt.Sprintf(format, args...)}
}

func schemaErrorf(format string, args ...any) error {
	return &kindError{kind: ErrSchema, detail: fmt.Sprintf(format, args...)}
}

func notImplementedf(format string, args ...any) error {
	return &kindError{kind: ErrNotImplemented, detail: fmt.Sprintf(format, args...)}
}

type kindError struct {
	kind   error
	detail string
}

func (e *kindError) Error() string {
	return e.detail
}

func (e *kindError) Unwrap() error {
	return e.kind
}
