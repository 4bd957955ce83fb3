// Package errors provides the error builder used across the service. Errors are
// built with NewError or WithError, decorated with a user facing hint and
// reportable details, and finally marked with one of the sentinels below so the
// HTTP layer can map them to a status code.
package errors

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrValidation       = errors.New("validation error")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrHTTPClient       = errors.New("http client error")
	ErrDatabase         = errors.New("database error")
	ErrSystem           = errors.New("system error")
	ErrInternal         = errors.New("internal error")
)

// withDetails attaches key/value pairs that are safe to return to API callers
type withDetails struct {
	cause   error
	details map[string]any
}

func (w *withDetails) Error() string { return w.cause.Error() }
func (w *withDetails) Unwrap() error { return w.cause }

// ErrorBuilder accumulates decorations on an error before it is marked
type ErrorBuilder struct {
	err error
}

// NewError starts a builder from a new error carrying a stack trace
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepth(1, msg)}
}

// NewErrorf is NewError with formatting
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepthf(1, format, args...)}
}

// WithError starts a builder wrapping an existing error
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.NewWithDepth(1, "unknown error")
	}
	return &ErrorBuilder{err: err}
}

// WithMessage prefixes the underlying error message
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint adds a message meant for the API caller
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf is WithHint with formatting
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches details that are returned in the error response
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	if len(details) == 0 {
		return b
	}
	b.err = &withDetails{cause: b.err, details: details}
	return b
}

// Mark tags the error with a sentinel and returns it
func (b *ErrorBuilder) Mark(reference error) error {
	return errors.Mark(b.err, reference)
}

// Err returns the error without marking it
func (b *ErrorBuilder) Err() error {
	return b.err
}

// GetHint returns the hints attached anywhere in the chain
func GetHint(err error) string {
	return errors.FlattenHints(err)
}

// GetDetails merges the reportable details found in the chain, outermost wins
func GetDetails(err error) map[string]any {
	var out map[string]any
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		d, ok := e.(*withDetails)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(d.details))
		}
		for k, v := range d.details {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}
