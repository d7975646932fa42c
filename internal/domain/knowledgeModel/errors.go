package knowledgeModel

import (
	"errors"
	"fmt"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrUnknownProvider    = errors.New("embedding provider not available")
	ErrUnsafeGitURL       = errors.New("unsafe git url")
	ErrPathNotFound       = errors.New("path not found")
	ErrUnsupportedSource  = errors.New("unsupported source")
	ErrEmptyContent       = errors.New("no extractable content")
	ErrMalformedInput     = errors.New("malformed embedding input")
)

// SourceFetchError names the source that could not be read. It is recorded
// per source and never aborts the other sources of the same call.
type SourceFetchError struct {
	Source string
	Kind   SourceKind
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch %s source %q: %v", e.Kind, e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// ConfigurationError is fatal for the whole call.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func NewConfigError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

type ProviderAuthError struct {
	Provider string
	Err      error
}

func (e *ProviderAuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
}

func (e *ProviderAuthError) Unwrap() error { return e.Err }

type ProviderRateLimitError struct {
	Provider string
	Err      error
}

func (e *ProviderRateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited: %v", e.Provider, e.Err)
}

func (e *ProviderRateLimitError) Unwrap() error { return e.Err }

// QueryError is reported on the read path as an empty result plus a message.
type QueryError struct {
	Collection string
	Reason     string
	Err        error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %q: %s: %v", e.Collection, e.Reason, e.Err)
	}
	return fmt.Sprintf("query %q: %s", e.Collection, e.Reason)
}

func (e *QueryError) Unwrap() error { return e.Err }

func IsConfigError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsAuthError(err error) bool {
	var ae *ProviderAuthError
	return errors.As(err, &ae)
}

func IsRateLimitError(err error) bool {
	var re *ProviderRateLimitError
	return errors.As(err, &re)
}
