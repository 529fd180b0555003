// Package ragerr defines the sentinel error taxonomy shared by the
// indexing pipeline and the query path, so callers can classify a
// failure without string-matching messages.
package ragerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the categories the orchestrator
// reports through Status.Phase and Status.Message.
type Kind string

const (
	// KindCancelled is a cooperative abort requested by the caller.
	KindCancelled Kind = "cancelled"
	// KindScanner covers directory-walk failures.
	KindScanner Kind = "scanner_failure"
	// KindRead covers file-read failures during hashing or chunking.
	KindRead Kind = "read_failure"
	// KindPersistence covers disk save/load failures.
	KindPersistence Kind = "persistence_failure"
	// KindEmbeddingProvider covers failures returned by the embedding
	// provider. The orchestrator never retries; retry policy belongs
	// to the provider.
	KindEmbeddingProvider Kind = "embedding_provider_failure"
)

// Error wraps an underlying cause with a Kind so callers can branch on
// errors.As without parsing messages.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err under kind. Returns nil if err is nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Newf builds a Kind-classified error from a format string.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Cancelled reports whether err (or anything it wraps) is a cancellation.
func Cancelled(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindCancelled
	}
	return errors.Is(err, ErrCancelled)
}

// ErrCancelled is returned by long-running operations when their
// context is cancelled mid-transaction.
var ErrCancelled = errors.New("operation cancelled")

// KindOf extracts the Kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
