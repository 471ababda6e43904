// Package syncerr defines the error kinds surfaced by the sync engine.
//
// Every failure that crosses a component boundary is an *Error carrying one of
// the kind sentinels below, so callers can classify it with errors.Is:
//
//	if errors.Is(err, syncerr.ErrConfig) { ... }
package syncerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates an invalid or incomplete site configuration.
	// It aborts the whole invocation before any network call.
	ErrConfig = errors.New("configuration error")

	// ErrResolution indicates a bucket name could not be resolved from stack outputs.
	ErrResolution = errors.New("resolution error")

	// ErrTransfer indicates an upload, delete, list or copy failure.
	ErrTransfer = errors.New("transfer error")

	// ErrTagging indicates a bucket tag fetch or put failure.
	ErrTagging = errors.New("tagging error")

	// ErrNotFound marks a lookup that found nothing (stack output key, stack).
	ErrNotFound = errors.New("not found")
)

// Error is a kind-tagged error with context about the site and object involved.
type Error struct {
	// Kind is one of the sentinels in this package.
	Kind error

	// Op is the operation that failed (e.g. "upload", "copy", "resolve").
	Op string

	// Site identifies the site (its local directory) when known.
	Site string

	Bucket string
	Key    string

	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error() + ": " + e.Op
	switch {
	case e.Bucket != "" && e.Key != "":
		msg += fmt.Sprintf(" s3://%s/%s", e.Bucket, e.Key)
	case e.Bucket != "":
		msg += " bucket " + e.Bucket
	}
	if e.Site != "" {
		msg += fmt.Sprintf(" (site %s)", e.Site)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WithSite sets the site context and returns the error for chaining.
func (e *Error) WithSite(site string) *Error {
	e.Site = site
	return e
}

// WithKey sets the object key context and returns the error for chaining.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// Config returns a configuration error.
func Config(format string, args ...any) *Error {
	return &Error{Kind: ErrConfig, Op: "validate", Err: fmt.Errorf(format, args...)}
}

// Resolution returns a resolution error for the given operation.
func Resolution(op string, err error) *Error {
	return &Error{Kind: ErrResolution, Op: op, Err: err}
}

// Transfer returns a transfer error for an object-store operation.
func Transfer(op, bucket string, err error) *Error {
	return &Error{Kind: ErrTransfer, Op: op, Bucket: bucket, Err: err}
}

// Tagging returns a tagging error for a bucket.
func Tagging(op, bucket string, err error) *Error {
	return &Error{Kind: ErrTagging, Op: op, Bucket: bucket, Err: err}
}
