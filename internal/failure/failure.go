// Package failure defines the typed outcomes returned by the snapshot and
// stream layers. Failures are recoverable by design: transport errors are
// retried, schema mismatches are dropped, and reconnect exhaustion degrades
// the operator-visible stream status without killing the process.
package failure

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Kind classifies a failure for the retry/drop policy of the caller.
type Kind string

const (
	// TransportError is a network or non-success response; recoverable, retried.
	TransportError Kind = "transport_error"
	// SchemaMismatch is a malformed payload; the message or snapshot is discarded.
	SchemaMismatch Kind = "schema_mismatch"
	// ReconnectExhausted means the backoff ceiling was hit repeatedly; the stream
	// is reported as degraded but reconnect attempts continue.
	ReconnectExhausted Kind = "reconnect_exhausted"
)

// Failure wraps an underlying error with its recovery classification.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Transport wraps err as a TransportError with context.
func Transport(err error, msg string) error {
	return &Failure{Kind: TransportError, Err: errors.Wrap(err, msg)}
}

// Transportf wraps err as a TransportError with formatted context.
func Transportf(err error, format string, args ...any) error {
	return &Failure{Kind: TransportError, Err: errors.Wrapf(err, format, args...)}
}

// Schema wraps err as a SchemaMismatch with context.
func Schema(err error, msg string) error {
	return &Failure{Kind: SchemaMismatch, Err: errors.Wrap(err, msg)}
}

// Schemaf wraps err as a SchemaMismatch with formatted context.
func Schemaf(err error, format string, args ...any) error {
	return &Failure{Kind: SchemaMismatch, Err: errors.Wrapf(err, format, args...)}
}

// IsKind reports whether err carries a Failure of the given kind anywhere in
// its chain.
func IsKind(err error, kind Kind) bool {
	var f *Failure
	if stderrors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}
