package exchange

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures.
type ErrorKind int

const (
	// KindUnknown is reported for errors that carry no kind. Callers treat it as fatal.
	KindUnknown ErrorKind = iota
	// KindTransient covers network failures, timeouts and rate limiting.
	// The operation may succeed if retried on a later trade cycle.
	KindTransient
	// KindFatal covers rejected orders, malformed responses and protocol errors.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is returned by gateway implementations.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s exchange error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s exchange error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as a transient failure of op.
func NewTransientError(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// NewFatalError wraps err as a fatal failure of op.
func NewFatalError(op string, err error) error {
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var exErr *Error
	if errors.As(err, &exErr) {
		return exErr.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is a transient gateway failure.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// IsFatal reports whether err must stop trading. Errors without a kind count as fatal.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) != KindTransient
}
