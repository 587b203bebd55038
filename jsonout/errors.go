package jsonout

import (
	"context"
	"encoding"
	"errors"
	"fmt"
)

// Encoder errors
var (
	ErrUnencodable     = errors.New("value is not encodable")
	ErrContextMismatch = errors.New("aggregate context mismatch")
	ErrOptionConflict  = errors.New("option key already bound to another variable")
	ErrInvalidOption   = errors.New("invalid option value")
	ErrInvalidEscape   = errors.New("invalid escape sequence")
	ErrMissingValue    = errors.New("member wrote no value")
)

// ============================================================
// Error Types
// ============================================================

// UnencodableValueError reports a value that no encoding strategy accepts.
// It is the only error a Fallback can recover from.
type UnencodableValueError struct {
	Value any    // The offending value
	Op    string // The operation that rejected it
}

func (e *UnencodableValueError) Error() string {
	return fmt.Sprintf("jsonout: %s: cannot encode %T (%v)", e.Op, e.Value, e.Value)
}

func (e *UnencodableValueError) Is(target error) bool {
	return target == ErrUnencodable
}

// ContextMismatchError reports a member primitive used outside of, or in the
// wrong kind of, aggregate, or a value written where no member is open. It is
// never recovered.
type ContextMismatchError struct {
	Op   string
	Want aggregateKind
	Got  aggregateKind // kindNone when no aggregate is open
}

func (e *ContextMismatchError) Error() string {
	switch {
	case e.Want != e.Got:
		return fmt.Sprintf("jsonout: %s: want %s context, in %s", e.Op, e.Want, e.Got)
	case e.Got == kindNone:
		return fmt.Sprintf("jsonout: %s: top-level value already written", e.Op)
	default:
		return fmt.Sprintf("jsonout: %s: no %s member open for a value", e.Op, e.Got)
	}
}

func (e *ContextMismatchError) Is(target error) bool {
	return target == ErrContextMismatch
}

// ============================================================
// Substitution
// ============================================================

// Fallback decides whether an unencodable value is replaced by its textual
// representation. Returning false lets the error propagate.
type Fallback func(err *UnencodableValueError) bool

// SubstituteText is a Fallback that substitutes every unencodable value.
func SubstituteText(*UnencodableValueError) bool { return true }

type fallbackKey struct{}

// WithFallback installs fn for every encode call made with the returned
// context.
func WithFallback(ctx context.Context, fn Fallback) context.Context {
	return context.WithValue(ctx, fallbackKey{}, fn)
}

func fallbackFrom(ctx context.Context) Fallback {
	fn, _ := ctx.Value(fallbackKey{}).(Fallback)
	return fn
}

// textOf returns the plain textual representation used for substitution.
func textOf(v any) string {
	switch tv := v.(type) {
	case encoding.TextMarshaler:
		if b, err := tv.MarshalText(); err == nil {
			return string(b)
		}
	case fmt.Stringer:
		return tv.String()
	}
	return fmt.Sprint(v)
}
