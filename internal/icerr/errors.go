// Package icerr defines the single typed error used across ic-wasm's
// passes. Constructors and Is* predicates follow the convention used by
// Moby's errdefs package: one Kind-tagged error type, one constructor and one
// predicate per kind, so callers branch on behavior (Is*) rather than on
// fmt.Errorf string contents.
package icerr

import "fmt"

// Kind classifies why a pass failed.
type Kind int

const (
	// Parse marks malformed or unsupported input Wasm bytes.
	Parse Kind = iota
	// Configuration marks a bad caller-supplied option, e.g. an unknown
	// trace-only function name.
	Configuration
	// Safety marks a rewrite that would silently corrupt the module if
	// applied, e.g. clamping heap memory below an active data segment.
	Safety
	// Unsupported marks a module shape this tool deliberately does not
	// rewrite (see SPEC_FULL.md Non-goals).
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case Configuration:
		return "configuration"
	case Safety:
		return "safety"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the one error type every package in this module returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func wrap(k Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewParse builds a Parse-kind error.
func NewParse(format string, args ...any) *Error { return newf(Parse, format, args...) }

// WrapParse builds a Parse-kind error wrapping a lower-level cause.
func WrapParse(err error, format string, args ...any) *Error { return wrap(Parse, err, format, args...) }

// NewConfiguration builds a Configuration-kind error.
func NewConfiguration(format string, args ...any) *Error { return newf(Configuration, format, args...) }

// NewSafety builds a Safety-kind error.
func NewSafety(format string, args ...any) *Error { return newf(Safety, format, args...) }

// NewUnsupported builds an Unsupported-kind error.
func NewUnsupported(format string, args ...any) *Error { return newf(Unsupported, format, args...) }

// IsParse reports whether err is (or wraps) a Parse-kind Error.
func IsParse(err error) bool { return isKind(err, Parse) }

// IsConfiguration reports whether err is (or wraps) a Configuration-kind Error.
func IsConfiguration(err error) bool { return isKind(err, Configuration) }

// IsSafety reports whether err is (or wraps) a Safety-kind Error.
func IsSafety(err error) bool { return isKind(err, Safety) }

// IsUnsupported reports whether err is (or wraps) an Unsupported-kind Error.
func IsUnsupported(err error) bool { return isKind(err, Unsupported) }

func isKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == k
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
