package mpt

import (
	"errors"
	"fmt"
)

// Kind tags the error taxonomy described by the trie specification: every
// fallible operation returns one of these, never a bare panic.
type Kind int

const (
	// EncodingError covers malformed RLP, unexpected node arity, hex-prefix
	// decoding of an empty byte string, or application serialization
	// failures.
	EncodingError Kind = iota
	// DatabaseError wraps an underlying Database failure.
	DatabaseError
	// StateNotFound is returned by Revert when the requested root hash is
	// absent from the store.
	StateNotFound
	// SubtreeNotFound means a Hash subtree reference resolved to nothing in
	// the store during a read, commit, or proof walk. It signals a store
	// integrity violation, not a simple miss.
	SubtreeNotFound
)

func (k Kind) String() string {
	switch k {
	case EncodingError:
		return "EncodingError"
	case DatabaseError:
		return "DatabaseError"
	case StateNotFound:
		return "StateNotFound"
	case SubtreeNotFound:
		return "SubtreeNotFound"
	default:
		return "UnknownError"
	}
}

// Error is the single error type returned by every fallible operation in
// this package. It carries a Kind so callers can branch on the taxonomy
// with errors.Is / errors.As without string-matching messages.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, SomeKindSentinel) work by comparing Kind when the
// target is itself an *Error with no message (used for kind-only checks).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func encodingErrorf(format string, args ...interface{}) *Error {
	return newError(EncodingError, fmt.Sprintf(format, args...), nil)
}

func databaseErrorf(cause error, format string, args ...interface{}) *Error {
	return newError(DatabaseError, fmt.Sprintf(format, args...), cause)
}

// KindOf reports the Kind of err when it is (or wraps) a *Error, and ok=false
// otherwise.
func KindOf(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
