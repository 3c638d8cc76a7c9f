package codec

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates the two ways a decode can fail.
type ErrorKind int

const (
	// KindTruncated means the input ended before the format was complete.
	KindTruncated ErrorKind = iota
	// KindOverflow means the encoded value does not fit the target type,
	// or the group count exceeded the bound for the target's width.
	KindOverflow
)

// String returns the lowercase name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTruncated:
		return "truncated"
	case KindOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the failure type returned by every decode path in this package.
type Error struct {
	Kind ErrorKind // what went wrong
	Op   string    // operation that failed, e.g. "decode compact"
	Msg  string    // human-readable cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Op + ": " + e.Kind.String() + ": " + e.Msg
}

// IsTruncated reports whether err (or any error it wraps) is a decode
// failure caused by the input ending early.
func IsTruncated(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindTruncated
}

// IsOverflow reports whether err (or any error it wraps) is a decode
// failure caused by a value exceeding the target type's width.
func IsOverflow(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindOverflow
}

func truncatedf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindTruncated, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func overflowf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindOverflow, Op: op, Msg: fmt.Sprintf(format, args...)}
}
