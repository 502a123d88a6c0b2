package decision

import (
	"errors"
	"fmt"
)

// Kind categorizes a denied decision so callers can distinguish a
// 401-equivalent from a 403-equivalent without matching strings.
type Kind string

const (
	// KindUnauthenticated means the credential was missing or rejected outright.
	KindUnauthenticated Kind = "unauthenticated"
	// KindForbidden means an explicit denial, or a downstream response that
	// could not be confidently read as an allow.
	KindForbidden Kind = "forbidden"
	// KindTransport means the downstream call itself failed. Mapped to a
	// forbidden response at the boundary: ambiguity never becomes an allow.
	KindTransport Kind = "transport"
)

// Error is a denied decision with its kind preserved end to end.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Detail, e.Err)
	}
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func Unauthenticated(detail string) *Error {
	return &Error{Kind: KindUnauthenticated, Detail: detail}
}

func Forbidden(detail string) *Error {
	return &Error{Kind: KindForbidden, Detail: detail}
}

func TransportFailure(detail string, err error) *Error {
	return &Error{Kind: KindTransport, Detail: detail, Err: err}
}

// KindOf extracts the decision kind from err, or KindForbidden when err is not
// a decision error (unclassified failures deny).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindForbidden
}

// DetailOf extracts the diagnostic detail from err, if any.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}
