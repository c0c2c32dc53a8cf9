// Package errs defines the status codes and contract-violation signal shared
// by the resource tree, push pipeline, and query facade (spec §7).
package errs

import "errors"

// Structural errors returned as status codes to callers.
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate")
	ErrUnavailable = errors.New("unavailable")
	ErrUnsupported = errors.New("unsupported")
	ErrFormatError = errors.New("format error")
	ErrOverflow    = errors.New("overflow")
	ErrNoMemory    = errors.New("no memory")
)

// Violation is a client-contract violation (spec §7): push to a
// non-existent resource, fetch of the wrong kind, negative startAfter,
// default-setting with the wrong kind, handler registration before the
// resource exists, marking a non-Output optional, and similar caller bugs.
//
// These never surface as status codes to the offending client; the caller
// is expected to terminate the client's session upon seeing one.
type Violation struct {
	Reason string
}

func (v *Violation) Error() string { return "client contract violation: " + v.Reason }

// NewViolation builds a Violation error with the given reason.
func NewViolation(reason string) error { return &Violation{Reason: reason} }

// IsViolation reports whether err is (or wraps) a client-contract Violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}
