package store

import "errors"

// Error taxonomy. Handlers map these onto HTTP statuses; everything the store
// and coordinator return wraps exactly one of them.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("forbidden")
	ErrStoreFailure    = errors.New("store failure")
	ErrUpstreamFailure = errors.New("upstream failure")
)

// Error pairs a short human-readable message with a taxonomy kind and,
// optionally, the underlying cause. The message is safe to return to callers;
// the cause is for logs only.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NotFound builds an ErrNotFound with a caller-facing message.
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

// InvalidInput builds an ErrInvalidInput with a caller-facing message.
func InvalidInput(msg string) error { return &Error{Kind: ErrInvalidInput, Msg: msg} }

// Forbidden builds an ErrForbidden with a caller-facing message.
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Msg: msg} }

// Failure wraps a low-level store error as ErrStoreFailure, tagged with the
// operation that failed.
func Failure(op string, err error) error {
	return &Error{Kind: ErrStoreFailure, Msg: op + " failed", Err: err}
}

// Upstream wraps a media-host error as ErrUpstreamFailure.
func Upstream(op string, err error) error {
	return &Error{Kind: ErrUpstreamFailure, Msg: op + " failed", Err: err}
}
