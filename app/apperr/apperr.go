package apperr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes the poll pipeline distinguishes.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindExtraction
	KindStore
	KindNotify
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindExtraction:
		return "extraction"
	case KindStore:
		return "store"
	case KindNotify:
		return "notify"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Transport(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func Extraction(op string, err error) error {
	return &Error{Kind: KindExtraction, Op: op, Err: err}
}

func Store(op string, err error) error {
	return &Error{Kind: KindStore, Op: op, Err: err}
}

func Notify(op string, err error) error {
	return &Error{Kind: KindNotify, Op: op, Err: err}
}

// kinded is implemented by domain errors that know their own class,
// e.g. listing.ExtractionError.
type kinded interface {
	Kind() Kind
}

// KindOf returns the outermost classified kind found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}

	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
