package listing

import (
	"fmt"

	"github.com/lysyi3m/rent-comb/app/apperr"
)

type Reason int

const (
	ReasonNoMatch Reason = iota + 1
	ReasonMissingAttribute
	ReasonNumericParse
	ReasonPattern
	ReasonDateParse
)

func (r Reason) String() string {
	switch r {
	case ReasonNoMatch:
		return "no match"
	case ReasonMissingAttribute:
		return "missing attribute"
	case ReasonNumericParse:
		return "numeric parse"
	case ReasonPattern:
		return "pattern mismatch"
	case ReasonDateParse:
		return "date parse"
	default:
		return "unknown"
	}
}

// ExtractionError describes why a single field could not be read from a page.
type ExtractionError struct {
	Reason Reason
	Path   string
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("%s at %q", e.Reason, e.Path)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Kind() apperr.Kind {
	return apperr.KindExtraction
}
