package feed

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind string

const (
	// KindNetwork means the request failed or returned a non-success status.
	KindNetwork Kind = "network"
	// KindParse means the body was not the expected JSON shape.
	KindParse Kind = "parse"
	// KindMissingField means a required field was absent or not numeric.
	KindMissingField Kind = "missing-field"
)

// FetchError is returned by Fetcher.Fetch.
//
// Use errors.As to extract it, or IsKind to test the failure class.
type FetchError struct {
	Kind  Kind   // Failure class
	Field string // Offending field, if any
	Err   error  // Underlying cause, may be nil
}

func (e *FetchError) Error() string {
	msg := "feed: " + string(e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a FetchError of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

func networkError(err error) error {
	return &FetchError{Kind: KindNetwork, Err: err}
}

func parseError(field string, err error) error {
	return &FetchError{Kind: KindParse, Field: field, Err: err}
}

func missingField(field string, err error) error {
	return &FetchError{Kind: KindMissingField, Field: field, Err: err}
}
