package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials means an environment has neither a cached token nor a way to get one
	ErrNoCredentials = errors.New("no credentials")
	// ErrUnresolvedTarget means an identifier or index has no mapped backend
	ErrUnresolvedTarget = errors.New("unresolved search target")
	// ErrClassifier means the identifier classifier produced no usable output
	ErrClassifier = errors.New("classifier failure")
)

// TransportError wraps a failed call to the search backend
type TransportError struct {
	Index  string
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("search %s: status %d: %v", e.Index, e.Status, e.Err)
	}
	return fmt.Sprintf("search %s: %v", e.Index, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
