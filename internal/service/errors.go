package service

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistry marks a malformed or non-200 registry response. Never retried.
	ErrRegistry = errors.New("registry request failed")
	// ErrRegistryExhausted marks a registry call whose transport retries ran out
	ErrRegistryExhausted = errors.New("registry retries exhausted")
	// ErrMissingLawID marks a change record that cannot be attributed to a law
	ErrMissingLawID = errors.New("change record has no law id")
	// ErrUnparsableResponse means every generation attempt returned non-JSON text
	ErrUnparsableResponse = errors.New("generation response is not valid JSON")
	// ErrGeneration marks a transport or status failure of the generation service
	ErrGeneration = errors.New("generation request failed")
)

// RegistryError describes a failed registry call. Transient errors are the
// ones that exhausted the retry budget; the rest failed on the first bad
// response.
type RegistryError struct {
	Endpoint  string
	Attempts  int
	Transient bool
	Err       error
}

func (e *RegistryError) Error() string {
	if e.Transient {
		return fmt.Sprintf("registry %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("registry %s failed: %v", e.Endpoint, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// Is lets callers match the sentinel that fits the failure kind
func (e *RegistryError) Is(target error) bool {
	if e.Transient {
		return target == ErrRegistryExhausted
	}
	return target == ErrRegistry
}
