package stixcore

import (
	"errors"
	"fmt"
)

// Only ErrDuplicateAssignment aborts a run. The others are absorbed where they
// occur and reduce output completeness.
var (
	// ErrDuplicateAssignment means a (kind, code) pair was assigned twice.
	ErrDuplicateAssignment = errors.New("duplicate identifier assignment")

	// ErrUnknownReference means a code has no identifier for the requested kind.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrAmbiguousReference means a code without a known kind is registered
	// under more than one kind.
	ErrAmbiguousReference = errors.New("ambiguous reference")

	// ErrMalformedReference marks a reference tuple with fewer than three fields.
	ErrMalformedReference = errors.New("malformed reference tuple")

	// ErrUnparsableTimestamp marks a created/first_seen cell that is not YYYY-MM-DD.
	ErrUnparsableTimestamp = errors.New("unparsable timestamp")
)

// RegistryError carries the registry operation and key that failed.
type RegistryError struct {
	Op   string
	Kind Kind
	Code string
	Err  error
}

func (e *RegistryError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("registry: %s %q: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("registry: %s %s %q: %v", e.Op, e.Kind, e.Code, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}
