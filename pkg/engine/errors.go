package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution and execution failures are returned inside Result.Error, never
// panicked or propagated as Go errors across the call boundary. The
// sentinels below are the taxonomy callers can test with errors.Is; Stopped
// and Unusable imply different corrective actions (wait and resume versus
// pick a different target) and must stay distinguishable.
var (
	// ErrNotFound means no strategy matched in any accessible scope.
	ErrNotFound = errors.New("no matching element found")

	// ErrDisabled means the right element was found but is disabled; the
	// descriptor was correct, the element's state was not.
	ErrDisabled = errors.New("element is disabled")

	// ErrExecution wraps a failure of the effect itself, such as
	// dispatching on a detached node.
	ErrExecution = errors.New("execution failure")
)

// notFoundError carries the attempted strategy names for diagnostics.
type notFoundError struct {
	attempted []string
}

func (e *notFoundError) Error() string {
	if len(e.attempted) == 0 {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s (attempted strategies: %s)",
		ErrNotFound.Error(), strings.Join(e.attempted, ", "))
}

func (e *notFoundError) Unwrap() error { return ErrNotFound }
