package reconcile

import (
	"fmt"
)

// TransformShapeError means the top-level snapshot document is unusable.
// Nothing is written when this is returned: the whole import aborts.
type TransformShapeError struct {
	Reason string
	Err    error
}

func (e *TransformShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snapshot shape invalid: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("snapshot shape invalid: %s", e.Reason)
}

func (e *TransformShapeError) Unwrap() error {
	return e.Err
}

// InconsistentStateError means stored data violates the one-id-one-entity
// invariant (duplicate stable ids). The merge refuses to guess which
// duplicate is authoritative.
type InconsistentStateError struct {
	Entity string
	ID     string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent stored state: duplicate %s id %q", e.Entity, e.ID)
}
