package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrStructuralConflict is returned when a path descends through a
	// scalar or sequence, or a merge targets a non-sequence.
	ErrStructuralConflict = errors.New("structural conflict")

	// ErrInvalidOperation is returned for malformed operations.
	ErrInvalidOperation = errors.New("invalid operation")
)

// ConflictError describes where an operation collided with the tree.
type ConflictError struct {
	Path   string // operation path
	At     string // prefix that could not be descended
	Found  string // kind of node found at At
	Policy Policy
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: cannot descend through %s at %q", e.Policy, e.Path, e.Found, e.At)
}

func (e *ConflictError) Unwrap() error {
	return ErrStructuralConflict
}
