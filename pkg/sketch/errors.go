package sketch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotInitialized is returned by every operation on a Solver that has
	// not been initialized, or has been destroyed.
	ErrNotInitialized = errors.New("sketch: solver not initialized")

	// ErrInvalidEntityReference is returned when an id does not resolve to
	// a live entity of the expected kind.
	ErrInvalidEntityReference = errors.New("sketch: invalid entity reference")

	// ErrInvalidConstraintSelection is returned when the selected entities
	// do not fit any accepted pattern for a constraint type.
	ErrInvalidConstraintSelection = errors.New("sketch: invalid constraint selection")

	// ErrInvalidConstraintReference is returned for an unknown constraint id.
	ErrInvalidConstraintReference = errors.New("sketch: invalid constraint reference")

	// ErrInvalidValue is returned for a dimension or radius outside its domain.
	ErrInvalidValue = errors.New("sketch: invalid value")

	// ErrSolveDidNotConverge marks a failed SolveResult.
	ErrSolveDidNotConverge = errors.New("sketch: solve did not converge")
)

// SelectionError explains why a selection was rejected for a constraint type.
type SelectionError struct {
	Type   ConstraintType
	Kinds  []Kind
	Reason string
}

func (e *SelectionError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = k.String()
	}
	return fmt.Sprintf("%s [%s]: %s", e.Type, strings.Join(names, ", "), e.Reason)
}

func (e *SelectionError) Unwrap() error { return ErrInvalidConstraintSelection }

func unknownEntity(id ID) error {
	return fmt.Errorf("%w: %s does not exist", ErrInvalidEntityReference, id)
}

func wrongKind(id ID, got, want Kind) error {
	return fmt.Errorf("%w: %s is a %s, want %s", ErrInvalidEntityReference, id, got, want)
}
