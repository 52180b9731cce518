package ace

import (
	"errors"
	"fmt"
)

// Error taxonomy for basis construction and evaluation.
var (
	// ErrBadConfig indicates invalid basis parameters at construction time.
	ErrBadConfig = errors.New("ace: invalid basis configuration")

	// ErrZeroDistance indicates a neighbor at exactly zero distance
	// (direction undefined).
	ErrZeroDistance = errors.New("ace: zero-length neighbor vector")

	// ErrTransformDomain indicates a distance-transform argument outside
	// its valid domain.
	ErrTransformDomain = errors.New("ace: transform argument out of domain")

	// ErrSpecies indicates a neighbor-list species index outside the
	// configured species set.
	ErrSpecies = errors.New("ace: species index out of range")

	// ErrInternal indicates an inconsistency in the constructed basis
	// (a tuple referencing an undefined one-particle index, or a coupling
	// lookup violating the decreasing-order recursion). Always a
	// construction bug, never retried.
	ErrInternal = errors.New("ace: internal basis inconsistency")
)

// ConfigError wraps a construction-time validation failure with the
// offending field. Construction errors abort basis creation entirely.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ace: config field %q: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrBadConfig }

// EvalError wraps an evaluation-time failure with the neighbor that caused
// it. It aborts only the current environment's evaluation; the basis and
// other in-flight evaluations are unaffected.
type EvalError struct {
	Neighbor int
	Wrapped  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("ace: neighbor %d: %v", e.Neighbor, e.Wrapped)
}

func (e *EvalError) Unwrap() error { return e.Wrapped }
