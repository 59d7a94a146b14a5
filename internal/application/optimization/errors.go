package optimization

import (
	"errors"
	"fmt"

	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// ErrOptimizationApplicationFailed is the single recoverable error kind of the optimizer.
// It is logged and never propagated past the use case that applies optimizations.
var ErrOptimizationApplicationFailed = errors.New("optimization application failed")

// ErrAlreadyInEffect is returned by a handler whose setting is already at its target.
// The applier reports such kinds as unchanged, not failed.
var ErrAlreadyInEffect = errors.New("already in effect")

func inEffect(what string) error {
	return fmt.Errorf("%s %w", what, ErrAlreadyInEffect)
}

// OptimizationApplicationFailedError carries the optimization that could not be applied.
type OptimizationApplicationFailedError struct {
	Optimization valueobject.OptimizationKind
	Reason       string
	Err          error
}

func newFailure(kind valueobject.OptimizationKind, err error) *OptimizationApplicationFailedError {
	reason := "unknown failure"
	if err != nil {
		reason = err.Error()
	}
	return &OptimizationApplicationFailedError{Optimization: kind, Reason: reason, Err: err}
}

func (e *OptimizationApplicationFailedError) Error() string {
	return fmt.Sprintf("optimization application failed: %s: %s", e.Optimization, e.Reason)
}

// Is matches ErrOptimizationApplicationFailed.
func (e *OptimizationApplicationFailedError) Is(target error) bool {
	return target == ErrOptimizationApplicationFailed
}

func (e *OptimizationApplicationFailedError) Unwrap() error {
	return e.Err
}
