package optimization

import (
	"context"
	"errors"

	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// Applier dispatches optimization kinds to their registered handlers.
type Applier struct {
	registry *Registry
	tuning   *Tuning
	logger   *logger.Logger
}

// NewApplier creates an applier. A nil tuning starts from DefaultSettings.
func NewApplier(registry *Registry, tuning *Tuning, log *logger.Logger) *Applier {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if tuning == nil {
		tuning = NewTuning(DefaultSettings())
	}
	return &Applier{registry: registry, tuning: tuning, logger: log}
}

// Tuning returns the tuning record the applier writes to.
func (a *Applier) Tuning() *Tuning {
	return a.tuning
}

// Outcome groups the kinds handled by ApplyAll.
type Outcome struct {
	// Applied changed the tuning record
	Applied []valueobject.OptimizationKind
	// Unchanged were already in effect
	Unchanged []valueobject.OptimizationKind
	Failed    []*OptimizationApplicationFailedError
}

// InEffect returns applied and unchanged kinds, in that order.
func (o Outcome) InEffect() []valueobject.OptimizationKind {
	kinds := make([]valueobject.OptimizationKind, 0, len(o.Applied)+len(o.Unchanged))
	kinds = append(kinds, o.Applied...)
	return append(kinds, o.Unchanged...)
}

// Apply runs the handler for kind. A kind already in effect is not an error.
// Every failure is an *OptimizationApplicationFailedError.
func (a *Applier) Apply(ctx context.Context, kind valueobject.OptimizationKind) error {
	_, err := a.apply(ctx, kind)
	return err
}

func (a *Applier) apply(ctx context.Context, kind valueobject.OptimizationKind) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, newFailure(kind, err)
	}

	handler, ok := a.registry.Handler(kind)
	if !ok {
		return false, newFailure(kind, errors.New("no handler registered"))
	}

	if err := handler(ctx, a.tuning); err != nil {
		if errors.Is(err, ErrAlreadyInEffect) {
			if a.logger != nil {
				a.logger.Debug("Optimization already in effect", "optimization", kind.String(), "detail", err.Error())
			}
			return false, nil
		}
		return false, newFailure(kind, err)
	}

	if a.logger != nil {
		a.logger.Info("Optimization applied", "optimization", kind.String(), "description", kind.Text())
	}
	return true, nil
}

// ApplyAll applies kinds in order. Failures are logged and collected, never returned as an error.
func (a *Applier) ApplyAll(ctx context.Context, kinds []valueobject.OptimizationKind) Outcome {
	outcome := Outcome{
		Applied:   make([]valueobject.OptimizationKind, 0, len(kinds)),
		Unchanged: []valueobject.OptimizationKind{},
	}

	for _, kind := range kinds {
		changed, err := a.apply(ctx, kind)
		if err == nil {
			if changed {
				outcome.Applied = append(outcome.Applied, kind)
			} else {
				outcome.Unchanged = append(outcome.Unchanged, kind)
			}
			continue
		}

		var failure *OptimizationApplicationFailedError
		if !errors.As(err, &failure) {
			failure = newFailure(kind, err)
		}
		outcome.Failed = append(outcome.Failed, failure)

		if a.logger != nil {
			a.logger.Warn("Optimization application failed",
				"optimization", kind.String(),
				"reason", failure.Reason,
			)
		}
	}

	return outcome
}
