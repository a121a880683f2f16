// Package wizard runs interactive flows as a sequence of named steps.
package wizard

import (
	"context"
	"fmt"
)

// Step defines one wizard action.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Progress receives step transitions. Either callback may be nil.
type Progress struct {
	OnStart func(index, total int, name string)
	OnDone  func(index, total int)
}

// RunSteps executes steps in order and stops at the first failure or when
// ctx is done. The returned error names the failing step.
func RunSteps(ctx context.Context, steps []Step, p Progress) error {
	total := len(steps)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.OnStart != nil {
			p.OnStart(i+1, total, step.Name)
		}
		if step.Run != nil {
			if err := step.Run(ctx); err != nil {
				return fmt.Errorf("%s: %w", step.Name, err)
			}
		}
		if p.OnDone != nil {
			p.OnDone(i+1, total)
		}
	}
	return nil
}
