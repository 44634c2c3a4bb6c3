package release

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"
)

// Step is one named stage of the pipeline.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pipeline is an ordered list of steps.  Steps run sequentially; the first
// error aborts the run and is returned annotated with the step that failed.
type Pipeline []Step

func (p Pipeline) Run(ctx context.Context) error {
	for i, step := range p {
		dlog.Infof(ctx, "step %d/%d: %s", i+1, len(p), step.Name)
		if err := step.Run(dlog.WithField(ctx, "step", step.Name)); err != nil {
			dlog.Errorf(ctx, "step %q failed: %v", step.Name, err)
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}
	return nil
}
