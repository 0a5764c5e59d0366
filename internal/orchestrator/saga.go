package orchestrator

import "context"

// compensation undoes one completed saga step.
type compensation struct {
	name string
	undo func(context.Context) error
}

// saga tracks the completed steps of one invocation so they can be undone
// in reverse order. Nothing is persisted.
type saga struct {
	op     string
	logger Logger
	steps  []compensation
}

func newSaga(op string, logger Logger) *saga {
	return &saga{op: op, logger: logger}
}

// completed records the undo action of a step that succeeded.
func (s *saga) completed(name string, undo func(context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// rollback runs every recorded undo action, most recent first. Failures are
// logged and never stop the remaining undo actions. The caller's
// cancellation does not abort compensation.
func (s *saga) rollback(ctx context.Context, cause error) {
	ctx = context.WithoutCancel(ctx)
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			s.logger.Warn("compensation failed",
				"operation", s.op,
				"step", step.name,
				"error", err,
				"cause", cause,
			)
			continue
		}
		s.logger.Debug("compensation completed", "operation", s.op, "step", step.name)
	}
	s.steps = nil
}
