package runner

import (
	"log/slog"
	"time"
)

// DefaultTick is how often the Runner refreshes a run with a stage in flight.
const DefaultTick = time.Second

// Option configures the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithHandler configures the IOHandler. The default is a TextHandler on
// stdin/stdout.
func WithHandler(h IOHandler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithTick overrides DefaultTick.
func WithTick(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tick = d
		}
	}
}

// WithInterruptSource sets a channel that interrupts a wait on an in-flight
// stage and hands control back to the user. Without it, SIGINT does that.
func WithInterruptSource(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.interrupt = ch
	}
}
