package pipeline

import (
	"io"
	"log/slog"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/passes"
)

// AfterPassFunc is called after each pass has recorded its report. step is
// the zero-based position of the pass in the run. A returned error aborts
// the run.
type AfterPassFunc func(step int, pass string, net *ir.Network, ann *ir.Annotations) error

// Options configures a driver. The zero value is usable through
// defaultOptions; callers normally use the With* functions.
type Options struct {
	// Policy classifies violations in the resource-check pass.
	Policy passes.Policy

	// FailFast stops partitioning at the first population larger than a
	// core instead of collecting every such population.
	FailFast bool

	// MaxDelayTicks is the backend delay limit checked by the timing pass.
	MaxDelayTicks ir.Opt[int64]

	// Seed is recorded on the result. No current pass is randomized.
	Seed int64

	Clock     Clock
	Logger    *slog.Logger
	AfterPass AfterPassFunc
}

// Option configures Options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Policy: passes.DefaultPolicy(),
		Clock:  SystemClock{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithPolicy sets the violation classification policy.
func WithPolicy(p passes.Policy) Option {
	return func(o *Options) {
		o.Policy = p
	}
}

// WithFailFast stops the run at the first population that exceeds a core.
func WithFailFast(failFast bool) Option {
	return func(o *Options) {
		o.FailFast = failFast
	}
}

// WithMaxDelayTicks sets the backend delay limit for the timing pass.
func WithMaxDelayTicks(ticks int64) Option {
	return func(o *Options) {
		o.MaxDelayTicks = ir.Some(ticks)
	}
}

// WithSeed records a seed on the result for reproducibility bookkeeping.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.Seed = seed
	}
}

// WithClock sets the clock used to time passes.
// Use a stepping clock in tests for deterministic durations.
func WithClock(c Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

// WithLogger sets the logger. Pass progress is logged at Debug.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithAfterPass registers a hook run after every pass, e.g. to dump the
// annotated network.
func WithAfterPass(fn AfterPassFunc) Option {
	return func(o *Options) {
		o.AfterPass = fn
	}
}
