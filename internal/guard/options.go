package guard

import "github.com/jonboulle/clockwork"

// Option configures a guard.
type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
