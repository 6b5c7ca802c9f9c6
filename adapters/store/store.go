package store

import "time"

const (
	// DefaultPrefix namespaces session keys
	DefaultPrefix = "sess:"

	// DefaultIdleTTL is the sliding idle window of a session
	DefaultIdleTTL = 600 * time.Second
)

type options struct {
	prefix          string
	checkThenUpdate bool
	now             func() time.Time
}

// Option customizes a session store
type Option func(*options)

// WithPrefix sets the key prefix of session records
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithCheckThenRefresh makes Touch read the record and rewrite it instead of
// refreshing it in one atomic command. A record that expires between the two
// round-trips is recreated for one more idle window.
func WithCheckThenRefresh() Option {
	return func(o *options) {
		o.checkThenUpdate = true
	}
}

// WithClock replaces the wall clock of the in-memory store
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func normalizeIdleTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultIdleTTL
	}
	return ttl
}
