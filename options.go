package partialindex

import "log/slog"

// DefaultUnsortedThreshold is the number of scanned unsorted entries
// at which a lookup raises the needs-rebuild marker.
const DefaultUnsortedThreshold = 1000

type options struct {
	strictConsistency bool
	useBisect         bool
	unsortedThreshold int
	logger            *Logger
}

// Option configures Index construction.
type Option func(*options)

// WithStrictConsistency controls what happens when the index reports
// no candidates but the slow path resolves the query. Off (the
// default) trusts the slow path; on raises InconsistentIndexError.
func WithStrictConsistency(strict bool) Option {
	return func(o *options) {
		o.strictConsistency = strict
	}
}

// WithBisect toggles binary search over the sorted region of a shard.
// When disabled, lookups linearly scan the whole shard file. On by
// default; disabling it is mainly useful for testing.
func WithBisect(use bool) Option {
	return func(o *options) {
		o.useBisect = use
	}
}

// WithUnsortedThreshold sets the number of unsorted entries a single
// lookup may scan before the index is flagged for rebuild on the next
// bulk ingest. Values below one keep the default.
func WithUnsortedThreshold(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.unsortedThreshold = n
		}
	}
}

// WithLogger configures structured logging. Pass nil to disable
// logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets
// it. Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		useBisect:         true,
		unsortedThreshold: DefaultUnsortedThreshold,
		logger:            NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
