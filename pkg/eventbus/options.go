package eventbus

import "github.com/bft-labs/sensord/pkg/log"

// DefaultQueueSize is the default capacity of the async publish queue.
const DefaultQueueSize = 64

// Option configures optional behavior of a Bus.
type Option func(*options)

type options struct {
	logger    log.Logger
	queueSize int
}

func defaultOptions() options {
	return options{
		logger:    log.NewNoopLogger(),
		queueSize: DefaultQueueSize,
	}
}

// WithLogger sets the logger used to report subscriber failures.
// If not provided, failures are counted but not logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithQueueSize sets the capacity of the async publish queue.
// Non-positive values keep the default.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}
