package system

import (
	"github.com/bft-labs/sensord/pkg/eventbus"
	"github.com/bft-labs/sensord/pkg/log"
)

// Option configures optional behavior of a Manager.
type Option func(*options)

type options struct {
	logger log.Logger
	bus    *eventbus.Bus
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBus injects the event bus the manager should listen on. Modules that
// need to signal the system must publish on the same bus. If not provided,
// the manager constructs its own bus, and closes it during shutdown either
// way.
func WithBus(bus *eventbus.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}
