// Package sensord provides the lifecycle core of a multi-module sensor
// processing application: a system manager that starts and stops modules in
// priority order, and an in-process event bus modules use to signal each
// other.
//
// Example usage:
//
//	bus := eventbus.New(eventbus.WithLogger(logger))
//
//	mgr, err := sensord.New(sensord.DefaultConfig(),
//	    sensord.WithLogger(logger),
//	    sensord.WithBus(bus),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = mgr.Register("camera", cameraModule, 50)
//	_ = mgr.Register("detector", detectorModule, 30)
//	_ = mgr.RegisterDisplay("viewer", viewerModule, 10)
//
//	if err := mgr.StartAll(); err != nil {
//	    log.Fatal(err)
//	}
//	mgr.Run(true) // blocks until interrupt, shutdown event, or viewer quit
//
// Higher priority starts first; lower priority stops first, so shutdown is
// the exact reverse of a clean start. Any module can bring the system down
// by publishing on the shutdown topic:
//
//	bus.Publish(eventbus.TopicShutdown, eventbus.ShutdownEvent{
//	    Reason: "camera disconnected",
//	})
package sensord

import (
	"github.com/bft-labs/sensord/internal/system"
	"github.com/bft-labs/sensord/pkg/eventbus"
	"github.com/bft-labs/sensord/pkg/log"
	"github.com/bft-labs/sensord/pkg/module"
)

// Manager orchestrates module lifecycle and the main loop.
type Manager = system.Manager

// Config holds the manager's tunables.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = system.Config

// Option configures optional behavior of a Manager.
type Option = system.Option

// Module is the contract implemented by managed subsystems.
type Module = module.Module

// Renderer is the contract for the single render-driving module.
type Renderer = module.Renderer

// State is a managed module's lifecycle state.
type State = module.State

// ShutdownEvent is the payload of the well-known shutdown topic.
type ShutdownEvent = eventbus.ShutdownEvent

// ExitShutdownFailed is the process exit code used when a failed shutdown
// is escalated to forced termination.
const ExitShutdownFailed = system.ExitShutdownFailed

// New creates a system manager with the given configuration.
func New(cfg Config, opts ...Option) (*Manager, error) {
	return system.New(cfg, opts...)
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return system.DefaultConfig()
}

// WithLogger sets a custom logger for structured logging.
func WithLogger(logger log.Logger) Option {
	return system.WithLogger(logger)
}

// WithBus injects the event bus the manager should listen on.
func WithBus(bus *eventbus.Bus) Option {
	return system.WithBus(bus)
}
