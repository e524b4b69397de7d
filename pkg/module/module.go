package module

import "time"

// Module is the contract every managed subsystem exposes to the system
// manager. Implementations wrap the real subsystem (camera capture, bus
// driver, renderer) behind these two calls.
//
// Start and Stop are invoked synchronously by the manager, one module at a
// time, in priority order. Neither is called concurrently with the other
// for the same module.
type Module interface {
	// Start brings the module up. A non-nil error marks the module as
	// failed and triggers rollback of modules started before it.
	Start() error

	// Stop brings the module down. The timeout is advisory: compliant
	// modules should return within it, but the manager does not enforce
	// it on modules that ignore it.
	Stop(timeout time.Duration) error
}

// Renderer is implemented by the single module, if any, that drives the
// manager's per-tick loop. RenderOnce runs one iteration on the goroutine
// that called Run; many rendering toolkits forbid cross-thread calls, which
// is why the tick is pulled rather than pushed.
type Renderer interface {
	Module

	// RenderOnce performs one render tick. Returning quit=true asks the
	// manager to shut the system down. It must return quickly; it is one
	// iteration of the manager's own loop.
	RenderOnce() (quit bool, err error)
}
