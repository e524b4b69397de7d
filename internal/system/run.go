package system

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bft-labs/sensord/pkg/log"
	"github.com/bft-labs/sensord/pkg/module"
)

// Run blocks until a shutdown is triggered, then performs it. The three
// triggers are an OS interrupt (SIGINT/SIGTERM), a ShutdownEvent published
// on the bus, and, when a display module is registered, its render tick
// returning quit=true.
//
// With a display module, RenderOnce runs once per loop iteration on the
// calling goroutine; rendering toolkits that forbid cross-thread calls rely
// on this. Without one, the loop parks on the quit and signal channels and
// consumes no CPU while idle.
//
// Every trigger funnels into a single Shutdown call. If that reports
// failure and forceExitOnFailure is set, the manager sleeps for the
// configured grace period (letting buffered logs flush) and then terminates
// the process unconditionally with ExitShutdownFailed. That forced exit is
// the deliberate last resort for a module stuck in stop, such as a hung I/O
// call.
func (m *Manager) Run(forceExitOnFailure bool) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	m.mu.RLock()
	display := m.display
	m.mu.RUnlock()

	if display != nil {
		m.renderLoop(display, sig)
	} else {
		select {
		case s := <-sig:
			m.requestShutdown("signal: " + s.String())
		case <-m.quit:
		}
	}

	m.logger.Info("shutting down", log.String("reason", m.shutdownReason()))

	if ok := m.Shutdown(); !ok && forceExitOnFailure {
		m.logger.Error("graceful shutdown failed, forcing process exit",
			log.Duration("grace_period", m.cfg.GracePeriod),
			log.Int("exit_code", ExitShutdownFailed),
		)
		time.Sleep(m.cfg.GracePeriod)
		m.exit(ExitShutdownFailed)
	}
}

// renderLoop drives the display module, checking the quit triggers between
// ticks. A render error is logged and treated as "no shutdown requested
// this tick".
func (m *Manager) renderLoop(display *managedModule, sig <-chan os.Signal) {
	renderer := display.instance.(module.Renderer)

	for {
		select {
		case s := <-sig:
			m.requestShutdown("signal: " + s.String())
			return
		case <-m.quit:
			return
		default:
		}

		quit, err := renderTick(renderer)
		if err != nil {
			m.logger.Error("render tick failed",
				log.String("module", display.name),
				log.Err(err),
			)
			continue
		}
		if quit {
			m.requestShutdown("display requested exit")
			return
		}
	}
}

// renderTick calls RenderOnce, converting a panic into an error.
func renderTick(r module.Renderer) (quit bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			quit = false
			err = fmt.Errorf("render panic: %v", rec)
		}
	}()
	return r.RenderOnce()
}
