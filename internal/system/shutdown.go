package system

import (
	"github.com/bft-labs/sensord/pkg/log"
	"github.com/bft-labs/sensord/pkg/module"
)

// Shutdown stops every running module in priority-ascending order (lowest
// priority first, the reverse of a clean start) and then closes the event
// bus.
//
// Shutdown is one-shot: the first caller performs the stop pass; concurrent
// and later callers wait for it to finish and return the same result
// without touching any module. A module's stop failure is retried exactly
// once, then recorded, and iteration continues regardless; the manager's
// liveness never depends on a single module's good behavior.
//
// Returns true only if every stop succeeded.
func (m *Manager) Shutdown() bool {
	m.shutdownMu.Lock()
	defer m.shutdownMu.Unlock()

	if m.shutdownStarted {
		return m.shutdownOK
	}
	m.shutdownStarted = true
	m.shuttingDown.Store(true)

	// Wake a Run loop blocked on the quit channel, in case Shutdown was
	// called directly.
	m.requestShutdown("shutdown requested")

	var failed []string
	for _, mm := range m.byPriority(false) {
		m.mu.RLock()
		running := mm.state == module.StateRunning
		m.mu.RUnlock()
		if !running {
			continue
		}

		m.logger.Info("stopping module",
			log.String("module", mm.name),
			log.Int("priority", mm.priority),
		)

		err := stopModule(mm.instance, m.cfg.StopTimeout)
		if err != nil {
			m.logger.Warn("module stop failed, retrying",
				log.String("module", mm.name),
				log.Err(err),
			)
			err = stopModule(mm.instance, m.cfg.StopTimeout)
		}

		if err != nil {
			m.setState(mm, module.StateError)
			failed = append(failed, mm.name)
			m.logger.Error("module stop failed after retry",
				log.String("module", mm.name),
				log.Err(err),
			)
			continue
		}

		m.setState(mm, module.StateStopped)
	}

	// Close the bus last so modules could still signal during their own
	// stop. Wait for in-flight dispatch; keep queued async events.
	if err := m.bus.Close(true, false); err != nil {
		m.logger.Error("event bus close failed", log.Err(err))
	}

	m.shutdownOK = len(failed) == 0
	if m.shutdownOK {
		m.logger.Info("shutdown complete")
	} else {
		m.logger.Error("shutdown completed with failures",
			log.Strings("failed_modules", failed),
		)
	}

	return m.shutdownOK
}
