package system

import (
	"fmt"
	"time"

	"github.com/bft-labs/sensord/pkg/log"
	"github.com/bft-labs/sensord/pkg/module"
)

// StartAll starts every registered module in priority-descending order
// (highest priority first). Deterministic ordering outranks startup speed:
// modules start one at a time, synchronously.
//
// On the first start failure the failing module is marked StateError, every
// module started so far is rolled back in exact reverse order, and an error
// naming the culprit is returned. Rollback itself never fails StartAll; a
// stop error during rollback is logged and the module marked StateError.
func (m *Manager) StartAll() error {
	mods := m.byPriority(true)

	started := make([]*managedModule, 0, len(mods))
	for _, mm := range mods {
		m.logger.Info("starting module",
			log.String("module", mm.name),
			log.Int("priority", mm.priority),
		)

		if err := startModule(mm.instance); err != nil {
			m.setState(mm, module.StateError)
			m.logger.Error("module start failed",
				log.String("module", mm.name),
				log.Err(err),
			)
			m.rollback(started)
			return fmt.Errorf("start module %q: %w", mm.name, err)
		}

		m.setState(mm, module.StateRunning)
		started = append(started, mm)
	}

	m.logger.Info("all modules started", log.Int("count", len(started)))
	return nil
}

// rollback stops already-started modules in reverse acquisition order.
// It absorbs every stop failure so the original start error propagates
// unchanged.
func (m *Manager) rollback(started []*managedModule) {
	if len(started) == 0 {
		return
	}
	m.logger.Warn("rolling back started modules", log.Int("count", len(started)))

	for i := len(started) - 1; i >= 0; i-- {
		mm := started[i]
		if err := stopModule(mm.instance, m.cfg.StopTimeout); err != nil {
			m.setState(mm, module.StateError)
			m.logger.Error("rollback stop failed",
				log.String("module", mm.name),
				log.Err(err),
			)
			continue
		}
		m.setState(mm, module.StateStopped)
		m.logger.Info("module rolled back", log.String("module", mm.name))
	}
}

// startModule calls Start, converting a panic into an error so a misbehaving
// module cannot take the manager down.
func startModule(instance module.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start panic: %v", r)
		}
	}()
	return instance.Start()
}

// stopModule calls Stop with the advisory timeout, converting a panic into
// an error.
func stopModule(instance module.Module, timeout time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stop panic: %v", r)
		}
	}()
	return instance.Stop(timeout)
}
