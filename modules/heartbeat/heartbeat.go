// Package heartbeat provides a built-in module that publishes periodic
// liveness events on the system event bus. Subscribers can use the
// monotonically increasing sequence number to detect missed beats.
package heartbeat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/sensord/pkg/eventbus"
	"github.com/bft-labs/sensord/pkg/log"
)

// DefaultInterval is the beat interval used when none is configured.
const DefaultInterval = 30 * time.Second

// ErrStopTimeout is returned by Stop when the beat loop does not exit
// within the advisory timeout.
var ErrStopTimeout = errors.New("heartbeat: stop timeout")

// Event is the payload published on eventbus.TopicHeartbeat.
type Event struct {
	Sequence uint64
	SentAt   time.Time
}

// Module publishes heartbeat events from its own goroutine.
type Module struct {
	interval time.Duration
	bus      *eventbus.Bus
	logger   log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	seq    uint64
}

// New creates a heartbeat module. A non-positive interval falls back to
// DefaultInterval. The logger may be nil.
func New(bus *eventbus.Bus, logger log.Logger, interval time.Duration) *Module {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Module{
		interval: interval,
		bus:      bus,
		logger:   logger,
	}
}

// Start launches the beat loop.
func (m *Module) Start() error {
	if m.bus == nil {
		return errors.New("heartbeat: nil event bus")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(ctx, m.done)

	m.logger.Info("heartbeat started", log.Duration("interval", m.interval))
	return nil
}

// Stop cancels the beat loop and waits up to the advisory timeout for it
// to exit.
func (m *Module) Stop(timeout time.Duration) error {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

func (m *Module) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.seq++
			m.bus.Publish(eventbus.TopicHeartbeat, Event{
				Sequence: m.seq,
				SentAt:   time.Now().UTC(),
			})
		}
	}
}
