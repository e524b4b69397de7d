package system

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/sensord/pkg/eventbus"
	"github.com/bft-labs/sensord/pkg/log"
	"github.com/bft-labs/sensord/pkg/module"
)

// Registration errors. Both are caller errors surfaced at construction
// time; they never occur once StartAll has been called with a valid set.
var (
	ErrDuplicateModule          = errors.New("module already registered")
	ErrDisplayAlreadyRegistered = errors.New("display module already registered")
)

// managedModule pairs a module instance with its registry metadata.
// Owned exclusively by the manager; the instance reference is never
// handed out.
type managedModule struct {
	name     string
	instance module.Module
	priority int
	seq      int // registration order, tiebreak for stable priority sorts
	state    module.State
}

// Manager owns the module registry and drives the application lifecycle:
// priority-ordered startup with rollback, the blocking main loop, and
// idempotent, failure-tolerant shutdown.
//
// All public methods are safe for concurrent use. Run is intended to be
// called once, from the embedding application's control goroutine, because
// a display module's render tick contractually executes there.
type Manager struct {
	cfg    Config
	logger log.Logger
	bus    *eventbus.Bus

	mu      sync.RWMutex
	modules map[string]*managedModule
	display *managedModule
	nextSeq int

	// quit is closed exactly once when a shutdown is requested, by any of
	// the three triggers. reason records why, for logging.
	quit     chan struct{}
	quitOnce sync.Once
	reason   atomic.Value // string

	// shutdownMu serializes the stop pass. Later callers block until the
	// first pass finishes and return its recorded result.
	shutdownMu      sync.Mutex
	shutdownStarted bool
	shutdownOK      bool
	shuttingDown    atomic.Bool

	// exit is os.Exit, swappable for tests.
	exit func(code int)
}

// New creates a manager with the given configuration. The manager
// subscribes to eventbus.TopicShutdown on its bus; the subscription handler
// only records the request, so publishers are never blocked on lifecycle
// work.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	bus := o.bus
	if bus == nil {
		bus = eventbus.New(eventbus.WithLogger(o.logger))
	}

	m := &Manager{
		cfg:     cfg,
		logger:  o.logger,
		bus:     bus,
		modules: make(map[string]*managedModule),
		quit:    make(chan struct{}),
		exit:    os.Exit,
	}

	if _, err := bus.Subscribe(eventbus.TopicShutdown, m.onShutdownEvent); err != nil {
		return nil, fmt.Errorf("subscribe shutdown topic: %w", err)
	}

	return m, nil
}

// Bus returns the event bus the manager listens on.
func (m *Manager) Bus() *eventbus.Bus {
	return m.bus
}

// Register adds a module to the registry at StateNotStarted.
// Names are unique; a duplicate fails and leaves the registry unchanged.
func (m *Manager) Register(name string, instance module.Module, priority int) error {
	return m.register(name, instance, priority, false)
}

// RegisterDisplay registers a render-driving module. At most one module may
// drive the per-tick loop; a second display registration fails.
func (m *Manager) RegisterDisplay(name string, instance module.Renderer, priority int) error {
	return m.register(name, instance, priority, true)
}

func (m *Manager) register(name string, instance module.Module, priority int, display bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.modules[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateModule, name)
	}
	if display && m.display != nil {
		return fmt.Errorf("%w: %q", ErrDisplayAlreadyRegistered, m.display.name)
	}

	mm := &managedModule{
		name:     name,
		instance: instance,
		priority: priority,
		seq:      m.nextSeq,
		state:    module.StateNotStarted,
	}
	m.nextSeq++
	m.modules[name] = mm
	if display {
		m.display = mm
	}

	m.logger.Info("module registered",
		log.String("module", name),
		log.Int("priority", priority),
		log.Bool("display", display),
	)

	return nil
}

// Status returns a snapshot of every module's state. It never blocks on
// lifecycle operations running on other goroutines.
func (m *Manager) Status() map[string]module.State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]module.State, len(m.modules))
	for name, mm := range m.modules {
		status[name] = mm.state
	}
	return status
}

// IsShuttingDown reports whether a shutdown pass has begun. It stays true
// from the start of the first Shutdown call through process exit.
func (m *Manager) IsShuttingDown() bool {
	return m.shuttingDown.Load()
}

// onShutdownEvent handles eventbus.TopicShutdown. It only records the
// request; doing any real work here would run on the publisher's goroutine
// and could re-enter the manager's locks.
func (m *Manager) onShutdownEvent(payload interface{}) error {
	reason := "shutdown event"
	switch ev := payload.(type) {
	case eventbus.ShutdownEvent:
		if ev.Reason != "" {
			reason = ev.Reason
		}
	case *eventbus.ShutdownEvent:
		if ev != nil && ev.Reason != "" {
			reason = ev.Reason
		}
	}
	m.requestShutdown(reason)
	return nil
}

// requestShutdown records the shutdown request. Safe to call any number of
// times from any goroutine; only the first caller's reason is kept.
func (m *Manager) requestShutdown(reason string) {
	m.quitOnce.Do(func() {
		m.reason.Store(reason)
		close(m.quit)
	})
}

// shutdownReason returns the recorded request reason, if any.
func (m *Manager) shutdownReason() string {
	if r, ok := m.reason.Load().(string); ok {
		return r
	}
	return "unknown"
}

// setState updates a module's lifecycle state under the registry lock.
func (m *Manager) setState(mm *managedModule, s module.State) {
	m.mu.Lock()
	mm.state = s
	m.mu.Unlock()
}

// byPriority returns a snapshot of the registry stably sorted by priority.
// Descending order is used for startup (highest first), ascending for
// shutdown (lowest first). Registration order breaks ties.
func (m *Manager) byPriority(descending bool) []*managedModule {
	m.mu.RLock()
	mods := make([]*managedModule, 0, len(m.modules))
	for _, mm := range m.modules {
		mods = append(mods, mm)
	}
	m.mu.RUnlock()

	sort.SliceStable(mods, func(i, j int) bool {
		if mods[i].priority != mods[j].priority {
			if descending {
				return mods[i].priority > mods[j].priority
			}
			return mods[i].priority < mods[j].priority
		}
		return mods[i].seq < mods[j].seq
	})

	return mods
}
