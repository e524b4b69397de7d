// Package configwatcher provides a built-in module that watches
// configuration directories and publishes change events on the system
// event bus, so other modules can react to edits without polling.
package configwatcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/sensord/pkg/eventbus"
	"github.com/bft-labs/sensord/pkg/log"
)

// DefaultDebounce is the delay after a file change before an event is
// published, coalescing editor write bursts into one notification.
const DefaultDebounce = 100 * time.Millisecond

// Stop errors.
var (
	ErrNoDirs      = errors.New("configwatcher: no directories to watch")
	ErrStopTimeout = errors.New("configwatcher: stop timeout")
)

// Event is the payload published on eventbus.TopicConfigChanged.
type Event struct {
	// Path of the file whose change triggered the event. When several
	// files change within the debounce window, the last one wins.
	Path string
}

// Config holds configuration options for the watcher module.
type Config struct {
	// Dirs are the directories to watch. Required.
	Dirs []string

	// Debounce is the delay to wait after a change before publishing.
	// Default: 100 milliseconds.
	Debounce time.Duration
}

// Module watches directories via fsnotify and publishes change events.
type Module struct {
	dirs     []string
	debounce time.Duration
	bus      *eventbus.Bus
	logger   log.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	lastPath string
	done     chan struct{}
}

// New creates a configwatcher module. The logger may be nil.
func New(cfg Config, bus *eventbus.Bus, logger log.Logger) *Module {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Module{
		dirs:     cfg.Dirs,
		debounce: cfg.Debounce,
		bus:      bus,
		logger:   logger,
	}
}

// Start creates the watcher and launches the watch loop. It fails when no
// configured directory can be watched.
func (m *Module) Start() error {
	if len(m.dirs) == 0 {
		return ErrNoDirs
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := 0
	for _, dir := range m.dirs {
		if addErr := watcher.Add(dir); addErr != nil {
			m.logger.Warn("cannot watch directory",
				log.String("dir", dir),
				log.Err(addErr),
			)
			continue
		}
		watched++
	}
	if watched == 0 {
		watcher.Close()
		return ErrNoDirs
	}

	m.mu.Lock()
	m.watcher = watcher
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.loop(watcher, m.done)

	m.logger.Info("config watcher started",
		log.Strings("dirs", m.dirs),
		log.Duration("debounce", m.debounce),
	)
	return nil
}

// Stop closes the watcher and waits up to the advisory timeout for the
// watch loop to exit.
func (m *Module) Stop(timeout time.Duration) error {
	m.mu.Lock()
	watcher := m.watcher
	done := m.done
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.watcher = nil
	m.mu.Unlock()

	if watcher == nil {
		return nil
	}
	if err := watcher.Close(); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

func (m *Module) loop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			m.schedulePublish(filepath.Clean(event.Name))

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("watch error", log.Err(err))
		}
	}
}

// schedulePublish arms (or re-arms) the debounce timer for the given path.
func (m *Module) schedulePublish(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPath = path
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.publishPending)
}

func (m *Module) publishPending() {
	m.mu.Lock()
	path := m.lastPath
	m.timer = nil
	m.mu.Unlock()

	n := m.bus.Publish(eventbus.TopicConfigChanged, Event{Path: path})
	m.logger.Debug("config change published",
		log.String("path", path),
		log.Int("subscribers", n),
	)
}
