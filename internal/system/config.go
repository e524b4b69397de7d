package system

import (
	"fmt"
	"time"
)

// ExitShutdownFailed is the process exit code used when a graceful shutdown
// fails and the manager escalates to forced termination.
const ExitShutdownFailed = 3

// Config holds the manager's own tunables. Module behavior is not
// configured here; modules arrive fully constructed.
type Config struct {
	// GracePeriod is how long to wait before forced process exit after a
	// failed shutdown, so buffered log output can flush.
	GracePeriod time.Duration

	// StopTimeout is the advisory timeout passed to every Module.Stop
	// call. The manager does not enforce it on modules that ignore it.
	StopTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		GracePeriod: 2 * time.Second,
		StopTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration for errors. Both durations must be
// strictly positive; a bad value is a construction-time error, never a
// runtime one.
func (c Config) Validate() error {
	if c.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive, got %v", c.GracePeriod)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout must be positive, got %v", c.StopTimeout)
	}
	return nil
}
