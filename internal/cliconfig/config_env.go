package cliconfig

import (
	"os"
	"strings"
)

// ApplyEnvConfig applies configuration from environment variables (SENSORD_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setDuration("grace-period", os.Getenv("SENSORD_GRACE_PERIOD"), &cfg.GracePeriod); err != nil {
		return err
	}
	if err := s.setDuration("stop-timeout", os.Getenv("SENSORD_STOP_TIMEOUT"), &cfg.StopTimeout); err != nil {
		return err
	}
	if err := s.setDuration("heartbeat-interval", os.Getenv("SENSORD_HEARTBEAT_INTERVAL"), &cfg.HeartbeatInterval); err != nil {
		return err
	}

	s.setBoolFromString("heartbeat", os.Getenv("SENSORD_HEARTBEAT"), &cfg.Heartbeat)
	s.setString("log-level", os.Getenv("SENSORD_LOG_LEVEL"), &cfg.LogLevel)

	if dirs := os.Getenv("SENSORD_WATCH_DIRS"); dirs != "" {
		s.setStrings("watch-dir", splitList(dirs), &cfg.WatchDirs)
	}

	return nil
}

// splitList splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
