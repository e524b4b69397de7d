package eventbus

// Well-known topics used by the system core and its built-in modules.
// Application modules are free to define their own topics; only
// TopicShutdown carries meaning for the manager itself.
const (
	// TopicShutdown requests a system shutdown. Payload: ShutdownEvent.
	// The system manager subscribes to this topic; any module may publish
	// to it to bring the whole application down.
	TopicShutdown = "system.shutdown"

	// TopicConfigChanged announces a configuration file change.
	// Published by the configwatcher module.
	TopicConfigChanged = "system.config.changed"

	// TopicHeartbeat carries periodic liveness events.
	// Published by the heartbeat module.
	TopicHeartbeat = "system.heartbeat"
)

// ShutdownEvent is the payload published on TopicShutdown. It is immutable;
// publishers create a new value per shutdown decision. The manager tolerates
// receiving it multiple times, including concurrently.
type ShutdownEvent struct {
	// Reason describes why shutdown was requested, for logging.
	Reason string
}
