package sensor

// State is the session lifecycle state. It is owned exclusively by the
// Session and only mutated by Initialize, Shutdown and the availability
// transitions observed inside the acquisition loop.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAvailable
	StateUnavailable
	StateShuttingDown
	StateShutdown
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	case StateShuttingDown:
		return "shutting_down"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// InitStatus is the result of Session.Initialize.
type InitStatus int

const (
	// InitOK means the device opened and reported available.
	InitOK InitStatus = iota
	// InitUnavailable means no sensor was found, or it opened but did
	// not become available within the grace period. Not fatal; the host
	// may show "not connected" and try again later.
	InitUnavailable
	// InitFatal means the native open failed unexpectedly. Callers must
	// not retry automatically.
	InitFatal
)

// ShutdownStatus is the result of Session.Shutdown.
type ShutdownStatus int

const (
	ShutdownOK ShutdownStatus = iota
	// ShutdownNotNeeded means there was no open session to tear down.
	ShutdownNotNeeded
	// ShutdownFatal means the native close failed.
	ShutdownFatal
)

// DeviceStatus is the coarse device health reported to the host.
type DeviceStatus int

const (
	StatusOK DeviceStatus = iota
	StatusNotAvailable
	StatusUndefined
)

// String returns the status string the host displays.
func (d DeviceStatus) String() string {
	switch d {
	case StatusOK:
		return "ok"
	case StatusNotAvailable:
		return "not_available"
	default:
		return "undefined"
	}
}
