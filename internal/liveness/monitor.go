package liveness

import (
	"time"

	"github.com/oshokin/ice-station/internal/domain/event"
)

// Change is an edge of a monitored condition.
type Change int

// Condition edges.
const (
	// NoChange means the condition kept its previous value.
	NoChange Change = iota
	// Raised means the alarm condition has just begun.
	Raised
	// Cleared means the alarm condition has just ended.
	Cleared
)

// String returns a log friendly name of the edge.
func (c Change) String() string {
	switch c {
	case Raised:
		return "raised"
	case Cleared:
		return "cleared"
	default:
		return "none"
	}
}

// Monitor tracks heartbeat freshness, channel state and the zero-client condition.
// It is owned by the engine loop and is not safe for concurrent use.
type Monitor struct {
	// lastHeartbeat is the instant of the latest hub snapshot.
	lastHeartbeat time.Time
	// timeout is the maximum heartbeat age of a live link.
	timeout time.Duration
	// channelUp is the connectivity reported by the channel adapter.
	channelUp bool
	// connected is the link state computed by the previous tick.
	connected bool
	// zeroClient is the roster condition computed by the previous evaluation.
	zeroClient bool
}

// New creates a monitor that assumes a live link at start, so a station that
// never hears from the hub reports the loss once the timeout elapses.
func New(timeout time.Duration, now time.Time) *Monitor {
	return &Monitor{
		lastHeartbeat: now,
		timeout:       timeout,
		channelUp:     true,
		connected:     true,
	}
}

// Heartbeat records a hub heartbeat.
func (m *Monitor) Heartbeat(now time.Time) {
	m.lastHeartbeat = now
}

// SetChannel records the connectivity reported by the channel adapter.
func (m *Monitor) SetChannel(up bool) {
	m.channelUp = up
}

// Tick recomputes the link state and returns the edge of the loss condition.
func (m *Monitor) Tick(now time.Time) Change {
	connected := now.Sub(m.lastHeartbeat) < m.timeout && m.channelUp

	defer func() { m.connected = connected }()

	switch {
	case m.connected && !connected:
		return Raised
	case !m.connected && connected:
		return Cleared
	default:
		return NoChange
	}
}

// Connected returns the link state computed by the latest tick.
func (m *Monitor) Connected() bool {
	return m.connected
}

// LastHeartbeat returns the instant of the latest heartbeat.
func (m *Monitor) LastHeartbeat() time.Time {
	return m.lastHeartbeat
}

// EvaluateRoster recomputes the zero-client condition and returns its edge.
func (m *Monitor) EvaluateRoster(armed bool, roster event.Roster) Change {
	zero := armed && roster.HasEmptyType()

	defer func() { m.zeroClient = zero }()

	switch {
	case !m.zeroClient && zero:
		return Raised
	case m.zeroClient && !zero:
		return Cleared
	default:
		return NoChange
	}
}

// ZeroClient reports whether the zero-client condition currently holds.
func (m *Monitor) ZeroClient() bool {
	return m.zeroClient
}
