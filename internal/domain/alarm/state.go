package alarm

import (
	"fmt"
	"time"
)

// State is the effective arm state of a station.
type State int

// Arm states.
const (
	// Disarmed is the initial state: events are logged as ignored.
	Disarmed State = iota
	// Armed is confirmed by the hub snapshot.
	Armed
	// ArmedStandalone is a purely local armed state that trusts only local sensors.
	ArmedStandalone
)

// String returns the wire and log name of the state.
func (s State) String() string {
	switch s {
	case Disarmed:
		return "disarmed"
	case Armed:
		return "armed"
	case ArmedStandalone:
		return "armed_standalone"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name for JSON status documents.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode holds the two flags the effective state is derived from.
type Mode struct {
	// ChangedAt is when either flag last changed.
	ChangedAt time.Time
	// HubArmed mirrors isArmed of the latest hub snapshot.
	HubArmed bool
	// Standalone is the local standalone toggle.
	Standalone bool
}

// State derives the effective state. Armed wins over standalone.
func (m *Mode) State() State {
	switch {
	case m.HubArmed:
		return Armed
	case m.Standalone:
		return ArmedStandalone
	default:
		return Disarmed
	}
}

// Normalize forces standalone off while the hub reports armed and reports
// whether anything changed.
func (m *Mode) Normalize() bool {
	if m.HubArmed && m.Standalone {
		m.Standalone = false

		return true
	}

	return false
}

// Clone returns a copy of the mode to avoid leaking internal references.
func (m *Mode) Clone() *Mode {
	if m == nil {
		return nil
	}

	cloned := *m

	return &cloned
}
