package arming

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/ice-station/internal/domain/alarm"
	"github.com/oshokin/ice-station/internal/domain/event"
)

var (
	// ErrNotArmed rejects commands that need an armed station.
	ErrNotArmed = errors.New("ICE isn't armed")
	// ErrAlreadyArmed rejects arming and standalone while the hub reports armed.
	ErrAlreadyArmed = errors.New("ICE is armed by the hub")
	// ErrKillModeRequired rejects a kill command without a kill mode.
	ErrKillModeRequired = errors.New("kill mode is required")
	// ErrUnknownCommand rejects command names outside kill, ignore and recover.
	ErrUnknownCommand = errors.New("unknown command")
)

// Route tells where an accepted user command goes.
type Route int

// Command routes.
const (
	// RouteHub sends the command to the hub as a user event.
	RouteHub Route = iota
	// RouteLocal handles the command without the hub (standalone ignore).
	RouteLocal
)

// Transition is a change of the effective state.
type Transition struct {
	// From is the state before the change.
	From alarm.State
	// To is the state after the change.
	To alarm.State
}

// Changed reports whether the effective state moved.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Machine owns the arm mode of one station.
// It is owned by the engine loop and is not safe for concurrent use.
type Machine struct {
	// mode holds the hub-armed and standalone flags.
	mode alarm.Mode
	// pending is the arm value requested from the hub and not yet confirmed.
	pending *bool
}

// New returns a disarmed machine.
func New(now time.Time) *Machine {
	return &Machine{
		mode: alarm.Mode{ChangedAt: now},
	}
}

// State returns the effective state.
func (m *Machine) State() alarm.State {
	return m.mode.State()
}

// Mode returns a copy of the flags.
func (m *Machine) Mode() alarm.Mode {
	return *m.mode.Clone()
}

// Pending returns the requested arm value still awaiting hub confirmation.
func (m *Machine) Pending() (armed, ok bool) {
	if m.pending == nil {
		return false, false
	}

	return *m.pending, true
}

// RequestArm remembers an arm or disarm request. The state is not changed:
// it only follows the next snapshot that reflects the request. A request that
// matches the hub state is rejected.
func (m *Machine) RequestArm(armed bool) error {
	switch {
	case armed && m.mode.HubArmed:
		return ErrAlreadyArmed
	case !armed && !m.mode.HubArmed:
		return ErrNotArmed
	}

	m.pending = &armed

	return nil
}

// ApplySnapshot adopts the hub arm state. Armed wins over standalone.
func (m *Machine) ApplySnapshot(isArmed bool, now time.Time) Transition {
	from := m.State()

	if m.pending != nil && *m.pending == isArmed {
		m.pending = nil
	}

	if m.mode.HubArmed != isArmed {
		m.mode.HubArmed = isArmed
		m.mode.ChangedAt = now
	}

	if m.mode.Normalize() {
		m.mode.ChangedAt = now
	}

	return Transition{From: from, To: m.State()}
}

// SetStandalone toggles the local standalone mode.
func (m *Machine) SetStandalone(on bool, now time.Time) (Transition, error) {
	from := m.State()

	if on && m.mode.HubArmed {
		return Transition{From: from, To: from}, ErrAlreadyArmed
	}

	if m.mode.Standalone != on {
		m.mode.Standalone = on
		m.mode.ChangedAt = now
	}

	return Transition{From: from, To: m.State()}, nil
}

// RouteCommand validates a user command against the current state and tells
// where it must go. Rejected commands produce no channel traffic.
func (m *Machine) RouteCommand(name string, data map[string]any) (Route, error) {
	state := m.State()

	switch name {
	case event.NameKill:
		if state != alarm.Armed {
			return RouteHub, ErrNotArmed
		}

		if mode, _ := data[event.DataKillMode].(string); strings.TrimSpace(mode) == "" {
			return RouteHub, ErrKillModeRequired
		}

		return RouteHub, nil
	case event.NameRecover:
		if state != alarm.Armed {
			return RouteHub, ErrNotArmed
		}

		return RouteHub, nil
	case event.NameIgnore:
		switch state {
		case alarm.Armed:
			return RouteHub, nil
		case alarm.ArmedStandalone:
			return RouteLocal, nil
		default:
			return RouteHub, ErrNotArmed
		}
	default:
		return RouteHub, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}
