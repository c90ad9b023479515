package engine

import (
	"context"
	"time"

	"github.com/oshokin/ice-station/internal/alert"
	"github.com/oshokin/ice-station/internal/domain/alarm"
	"github.com/oshokin/ice-station/internal/domain/event"
	"github.com/oshokin/ice-station/internal/signaling"
)

// Status is a point in time view of the session.
type Status struct {
	// State is the effective arm state.
	State alarm.State `json:"state"`
	// PendingArm is the arm value awaiting hub confirmation, if any.
	PendingArm *bool `json:"pendingArm,omitempty"`
	// ChangedAt is when the arm mode last changed.
	ChangedAt time.Time `json:"changedAt"`
	// HubConnected is the link state of the liveness monitor.
	HubConnected bool `json:"hubConnected"`
	// LastHeartbeat is the instant of the latest snapshot.
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	// LastEventID is the id of the last handled event.
	LastEventID string `json:"lastEventID,omitempty"`
	// Camera is the camera session state.
	Camera signaling.State `json:"camera"`
	// Clients lists member names per client type.
	Clients map[event.ClientType][]string `json:"clients"`
	// ZeroClient reports the zero-client condition.
	ZeroClient bool `json:"zeroClient"`
	// Alerts lists the live alert sessions.
	Alerts []alert.Session `json:"alerts"`
	// SoundEnabled is the audible alert setting.
	SoundEnabled bool `json:"soundEnabled"`
}

// Status returns the current session view.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	var st Status

	err := e.call(ctx, func(time.Time) error {
		st = e.snapshot()
		return nil
	})

	return st, err
}

// snapshot builds the status inside the loop.
func (e *Engine) snapshot() Status {
	mode := e.machine.Mode()

	st := Status{
		State:         e.machine.State(),
		ChangedAt:     mode.ChangedAt,
		HubConnected:  e.monitor.Connected(),
		LastHeartbeat: e.monitor.LastHeartbeat(),
		LastEventID:   e.lastEventID,
		Camera:        e.camera,
		Clients:       make(map[event.ClientType][]string, len(event.ClientTypes)),
		ZeroClient:    e.monitor.ZeroClient(),
		Alerts:        e.presenter.Sessions(),
		SoundEnabled:  e.soundEnabled,
	}

	if armed, ok := e.machine.Pending(); ok {
		st.PendingArm = &armed
	}

	for _, t := range event.ClientTypes {
		st.Clients[t] = e.roster.Names(t)
	}

	return st
}
