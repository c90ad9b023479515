package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/ice-station/internal/arming"
	"github.com/oshokin/ice-station/internal/domain/event"
	"github.com/oshokin/ice-station/internal/hub"
	"github.com/oshokin/ice-station/internal/logger"
)

// ErrHubUnavailable rejects commands that need the hub while the channel is down.
var ErrHubUnavailable = errors.New("hub is not connected")

// Arm asks the hub to arm. The state changes when a snapshot confirms it.
func (e *Engine) Arm(ctx context.Context) error {
	return e.requestArm(ctx, true)
}

// Disarm asks the hub to disarm. The state changes when a snapshot confirms it.
func (e *Engine) Disarm(ctx context.Context) error {
	return e.requestArm(ctx, false)
}

// ArmStandalone switches the local standalone mode on.
func (e *Engine) ArmStandalone(ctx context.Context) error {
	return e.setStandalone(ctx, true)
}

// DisarmStandalone switches the local standalone mode off.
func (e *Engine) DisarmStandalone(ctx context.Context) error {
	return e.setStandalone(ctx, false)
}

// Kill broadcasts a kill command with the given mode.
func (e *Engine) Kill(ctx context.Context, mode string) error {
	return e.command(ctx, event.NameKill, map[string]any{event.DataKillMode: strings.TrimSpace(mode)})
}

// Ignore silences the active alerts: through the hub while armed, locally while standalone.
func (e *Engine) Ignore(ctx context.Context) error {
	return e.command(ctx, event.NameIgnore, nil)
}

// Recover broadcasts a recover command.
func (e *Engine) Recover(ctx context.Context) error {
	return e.command(ctx, event.NameRecover, nil)
}

// ClearLog empties the journal.
func (e *Engine) ClearLog(ctx context.Context) error {
	return e.call(ctx, func(time.Time) error {
		e.deps.Journal.Clear()
		logger.Info(ctx, "Journal cleared")

		return nil
	})
}

// requestArm sends set_armed and remembers the request.
func (e *Engine) requestArm(ctx context.Context, armed bool) error {
	return e.call(ctx, func(now time.Time) error {
		if !e.channelUp {
			return ErrHubUnavailable
		}

		if err := e.machine.RequestArm(armed); err != nil {
			e.rejected(ctx, armCommand(armed), err)
			return err
		}

		logger.InfoKV(ctx, "Arm state requested", "armed", armed)

		return e.apply(ctx, now, []Effect{Send{Type: hub.MsgSetArmed, Payload: hub.SetArmed{Armed: armed}}})
	})
}

// armCommand names an arm request for metrics and logs.
func armCommand(armed bool) string {
	if armed {
		return "arm"
	}

	return "disarm"
}

// setStandalone toggles standalone mode without a hub round trip.
func (e *Engine) setStandalone(ctx context.Context, on bool) error {
	return e.call(ctx, func(now time.Time) error {
		tr, err := e.machine.SetStandalone(on, now)
		if err != nil {
			e.rejected(ctx, "standalone", err)
			return err
		}

		return e.apply(ctx, now, e.transition(ctx, tr))
	})
}

// command validates a user command against the state and routes it.
func (e *Engine) command(ctx context.Context, name string, data map[string]any) error {
	return e.call(ctx, func(now time.Time) error {
		route, err := e.machine.RouteCommand(name, data)
		if err != nil {
			e.rejected(ctx, name, err)
			return err
		}

		if route == arming.RouteLocal {
			logger.InfoKV(ctx, "Alerts silenced locally", "command", name)

			return e.apply(ctx, now, []Effect{ClearAll{}, Log{Message: "USER: Alerts silenced locally."}})
		}

		if !e.channelUp {
			e.rejected(ctx, name, ErrHubUnavailable)
			return ErrHubUnavailable
		}

		ev := event.NewCommand(name, data, now)
		e.ledger.RecordEmitted(ev.ID, ev.Name, now)

		logger.InfoKV(ctx, "Broadcasting command", "event_id", ev.ID, "event", ev.Name)

		return e.apply(ctx, now, []Effect{
			Send{Type: hub.MsgEvent, Payload: ev},
			Log{Message: ownLine(ev)},
		})
	})
}

// rejected records a command refused at the boundary.
func (e *Engine) rejected(ctx context.Context, name string, err error) {
	if m := e.deps.Metrics; m != nil {
		m.CommandsRejected.WithLabelValues(name).Inc()
	}

	logger.InfoKV(ctx, "Command rejected", "command", name, "error", err)
}

// ownLine renders the journal line of a command sent by this station.
func ownLine(ev event.Event) string {
	if ev.Name == event.NameKill {
		return fmt.Sprintf("USER: Broadcasted event '%s' with mode '%s'.",
			strings.ToUpper(ev.Name), strings.ToUpper(ev.KillMode()))
	}

	return fmt.Sprintf("USER: Broadcasted event '%s'.", strings.ToUpper(ev.Name))
}
