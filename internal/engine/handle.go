package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/ice-station/internal/arming"
	"github.com/oshokin/ice-station/internal/domain/alarm"
	"github.com/oshokin/ice-station/internal/domain/event"
	"github.com/oshokin/ice-station/internal/hub"
	"github.com/oshokin/ice-station/internal/liveness"
	"github.com/oshokin/ice-station/internal/logger"
	"github.com/oshokin/ice-station/internal/signaling"
)

// Handle applies one input to the session context and returns the effects to execute.
func (e *Engine) Handle(ctx context.Context, now time.Time, in Input) []Effect {
	switch in := in.(type) {
	case HubMessage:
		return e.handleMessage(ctx, now, in.Envelope)
	case ChannelUp:
		return e.handleChannelUp(ctx)
	case ChannelDown:
		e.channelUp = false
		e.monitor.SetChannel(false)
		logger.WarnKV(ctx, "Hub channel lost", "error", in.Err)

		return nil
	case Tick:
		e.ledger.Prune(now)

		return e.evaluateLink(ctx, now)
	case TimerFired:
		return []Effect{Expire(in)}
	case CameraChanged:
		return e.handleCamera(ctx, in.State)
	case SoundToggled:
		e.soundEnabled = in.Enabled
		logger.InfoKV(ctx, "Sound setting changed", "enabled", in.Enabled)

		return []Effect{SetSound(in)}
	default:
		logger.WarnKV(ctx, "Unknown input", "input", fmt.Sprintf("%T", in))

		return nil
	}
}

// handleMessage dispatches an inbound hub message.
func (e *Engine) handleMessage(ctx context.Context, now time.Time, env hub.Envelope) []Effect {
	switch env.Type {
	case hub.MsgEvent, hub.MsgEventIgnored:
		var msg hub.EventMessage
		if err := env.Decode(&msg); err != nil {
			logger.WarnKV(ctx, "Malformed event dropped", "error", err)
			return nil
		}

		return e.handleEvent(ctx, now, msg.Event, env.Type == hub.MsgEventIgnored)
	case hub.MsgPing:
		return []Effect{Send{Type: hub.MsgGet}}
	case hub.MsgGetResult:
		var snap hub.Snapshot
		if err := env.Decode(&snap); err != nil {
			logger.WarnKV(ctx, "Malformed snapshot dropped", "error", err)
			return nil
		}

		return e.handleSnapshot(ctx, now, snap)
	default:
		logger.DebugKV(ctx, "Unhandled hub message", "type", env.Type)

		return nil
	}
}

// handleEvent acknowledges an inbound event and runs it through the pipeline once.
func (e *Engine) handleEvent(ctx context.Context, now time.Time, ev event.Event, hubIgnored bool) []Effect {
	effects := []Effect{Send{Type: hub.MsgAck, Payload: hub.Ack{ID: ev.ID}}}

	if e.ledger.IsDuplicateInbound(ev.ID) {
		e.countDuplicate(ctx, ev)
		return effects
	}

	e.lastEventID = ev.ID

	return append(effects, e.process(ctx, now, ev, hubIgnored)...)
}

// process applies the acceptance policy of the current state to a new event.
func (e *Engine) process(ctx context.Context, now time.Time, ev event.Event, hubIgnored bool) []Effect {
	in := arming.Inputs{
		HubIgnored:  hubIgnored,
		OwnEmission: e.ledger.IsOwnEmission(ev.ID),
	}

	if typ, name, ok := arming.SuppressionKey(ev); ok {
		in.Suppressed = e.ledger.IsSuppressed(typ, name, now)
	}

	e.ledger.MarkSeen(ev.ID)

	state := e.machine.State()
	d := arming.Decide(state, ev, in)

	if d.Record {
		e.ledger.RecordReceived(ev, now)
	}

	if m := e.deps.Metrics; m != nil {
		m.Events.WithLabelValues(string(ev.Type), d.Verdict.String()).Inc()
	}

	logger.DebugKV(ctx, "Event processed",
		"event_id", ev.ID,
		"type", ev.Type,
		"event", ev.Name,
		"source", ev.Source,
		"state", state,
		"verdict", d.Verdict)

	var effects []Effect

	if d.Message != "" {
		effects = append(effects, Log{Message: d.Message, Priority: d.Priority})
	}

	switch d.Verdict {
	case arming.Alert:
		effects = append(effects, Raise{Tag: ev.Tag(), Banner: d.Banner, Audible: d.Audible})
	case arming.Clear:
		effects = append(effects, ClearAll{})
	case arming.Drop, arming.Suppress, arming.Ignore, arming.Log:
	}

	return effects
}

// handleSnapshot reconciles the session with the authoritative hub snapshot.
func (e *Engine) handleSnapshot(ctx context.Context, now time.Time, snap hub.Snapshot) []Effect {
	e.monitor.Heartbeat(now)

	var effects []Effect

	tr := e.machine.ApplySnapshot(snap.IsArmed, now)
	effects = append(effects, e.transition(ctx, tr)...)

	roster := event.Partition(snap.ClientList)
	if !roster.Equal(e.roster) {
		e.roster = roster
		logger.DebugKV(ctx, "Roster changed",
			"pc", roster.Describe(event.ClientPC),
			"ha", roster.Describe(event.ClientHA),
			"html", roster.Describe(event.ClientHTML))
	}

	effects = append(effects, Send{Type: hub.MsgPong})
	effects = append(effects, e.replay(ctx, now, snap.EventList)...)
	effects = append(effects, e.evaluateRoster(ctx, now)...)

	return append(effects, e.evaluateLink(ctx, now)...)
}

// replay runs unseen snapshot events through the pipeline and re-acks seen ones.
func (e *Engine) replay(ctx context.Context, now time.Time, events []event.Event) []Effect {
	unseen := 0
	counted := make(map[string]struct{}, len(events))

	for _, ev := range events {
		if e.ledger.IsDuplicateInbound(ev.ID) {
			continue
		}

		if ev.ID != "" {
			if _, ok := counted[ev.ID]; ok {
				continue
			}

			counted[ev.ID] = struct{}{}
		}

		unseen++
	}

	var effects []Effect

	if unseen > 0 {
		effects = append(effects, Log{Message: fmt.Sprintf("Detected a delay in processing event: %d events in queue", unseen)})
	}

	for _, ev := range events {
		effects = append(effects, Send{Type: hub.MsgAck, Payload: hub.Ack{ID: ev.ID}})

		if e.ledger.IsDuplicateInbound(ev.ID) {
			continue
		}

		e.lastEventID = ev.ID

		if m := e.deps.Metrics; m != nil {
			m.Replayed.Inc()
		}

		effects = append(effects, e.process(ctx, now, ev, false)...)
	}

	return effects
}

// evaluateLink runs the liveness tick and turns its edges into effects.
func (e *Engine) evaluateLink(ctx context.Context, now time.Time) []Effect {
	switch e.monitor.Tick(now) {
	case liveness.Raised:
		logger.WarnKV(ctx, "Hub link lost", "last_heartbeat", e.monitor.LastHeartbeat())
		e.reportHub(false)

		return e.process(ctx, now, event.NewInternal(event.TypeConnection, event.NameDisconnected, now), false)
	case liveness.Cleared:
		logger.Info(ctx, "Hub link restored")
		e.reportHub(true)

		return []Effect{
			ClearTagged{Tag: event.Tag(event.TypeConnection, event.NameDisconnected)},
			Log{Message: "CONNECTION: Connection to server restored."},
		}
	default:
		return nil
	}
}

// evaluateRoster turns edges of the zero-client condition into effects.
func (e *Engine) evaluateRoster(ctx context.Context, now time.Time) []Effect {
	switch e.monitor.EvaluateRoster(e.machine.State() == alarm.Armed, e.roster) {
	case liveness.Raised:
		ev := event.NewInternal(event.TypeClient, event.NameZeroClient, now)
		ev.Data = map[string]any{
			string(event.ClientPC):   e.roster.Count(event.ClientPC),
			string(event.ClientHA):   e.roster.Count(event.ClientHA),
			string(event.ClientHTML): e.roster.Count(event.ClientHTML),
		}

		return e.process(ctx, now, ev, false)
	case liveness.Cleared:
		return []Effect{ClearTagged{Tag: event.Tag(event.TypeClient, event.NameZeroClient)}}
	default:
		return nil
	}
}

// handleChannelUp introduces the station on a fresh channel and asks for a snapshot.
func (e *Engine) handleChannelUp(ctx context.Context) []Effect {
	e.channelUp = true
	e.monitor.SetChannel(true)

	if m := e.deps.Metrics; m != nil {
		m.HubConnects.Inc()
	}

	logger.InfoKV(ctx, "Introducing station", "last_event_id", e.lastEventID)

	return []Effect{
		Send{Type: hub.MsgIntroduce, Payload: hub.Introduce{
			Name:        e.settings.ClientName,
			Type:        e.settings.ClientType,
			LastEventID: e.lastEventID,
		}},
		Send{Type: hub.MsgGet},
	}
}

// handleCamera records a camera state and logs connectivity edges.
func (e *Engine) handleCamera(ctx context.Context, state signaling.State) []Effect {
	prev := e.camera
	e.camera = state

	if prev == state {
		return nil
	}

	logger.DebugKV(ctx, "Camera state changed", "from", prev, "to", state)

	if e.deps.Health != nil && (prev == signaling.StateConnected || state == signaling.StateConnected) {
		e.deps.Health.SetCameraLive(state == signaling.StateConnected)
	}

	switch {
	case state == signaling.StateConnected:
		return []Effect{Log{Message: "CAMERA: Camera feed connected."}}
	case state.Lost() && !prev.Lost():
		return []Effect{Log{Message: "CAMERA: " + signaling.LostNotice}}
	default:
		return nil
	}
}

// transition turns an arm state change into journal lines and alert retraction.
func (e *Engine) transition(ctx context.Context, tr arming.Transition) []Effect {
	if !tr.Changed() {
		return nil
	}

	logger.InfoKV(ctx, "Arm state changed", "from", tr.From, "to", tr.To)

	var message string

	switch tr.To {
	case alarm.Armed:
		message = "STATE: ICE is armed."
	case alarm.ArmedStandalone:
		message = "STATE: ICE is armed in standalone mode."
	default:
		message = "STATE: ICE is disarmed."
	}

	effects := []Effect{Log{Message: message}}

	if tr.To == alarm.Disarmed {
		effects = append(effects, ClearAll{})
	}

	return effects
}

// countDuplicate records an event absorbed by id.
func (e *Engine) countDuplicate(ctx context.Context, ev event.Event) {
	if m := e.deps.Metrics; m != nil {
		m.Duplicates.Inc()
	}

	logger.DebugKV(ctx, "Duplicate event absorbed", "event_id", ev.ID, "type", ev.Type, "event", ev.Name)
}

// reportHub forwards a hub link edge to the health reporter.
func (e *Engine) reportHub(live bool) {
	if e.deps.Health != nil {
		e.deps.Health.SetHubLive(live)
	}
}
