package engine

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/ice-station/internal/alert"
	"github.com/oshokin/ice-station/internal/arming"
	"github.com/oshokin/ice-station/internal/domain/event"
	"github.com/oshokin/ice-station/internal/hub"
	"github.com/oshokin/ice-station/internal/journal"
	"github.com/oshokin/ice-station/internal/ledger"
	"github.com/oshokin/ice-station/internal/liveness"
	"github.com/oshokin/ice-station/internal/logger"
	"github.com/oshokin/ice-station/internal/metrics"
	"github.com/oshokin/ice-station/internal/signaling"
	"github.com/oshokin/ice-station/internal/timer"
)

// Channel is the outbound side of the hub channel.
type Channel interface {
	// Send frames and writes one message.
	Send(ctx context.Context, typ hub.MessageType, payload any) error
}

// HealthReporter receives link and camera connectivity edges.
type HealthReporter interface {
	// SetHubLive is called when the hub link becomes live or is lost.
	SetHubLive(live bool)
	// SetCameraLive is called when the camera session connects or drops.
	SetCameraLive(live bool)
}

// Settings are the tunables of a session.
type Settings struct {
	// ClientName is announced in the handshake.
	ClientName string
	// ClientType is announced in the handshake.
	ClientType event.ClientType
	// Window is the suppression window and the alert lifetime.
	Window time.Duration
	// TickInterval is the period of the prune and liveness tick.
	TickInterval time.Duration
	// HeartbeatTimeout is the maximum heartbeat age of a live link.
	HeartbeatTimeout time.Duration
	// SoundEnabled allows the audio loop.
	SoundEnabled bool
	// SeenCapacity bounds the remembered event ids.
	SeenCapacity int
}

// Deps are the collaborators of the engine.
type Deps struct {
	// Channel sends to the hub.
	Channel Channel
	// Inbound delivers hub connectivity and messages in arrival order.
	Inbound <-chan hub.Inbound
	// Output renders alerts.
	Output alert.Output
	// Journal receives the on-screen log lines.
	Journal *journal.Journal
	// Metrics is optional.
	Metrics *metrics.Metrics
	// Health is optional.
	Health HealthReporter
}

// ErrStopped is returned by calls made after the loop has exited.
var ErrStopped = errors.New("engine is stopped")

// request is a call from another goroutine executed inside the loop.
type request struct {
	// run is executed by the loop.
	run func(now time.Time) error
	// reply receives the result.
	reply chan error
}

// Engine is the session context and its loop.
type Engine struct {
	// settings are the session tunables.
	settings Settings
	// deps are the collaborators.
	deps Deps

	// machine owns the arm mode.
	machine *arming.Machine
	// ledger filters duplicates and suppresses continuations.
	ledger *ledger.Ledger
	// monitor tracks link liveness and the zero-client condition.
	monitor *liveness.Monitor
	// presenter owns the alert sessions.
	presenter *alert.Presenter
	// roster is the membership of the latest snapshot.
	roster event.Roster
	// lastEventID is the id of the last handled event.
	lastEventID string
	// channelUp mirrors the hub channel state.
	channelUp bool
	// camera is the camera session state.
	camera signaling.State
	// soundEnabled is the audible alert setting.
	soundEnabled bool

	// inputs carries inputs posted from other goroutines.
	inputs chan Input
	// requests carries calls from other goroutines.
	requests chan request
	// stopped is closed when Run returns.
	stopped chan struct{}
}

// inputBuffer is the capacity of the posted input channel.
const inputBuffer = 32

// New creates an engine. The session starts disarmed with a live link assumed.
func New(settings Settings, deps Deps) *Engine {
	now := time.Now()

	e := &Engine{
		settings:     settings,
		deps:         deps,
		machine:      arming.New(now),
		ledger:       ledger.New(settings.Window, settings.SeenCapacity),
		monitor:      liveness.New(settings.HeartbeatTimeout, now),
		camera:       signaling.StateNew,
		soundEnabled: settings.SoundEnabled,
		inputs:       make(chan Input, inputBuffer),
		requests:     make(chan request),
		stopped:      make(chan struct{}),
	}

	e.presenter = alert.NewPresenter(deps.Output, settings.Window, settings.SoundEnabled, func(f timer.Fired) {
		e.Post(TimerFired{Fired: f})
	})

	return e
}

// Run is the event loop. It returns when ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "engine")

	defer close(e.stopped)
	defer e.presenter.Stop()

	ticker := time.NewTicker(e.settings.TickInterval)
	defer ticker.Stop()

	logger.InfoKV(ctx, "Station session started",
		"client_name", e.settings.ClientName,
		"client_type", e.settings.ClientType,
		"window", e.settings.Window.String(),
		"tick", e.settings.TickInterval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case in, ok := <-e.deps.Inbound:
			if !ok {
				e.deps.Inbound = nil
				continue
			}

			e.step(ctx, fromHub(in))
		case <-ticker.C:
			e.step(ctx, Tick{})
		case in := <-e.inputs:
			e.step(ctx, in)
		case req := <-e.requests:
			req.reply <- req.run(time.Now())
		}
	}
}

// Post queues an input for the loop. It never blocks after the loop exits.
func (e *Engine) Post(in Input) {
	select {
	case e.inputs <- in:
	case <-e.stopped:
	}
}

// ReportCamera posts a camera state change.
func (e *Engine) ReportCamera(state signaling.State) {
	e.Post(CameraChanged{State: state})
}

// SetSoundEnabled posts a change of the audible alert setting.
func (e *Engine) SetSoundEnabled(enabled bool) {
	e.Post(SoundToggled{Enabled: enabled})
}

// step handles one input and applies its effects.
func (e *Engine) step(ctx context.Context, in Input) {
	now := time.Now()

	if err := e.apply(ctx, now, e.Handle(ctx, now, in)); err != nil {
		logger.DebugKV(ctx, "Effect failed", "error", err)
	}
}

// call runs fn inside the loop and waits for its result.
func (e *Engine) call(ctx context.Context, fn func(now time.Time) error) error {
	req := request{run: fn, reply: make(chan error, 1)}

	select {
	case e.requests <- req:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// apply executes effects in order and returns the first send error.
func (e *Engine) apply(ctx context.Context, now time.Time, effects []Effect) error {
	var firstErr error

	for _, eff := range effects {
		switch eff := eff.(type) {
		case Send:
			if err := e.deps.Channel.Send(ctx, eff.Type, eff.Payload); err != nil {
				logger.DebugKV(ctx, "Hub send failed", "type", eff.Type, "error", err)

				if firstErr == nil {
					firstErr = err
				}
			}
		case Log:
			e.deps.Journal.Add(ctx, now, eff.Message, eff.Priority)
		case Raise:
			e.presenter.Raise(ctx, now, eff.Tag, eff.Banner, eff.Audible)

			if m := e.deps.Metrics; m != nil {
				m.Alerts.WithLabelValues(eff.Tag).Inc()
			}
		case ClearAll:
			e.presenter.Clear(ctx)
		case ClearTagged:
			e.presenter.ClearTagged(ctx, eff.Tag)
		case Expire:
			e.presenter.HandleTimer(ctx, eff.Fired)
		case SetSound:
			e.presenter.SetSoundEnabled(ctx, eff.Enabled)
		}
	}

	e.observe()

	return firstErr
}

// observe refreshes the state gauges.
func (e *Engine) observe() {
	m := e.deps.Metrics
	if m == nil {
		return
	}

	m.ArmState.Set(float64(e.machine.State()))
	m.HubConnected.Set(metrics.Bool(e.monitor.Connected()))
	m.CameraConnected.Set(metrics.Bool(e.camera == signaling.StateConnected))
}

// fromHub converts a channel item into an input.
func fromHub(in hub.Inbound) Input {
	switch in.Kind {
	case hub.Up:
		return ChannelUp{}
	case hub.Down:
		return ChannelDown{Err: in.Err}
	default:
		return HubMessage{Envelope: in.Envelope}
	}
}
