package alert

import (
	"context"
	"time"

	"github.com/oshokin/ice-station/internal/logger"
	"github.com/oshokin/ice-station/internal/timer"
)

// Session kinds.
const (
	KindFlash   timer.Kind = "flash"
	KindOverlay timer.Kind = "overlay"
	KindSound   timer.Kind = "sound"
)

// kinds lists session kinds in render order.
//
//nolint:gochecknoglobals // Read-only lookup table.
var kinds = []timer.Kind{KindFlash, KindOverlay, KindSound}

// Output renders alert sessions.
type Output interface {
	// ShowFlash starts the screen flash.
	ShowFlash(ctx context.Context)
	// HideFlash stops the screen flash.
	HideFlash(ctx context.Context)
	// ShowOverlay displays the overlay text.
	ShowOverlay(ctx context.Context, message string)
	// HideOverlay removes the overlay text.
	HideOverlay(ctx context.Context)
	// StartSound starts the audio loop.
	StartSound(ctx context.Context)
	// StopSound stops the audio loop.
	StopSound(ctx context.Context)
}

// Session is one live alert modality.
type Session struct {
	// Tag is the source tag of the event that raised the session.
	Tag string `json:"tag"`
	// Kind is flash, overlay or sound.
	Kind timer.Kind `json:"kind"`
	// Message is the overlay text; empty for other kinds.
	Message string `json:"message,omitempty"`
	// ExpiresAt is when the session ends on its own.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Presenter owns the alert sessions. It is driven by the engine loop and is
// not safe for concurrent use.
type Presenter struct {
	// out renders the sessions.
	out Output
	// timers holds one expiry timer per kind.
	timers *timer.Group
	// window is the lifetime of a session.
	window time.Duration
	// soundEnabled allows audible alerts.
	soundEnabled bool
	// sessions holds the live session per kind.
	sessions map[timer.Kind]Session
}

// NewPresenter creates a presenter whose sessions expire after window.
// Expired timers are delivered through post and must be passed back to HandleTimer.
func NewPresenter(out Output, window time.Duration, soundEnabled bool, post func(timer.Fired)) *Presenter {
	return &Presenter{
		out:          out,
		timers:       timer.NewGroup(post),
		window:       window,
		soundEnabled: soundEnabled,
		sessions:     make(map[timer.Kind]Session, len(kinds)),
	}
}

// Raise restarts the flash and the overlay for tag and starts the audio loop
// when audible and enabled. A running audio loop is left as is.
func (p *Presenter) Raise(ctx context.Context, now time.Time, tag, message string, audible bool) {
	expiresAt := now.Add(p.window)

	p.timers.Start(KindFlash, tag, p.window)
	p.sessions[KindFlash] = Session{Tag: tag, Kind: KindFlash, ExpiresAt: expiresAt}
	p.out.ShowFlash(ctx)

	p.timers.Start(KindOverlay, tag, p.window)
	p.sessions[KindOverlay] = Session{Tag: tag, Kind: KindOverlay, Message: message, ExpiresAt: expiresAt}
	p.out.ShowOverlay(ctx, message)

	if !audible || !p.soundEnabled {
		return
	}

	if _, playing := p.timers.Pending(KindSound); playing {
		logger.DebugKV(ctx, "Sound already playing", "tag", tag)
		return
	}

	p.timers.Start(KindSound, tag, p.window)
	p.sessions[KindSound] = Session{Tag: tag, Kind: KindSound, ExpiresAt: expiresAt}
	p.out.StartSound(ctx)
}

// Clear retracts every session unconditionally.
func (p *Presenter) Clear(ctx context.Context) {
	for _, kind := range kinds {
		if _, ok := p.sessions[kind]; ok {
			p.timers.CancelKind(kind)
			p.end(ctx, kind)
		}
	}
}

// ClearTagged retracts the sessions raised by tag. Sessions of another tag
// stay until their own expiry. It reports whether anything was retracted.
func (p *Presenter) ClearTagged(ctx context.Context, tag string) bool {
	cleared := false

	for _, kind := range kinds {
		s, ok := p.sessions[kind]
		if !ok {
			continue
		}

		if s.Tag != tag {
			logger.DebugKV(ctx, "Alert clear ignored", "kind", kind, "active_tag", s.Tag, "tag", tag)
			continue
		}

		p.timers.Cancel(kind, tag)
		p.end(ctx, kind)

		cleared = true
	}

	return cleared
}

// HandleTimer ends the session of an expired timer.
// Stale fires of a canceled or restarted session are ignored.
func (p *Presenter) HandleTimer(ctx context.Context, f timer.Fired) bool {
	if !p.timers.Handle(f) {
		logger.DebugKV(ctx, "Stale alert timer", "kind", f.Kind, "tag", f.Tag)
		return false
	}

	p.end(ctx, f.Kind)

	return true
}

// SetSoundEnabled toggles audible alerts; disabling stops a running audio loop.
func (p *Presenter) SetSoundEnabled(ctx context.Context, enabled bool) {
	p.soundEnabled = enabled

	if !enabled {
		if _, ok := p.sessions[KindSound]; ok {
			p.timers.CancelKind(KindSound)
			p.end(ctx, KindSound)
		}
	}
}

// Active reports whether any session is live.
func (p *Presenter) Active() bool {
	return len(p.sessions) > 0
}

// Sessions returns the live sessions in render order.
func (p *Presenter) Sessions() []Session {
	result := make([]Session, 0, len(p.sessions))

	for _, kind := range kinds {
		if s, ok := p.sessions[kind]; ok {
			result = append(result, s)
		}
	}

	return result
}

// Stop cancels every timer without rendering.
func (p *Presenter) Stop() {
	p.timers.Stop()
}

// end removes the session of kind and hides it.
func (p *Presenter) end(ctx context.Context, kind timer.Kind) {
	delete(p.sessions, kind)

	switch kind {
	case KindFlash:
		p.out.HideFlash(ctx)
	case KindOverlay:
		p.out.HideOverlay(ctx)
	case KindSound:
		p.out.StopSound(ctx)
	}
}
