package engine

import (
	"github.com/oshokin/ice-station/internal/hub"
	"github.com/oshokin/ice-station/internal/signaling"
	"github.com/oshokin/ice-station/internal/timer"
)

// Input is something the loop reacts to.
type Input interface {
	input()
}

// HubMessage is an inbound channel message.
type HubMessage struct {
	// Envelope is the received message.
	Envelope hub.Envelope
}

// ChannelUp reports an established hub channel.
type ChannelUp struct{}

// ChannelDown reports a lost hub channel.
type ChannelDown struct {
	// Err is the cause.
	Err error
}

// Tick is the periodic prune and liveness tick.
type Tick struct{}

// TimerFired is an expired alert timer.
type TimerFired struct {
	// Fired identifies the timer.
	Fired timer.Fired
}

// CameraChanged reports a new camera session state.
type CameraChanged struct {
	// State is the new state.
	State signaling.State
}

// SoundToggled enables or disables audible alerts.
type SoundToggled struct {
	// Enabled is the new setting.
	Enabled bool
}

func (HubMessage) input()    {}
func (ChannelUp) input()     {}
func (ChannelDown) input()   {}
func (Tick) input()          {}
func (TimerFired) input()    {}
func (CameraChanged) input() {}
func (SoundToggled) input()  {}

// Effect is an action produced by Handle and executed by the loop.
type Effect interface {
	effect()
}

// Send writes a message to the hub.
type Send struct {
	// Type is the message name.
	Type hub.MessageType
	// Payload is the message data, nil for none.
	Payload any
}

// Log writes a journal line.
type Log struct {
	// Message is the line.
	Message string
	// Priority marks an alerting line.
	Priority bool
}

// Raise starts an alert.
type Raise struct {
	// Tag is the source tag of the alert.
	Tag string
	// Banner is the overlay text.
	Banner string
	// Audible requests the audio loop.
	Audible bool
}

// ClearAll retracts every alert session.
type ClearAll struct{}

// ClearTagged retracts the alert sessions of one source tag.
type ClearTagged struct {
	// Tag is the source tag.
	Tag string
}

// Expire hands an expired timer to the alert presenter.
type Expire struct {
	// Fired identifies the timer.
	Fired timer.Fired
}

// SetSound changes the audible alert setting of the presenter.
type SetSound struct {
	// Enabled is the new setting.
	Enabled bool
}

func (Send) effect()        {}
func (Log) effect()         {}
func (Raise) effect()       {}
func (ClearAll) effect()    {}
func (ClearTagged) effect() {}
func (Expire) effect()      {}
func (SetSound) effect()    {}
