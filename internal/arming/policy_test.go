package arming

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ice-station/internal/domain/alarm"
	"github.com/oshokin/ice-station/internal/domain/event"
	"github.com/oshokin/ice-station/internal/ledger"
)

func motion() event.Event {
	return event.Event{ID: "m", Type: event.TypeONVIF, Name: event.NameMotion, Source: event.SourceHub}
}

func command(name string) event.Event {
	return event.Event{
		ID:     "u",
		Type:   event.TypeUser,
		Name:   name,
		Source: event.SourceHTML,
		Data:   map[string]any{event.DataKillMode: "lock"},
	}
}

func clientNotice(name string) event.Event {
	return event.Event{
		ID:     "c",
		Type:   event.TypeClient,
		Name:   name,
		Source: event.SourceHub,
		Data:   map[string]any{event.DataClient: map[string]any{"name": "garage-pc"}},
	}
}

// TestDecideDisarmed verifies that nothing alerts while disarmed.
func TestDecideDisarmed(t *testing.T) {
	t.Parallel()

	d := Decide(alarm.Disarmed, motion(), Inputs{})
	require.Equal(t, Ignore, d.Verdict)
	require.Equal(t, "IGNORED_ONVIF: Motion ignored.", d.Message)
	require.False(t, d.Record)

	d = Decide(alarm.Disarmed, command(event.NameKill), Inputs{})
	require.Equal(t, Ignore, d.Verdict)
	require.Equal(t, "IGNORED_USER: User broadcasted event 'KILL' with mode 'LOCK' ignored.", d.Message)

	d = Decide(alarm.Disarmed, command(event.NameKill), Inputs{OwnEmission: true})
	require.Equal(t, Drop, d.Verdict)

	d = Decide(alarm.Disarmed, clientNotice(event.NameConnected), Inputs{})
	require.Equal(t, Log, d.Verdict)
	require.Equal(t, "CLIENT: Client 'garage-pc' connected.", d.Message)

	d = Decide(alarm.Disarmed, clientNotice(event.NameDisconnected), Inputs{})
	require.Equal(t, Ignore, d.Verdict)
	require.Equal(t, "IGNORED_CLIENT: Client 'garage-pc' disconnected.", d.Message)
}

// TestDecideArmed covers the full policy.
func TestDecideArmed(t *testing.T) {
	t.Parallel()

	d := Decide(alarm.Armed, motion(), Inputs{})
	require.Equal(t, Alert, d.Verdict)
	require.True(t, d.Record)
	require.True(t, d.Audible)
	require.Equal(t, "ONVIF: Motion Detected!", d.Message)
	require.Equal(t, "MOTION DETECTED!", d.Banner)

	d = Decide(alarm.Armed, motion(), Inputs{Suppressed: true})
	require.Equal(t, Suppress, d.Verdict)

	d = Decide(alarm.Armed, command(event.NameKill), Inputs{})
	require.Equal(t, Alert, d.Verdict)
	require.Equal(t, "KILL (LOCK) BROADCASTED!", d.Banner)

	d = Decide(alarm.Armed, command(event.NameRecover), Inputs{OwnEmission: true})
	require.Equal(t, Drop, d.Verdict)

	d = Decide(alarm.Armed, command(event.NameIgnore), Inputs{OwnEmission: true})
	require.Equal(t, Clear, d.Verdict)
	require.Empty(t, d.Message)

	d = Decide(alarm.Armed, command(event.NameIgnore), Inputs{})
	require.Equal(t, Clear, d.Verdict)
	require.Equal(t, "USER: User broadcasted event 'IGNORE'.", d.Message)

	d = Decide(alarm.Armed, clientNotice(event.NameConnected), Inputs{})
	require.Equal(t, Log, d.Verdict)

	d = Decide(alarm.Armed, clientNotice(event.NameDisconnected), Inputs{})
	require.Equal(t, Alert, d.Verdict)
	require.Equal(t, "CLIENT 'garage-pc' DISCONNECTED!", d.Banner)
	require.False(t, d.Audible)

	// Hub ignored events are never alerted unless standalone.
	d = Decide(alarm.Armed, motion(), Inputs{HubIgnored: true})
	require.Equal(t, Ignore, d.Verdict)
}

// TestDecideStandalone ensures remote commands are only logged while local sensors still alert.
func TestDecideStandalone(t *testing.T) {
	t.Parallel()

	d := Decide(alarm.ArmedStandalone, motion(), Inputs{HubIgnored: true})
	require.Equal(t, Alert, d.Verdict)

	d = Decide(alarm.ArmedStandalone, command(event.NameKill), Inputs{})
	require.Equal(t, Log, d.Verdict)
	require.True(t, d.Priority)

	d = Decide(alarm.ArmedStandalone, command(event.NameIgnore), Inputs{})
	require.Equal(t, Log, d.Verdict)

	d = Decide(alarm.ArmedStandalone, clientNotice(event.NameDisconnected), Inputs{})
	require.Equal(t, Alert, d.Verdict)
}

// TestDecideInternal checks synthetic events alert only while armed.
func TestDecideInternal(t *testing.T) {
	t.Parallel()

	lost := event.Event{Type: event.TypeConnection, Name: event.NameDisconnected, Source: event.SourceSelf}

	d := Decide(alarm.Armed, lost, Inputs{})
	require.Equal(t, Alert, d.Verdict)
	require.Equal(t, "CONNECTION LOST!", d.Banner)

	d = Decide(alarm.ArmedStandalone, lost, Inputs{})
	require.Equal(t, Alert, d.Verdict)
	require.Equal(t, "CONNECTION LOST!", d.Banner)
	require.True(t, d.Priority)

	d = Decide(alarm.Disarmed, lost, Inputs{})
	require.Equal(t, Log, d.Verdict)
	require.True(t, d.Record)

	d = Decide(alarm.Armed, lost, Inputs{Suppressed: true})
	require.Equal(t, Suppress, d.Verdict)

	zero := event.Event{
		Type:   event.TypeClient,
		Name:   event.NameZeroClient,
		Source: event.SourceSelf,
		Data:   map[string]any{"pc": 0, "ha": 1, "html": 2},
	}

	d = Decide(alarm.Armed, zero, Inputs{})
	require.Equal(t, Alert, d.Verdict)
	require.Equal(t, "CLIENT: Zero client detected: PC: 0, HA: 1, HTML: 2", d.Message)

	d = Decide(alarm.ArmedStandalone, zero, Inputs{})
	require.Equal(t, Alert, d.Verdict)
	require.Equal(t, "ZERO CLIENT DETECTED!", d.Banner)
}

// TestSuppressionKey verifies which kinds are window suppressed.
func TestSuppressionKey(t *testing.T) {
	t.Parallel()

	typ, name, ok := SuppressionKey(motion())
	require.True(t, ok)
	require.Equal(t, event.TypeONVIF, typ)
	require.Equal(t, event.NameMotion, name)

	typ, name, ok = SuppressionKey(event.Event{Type: event.TypeConnection, Name: event.NameDisconnected, Source: event.SourceSelf})
	require.True(t, ok)
	require.Equal(t, event.TypeConnection, typ)
	require.Equal(t, ledger.AnyName, name)

	_, _, ok = SuppressionKey(command(event.NameKill))
	require.False(t, ok)

	_, _, ok = SuppressionKey(clientNotice(event.NameDisconnected))
	require.False(t, ok)
}
