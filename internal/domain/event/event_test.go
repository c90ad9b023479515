package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestUnmarshalNaiveTimestamp verifies that zone-less hub timestamps are parsed in local time.
func TestUnmarshalNaiveTimestamp(t *testing.T) {
	t.Parallel()

	raw := `{"id":"a1","type":"onvif","event":"motion","source":"hub",` +
		`"timestamp":"2025-03-01T10:20:30.123456","data":null}`

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	require.Equal(t, "a1", ev.ID)
	require.Equal(t, TypeONVIF, ev.Type)
	require.Equal(t, NameMotion, ev.Name)
	require.Equal(t, SourceHub, ev.Source)
	require.True(t, time.Date(2025, 3, 1, 10, 20, 30, 123456000, time.Local).Equal(ev.Timestamp))
	require.Equal(t, "onvif_motion", ev.Tag())
}

// TestUnmarshalTimestampVariants covers RFC 3339, missing and malformed timestamps.
func TestUnmarshalTimestampVariants(t *testing.T) {
	t.Parallel()

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","timestamp":"2025-03-01T10:20:30Z"}`), &ev))
	require.True(t, time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC).Equal(ev.Timestamp))

	ev = Event{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b"}`), &ev))
	require.True(t, ev.Timestamp.IsZero())

	require.Error(t, json.Unmarshal([]byte(`{"id":"c","timestamp":"yesterday"}`), &ev))
}

// TestDataAccessors reads kill mode and client names from both hub key styles.
func TestDataAccessors(t *testing.T) {
	t.Parallel()

	kill := NewCommand(NameKill, map[string]any{DataKillMode: "shutdown"}, time.Now())
	require.Equal(t, "shutdown", kill.KillMode())
	require.Equal(t, TypeUser, kill.Type)
	require.Equal(t, SourceHTML, kill.Source)
	require.NotEmpty(t, kill.ID)

	client := Event{Data: map[string]any{DataClient: map[string]any{"name": "garage-pc"}}}
	require.Equal(t, "garage-pc", client.ClientName())

	client = Event{Data: map[string]any{DataClient: map[string]any{"clientName": "ha-node"}}}
	require.Equal(t, "ha-node", client.ClientName())

	require.Empty(t, Event{}.ClientName())
	require.Empty(t, Event{}.KillMode())
}

// TestPartition splits a roster by kind and detects empty kinds.
func TestPartition(t *testing.T) {
	t.Parallel()

	r := Partition([]Client{
		{Name: "pc-1", Type: ClientPC},
		{Name: "ha-1", Type: ClientHA},
		{Name: "lobby", Type: ClientHTML},
		{Name: "pc-2", Type: ClientPC},
		{Name: "probe", Type: "test"},
	})

	require.Equal(t, 2, r.Count(ClientPC))
	require.Equal(t, []string{"pc-1", "pc-2"}, r.Names(ClientPC))
	require.False(t, r.HasEmptyType())
	require.Equal(t, "pc-1, pc-2", r.Describe(ClientPC))

	empty := Partition([]Client{{Name: "pc-1", Type: ClientPC}})
	require.True(t, empty.HasEmptyType())
	require.Equal(t, "None", empty.Describe(ClientHA))
	require.False(t, r.Equal(empty))
	require.True(t, r.Equal(Partition([]Client{
		{Name: "pc-1", Type: ClientPC},
		{Name: "pc-2", Type: ClientPC},
		{Name: "ha-1", Type: ClientHA},
		{Name: "lobby", Type: ClientHTML},
	})))
}
