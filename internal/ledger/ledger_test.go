package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ice-station/internal/domain/event"
)

const window = 10 * time.Second

// TestDuplicateInbound checks id based deduplication.
func TestDuplicateInbound(t *testing.T) {
	t.Parallel()

	l := New(window, 0)
	require.False(t, l.IsDuplicateInbound("a"))

	l.MarkSeen("a")
	require.True(t, l.IsDuplicateInbound("a"))
	require.False(t, l.IsDuplicateInbound("b"))

	// Empty ids belong to nothing.
	l.MarkSeen("")
	require.False(t, l.IsDuplicateInbound(""))
}

// TestSeenCapacityEvictsOldest ensures the id set stays bounded.
func TestSeenCapacityEvictsOldest(t *testing.T) {
	t.Parallel()

	l := New(window, 2)
	l.MarkSeen("a")
	l.MarkSeen("b")
	l.MarkSeen("c")

	require.False(t, l.IsDuplicateInbound("a"))
	require.True(t, l.IsDuplicateInbound("c"))
}

// TestSuppressionWindow covers the W boundary: inside suppresses, exactly W does not.
func TestSuppressionWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(window, 0)

	l.RecordReceived(event.Event{ID: "m1", Type: event.TypeONVIF, Name: event.NameMotion}, start)
	require.True(t, l.IsDuplicateInbound("m1"))

	require.True(t, l.IsSuppressed(event.TypeONVIF, event.NameMotion, start.Add(3*time.Second)))
	require.True(t, l.IsSuppressed(event.TypeONVIF, AnyName, start.Add(3*time.Second)))
	require.False(t, l.IsSuppressed(event.TypeONVIF, "tamper", start.Add(3*time.Second)))
	require.False(t, l.IsSuppressed(event.TypeUser, AnyName, start.Add(3*time.Second)))

	require.True(t, l.IsSuppressed(event.TypeONVIF, event.NameMotion, start.Add(window-time.Nanosecond)))
	require.False(t, l.IsSuppressed(event.TypeONVIF, event.NameMotion, start.Add(window)))
	require.False(t, l.IsSuppressed(event.TypeONVIF, event.NameMotion, start.Add(window+time.Millisecond)))
}

// TestRecordUsesEventTimestamp dates records by the event, not by its arrival.
func TestRecordUsesEventTimestamp(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := New(window, 0)

	// A replayed event from an hour ago does not open a window.
	l.RecordReceived(event.Event{ID: "old", Type: event.TypeONVIF, Name: event.NameMotion, Timestamp: now.Add(-time.Hour)}, now)
	require.True(t, l.IsDuplicateInbound("old"))
	require.False(t, l.IsSuppressed(event.TypeONVIF, event.NameMotion, now.Add(time.Second)))

	// An event stamped 4s ago only suppresses for the rest of its window.
	l.RecordReceived(event.Event{ID: "recent", Type: event.TypeONVIF, Name: event.NameMotion, Timestamp: now.Add(-4 * time.Second)}, now)
	require.True(t, l.IsSuppressed(event.TypeONVIF, event.NameMotion, now.Add(5*time.Second)))
	require.False(t, l.IsSuppressed(event.TypeONVIF, event.NameMotion, now.Add(6*time.Second)))

	// A clock ahead of ours falls back to the arrival time.
	l.RecordReceived(event.Event{ID: "ahead", Type: event.TypeUser, Name: event.NameKill, Timestamp: now.Add(time.Hour)}, now)
	require.True(t, l.IsSuppressed(event.TypeUser, event.NameKill, now.Add(window-time.Nanosecond)))
	require.False(t, l.IsSuppressed(event.TypeUser, event.NameKill, now.Add(window)))

	l.Prune(now.Add(window))
	require.Zero(t, l.Received())
}

// TestOwnEmissionAndPrune verifies own commands are recognised until they age out.
func TestOwnEmissionAndPrune(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(window, 0)

	l.RecordEmitted("cmd-1", event.NameKill, start)
	l.RecordReceived(event.Event{ID: "e1", Type: event.TypeClient, Name: event.NameDisconnected}, start.Add(5*time.Second))

	require.True(t, l.IsOwnEmission("cmd-1"))
	require.False(t, l.IsOwnEmission("cmd-2"))

	l.Prune(start.Add(window))
	require.False(t, l.IsOwnEmission("cmd-1"))
	require.Equal(t, 0, l.Emitted())
	require.Equal(t, 1, l.Received())

	l.Prune(start.Add(window + 5*time.Second))
	require.Equal(t, 0, l.Received())

	// Pruning never forgets ids for deduplication.
	require.True(t, l.IsDuplicateInbound("e1"))
}
