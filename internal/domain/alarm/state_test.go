package alarm

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestModeState verifies the derived state for every flag combination.
func TestModeState(t *testing.T) {
	t.Parallel()

	require.Equal(t, Disarmed, (&Mode{}).State())
	require.Equal(t, Armed, (&Mode{HubArmed: true}).State())
	require.Equal(t, ArmedStandalone, (&Mode{Standalone: true}).State())
	require.Equal(t, Armed, (&Mode{HubArmed: true, Standalone: true}).State())
}

// TestModeNormalize ensures Armed wins and standalone is forced off.
func TestModeNormalize(t *testing.T) {
	t.Parallel()

	m := &Mode{HubArmed: true, Standalone: true}
	require.True(t, m.Normalize())
	require.False(t, m.Standalone)
	require.False(t, m.Normalize())

	m = &Mode{Standalone: true}
	require.False(t, m.Normalize())
	require.True(t, m.Standalone)
}

// TestModeClone verifies that Clone returns a copy and handles nil safely.
func TestModeClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Mode)(nil).Clone())

	m := &Mode{ChangedAt: time.Now(), HubArmed: true}
	c := m.Clone()

	require.Equal(t, m, c)
	require.NotSame(t, m, c)
}

// TestStateJSON checks the names used in status documents.
func TestStateJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]State{"state": ArmedStandalone})
	require.NoError(t, err)
	require.JSONEq(t, `{"state":"armed_standalone"}`, string(data))
	require.Equal(t, "state(7)", State(7).String())
}
