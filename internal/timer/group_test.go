package timer

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// collector buffers posted fires.
type collector struct {
	fires chan Fired
}

func newCollector() *collector {
	return &collector{fires: make(chan Fired, 16)}
}

func (c *collector) post(f Fired) {
	c.fires <- f
}

func (c *collector) drain() []Fired {
	var out []Fired

	for {
		select {
		case f := <-c.fires:
			out = append(out, f)
		default:
			return out
		}
	}
}

// TestStartFires verifies an expired timer is posted once and consumed.
func TestStartFires(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := newCollector()
		g := NewGroup(c.post)

		g.Start("flash", "onvif_motion", 10*time.Second)

		tag, ok := g.Pending("flash")
		require.True(t, ok)
		require.Equal(t, "onvif_motion", tag)

		time.Sleep(9 * time.Second)
		synctest.Wait()
		require.Empty(t, c.drain())

		time.Sleep(time.Second)
		synctest.Wait()

		fires := c.drain()
		require.Len(t, fires, 1)
		require.Equal(t, Kind("flash"), fires[0].Kind)
		require.True(t, g.Handle(fires[0]))
		require.False(t, g.Handle(fires[0]))

		_, ok = g.Pending("flash")
		require.False(t, ok)
	})
}

// TestRestartMakesOldFireStale ensures a restarted slot ignores the previous timer.
func TestRestartMakesOldFireStale(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := newCollector()
		g := NewGroup(c.post)

		g.Start("overlay", "a", time.Second)
		time.Sleep(time.Second)
		synctest.Wait()

		old := c.drain()
		require.Len(t, old, 1)

		// The owner restarts before it handles the first fire.
		g.Start("overlay", "b", 5*time.Second)
		require.False(t, g.Handle(old[0]))

		tag, ok := g.Pending("overlay")
		require.True(t, ok)
		require.Equal(t, "b", tag)
	})
}

// TestCancelMatchesTag checks that Cancel only stops timers of the same tag.
func TestCancelMatchesTag(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := newCollector()
		g := NewGroup(c.post)

		g.Start("sound", "onvif_motion", time.Second)
		require.False(t, g.Cancel("sound", "connection_disconnected"))
		require.True(t, g.Cancel("sound", "onvif_motion"))

		g.Start("flash", "x", time.Second)
		require.True(t, g.CancelKind("flash"))
		require.False(t, g.CancelKind("flash"))

		g.Start("overlay", "y", time.Second)
		g.Stop()

		time.Sleep(2 * time.Second)
		synctest.Wait()
		require.Empty(t, c.drain())
	})
}
