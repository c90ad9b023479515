package timer

import (
	"sync"
	"time"
)

// Kind names a timer slot.
type Kind string

// Fired is posted when a timer expires.
type Fired struct {
	// Kind is the slot the timer was started in.
	Kind Kind
	// Tag is the tag the timer was started with.
	Tag string
	// seq identifies the start that produced this fire.
	seq uint64
}

// entry is one pending timer.
type entry struct {
	// tag is the source tag the timer belongs to.
	tag string
	// seq is the start sequence of the timer.
	seq uint64
	// timer is the runtime timer.
	timer *time.Timer
}

// Group owns a set of timers keyed by kind.
// Start, Cancel and Handle are meant to be called from a single owner loop;
// the mutex only guards against the AfterFunc callbacks.
type Group struct {
	// post delivers expired timers to the owner.
	post func(Fired)

	// mu protects the fields below.
	mu sync.Mutex
	// seq is the last issued start sequence.
	seq uint64
	// pending holds the active timer per kind.
	pending map[Kind]entry
}

// NewGroup returns an empty group delivering fires through post.
func NewGroup(post func(Fired)) *Group {
	return &Group{
		post:    post,
		pending: make(map[Kind]entry),
	}
}

// Start arms the timer of kind for tag, replacing any pending timer of the same kind.
func (g *Group) Start(kind Kind, tag string, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.pending[kind]; ok {
		prev.timer.Stop()
	}

	g.seq++
	fired := Fired{Kind: kind, Tag: tag, seq: g.seq}

	g.pending[kind] = entry{
		tag: tag,
		seq: g.seq,
		timer: time.AfterFunc(d, func() {
			g.post(fired)
		}),
	}
}

// Cancel stops the timer of kind when it belongs to tag.
// It reports whether a timer was canceled.
func (g *Group) Cancel(kind Kind, tag string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.pending[kind]
	if !ok || e.tag != tag {
		return false
	}

	e.timer.Stop()
	delete(g.pending, kind)

	return true
}

// CancelKind stops the timer of kind whatever its tag.
func (g *Group) CancelKind(kind Kind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.pending[kind]
	if !ok {
		return false
	}

	e.timer.Stop()
	delete(g.pending, kind)

	return true
}

// Stop cancels every pending timer.
func (g *Group) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for kind, e := range g.pending {
		e.timer.Stop()
		delete(g.pending, kind)
	}
}

// Pending returns the tag of the timer of kind, if any.
func (g *Group) Pending(kind Kind) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.pending[kind]

	return e.tag, ok
}

// Handle consumes a fire. It returns false when the fire is stale,
// i.e. the timer was canceled or restarted after it expired.
func (g *Group) Handle(f Fired) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.pending[f.Kind]
	if !ok || e.seq != f.seq {
		return false
	}

	delete(g.pending, f.Kind)

	return true
}
