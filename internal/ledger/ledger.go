package ledger

import (
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oshokin/ice-station/internal/domain/event"
)

// AnyName makes IsSuppressed match on the event type alone.
const AnyName = ""

// DefaultSeenCapacity bounds the number of remembered event ids.
const DefaultSeenCapacity = 4096

// received is a ReceivedRecord: the part of an event the suppression window needs.
type received struct {
	// typ is the event type.
	typ event.Type
	// name is the event subtype.
	name string
	// at is when the event was recorded.
	at time.Time
}

// Ledger tracks seen ids, the suppression window and own emissions.
// It is owned by the engine loop and is not safe for concurrent use.
type Ledger struct {
	// window is W.
	window time.Duration
	// seen holds every inbound id processed so far.
	seen *lru.Cache[string, struct{}]
	// received holds recently accepted events for suppression.
	received []received
	// emitted holds commands sent by this station awaiting their echo.
	emitted []event.EmittedRecord
}

// New creates a ledger with suppression window W remembering up to capacity ids.
func New(window time.Duration, capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}

	//nolint:errcheck // lru.New fails only for a non-positive size, excluded above.
	seen, _ := lru.New[string, struct{}](capacity)

	return &Ledger{
		window: window,
		seen:   seen,
	}
}

// Window returns W.
func (l *Ledger) Window() time.Duration {
	return l.window
}

// IsDuplicateInbound reports whether an event id was already processed.
func (l *Ledger) IsDuplicateInbound(id string) bool {
	return id != "" && l.seen.Contains(id)
}

// MarkSeen remembers an inbound id so later repeats are absorbed.
func (l *Ledger) MarkSeen(id string) {
	if id != "" {
		l.seen.Add(id, struct{}{})
	}
}

// RecordReceived adds an accepted event to the suppression window. The record
// is dated by the event timestamp; a missing or future timestamp falls back to now.
func (l *Ledger) RecordReceived(ev event.Event, now time.Time) {
	at := ev.Timestamp
	if at.IsZero() || at.After(now) {
		at = now
	}

	l.MarkSeen(ev.ID)
	l.received = append(l.received, received{typ: ev.Type, name: ev.Name, at: at})
}

// RecordEmitted remembers a command this station sent.
func (l *Ledger) RecordEmitted(id, name string, at time.Time) {
	l.emitted = append(l.emitted, event.EmittedRecord{ID: id, Name: name, Timestamp: at})
}

// IsOwnEmission reports whether id belongs to a command this station sent.
func (l *Ledger) IsOwnEmission(id string) bool {
	return slices.ContainsFunc(l.emitted, func(r event.EmittedRecord) bool {
		return r.ID == id
	})
}

// IsSuppressed reports whether an event of the same type (and subtype unless
// name is AnyName) was recorded less than W before now.
func (l *Ledger) IsSuppressed(typ event.Type, name string, now time.Time) bool {
	return slices.ContainsFunc(l.received, func(r received) bool {
		return r.typ == typ && (name == AnyName || r.name == name) && now.Sub(r.at) < l.window
	})
}

// Prune drops received and emitted records that fell out of the window.
func (l *Ledger) Prune(now time.Time) {
	l.received = slices.DeleteFunc(l.received, func(r received) bool {
		return now.Sub(r.at) >= l.window
	})
	l.emitted = slices.DeleteFunc(l.emitted, func(r event.EmittedRecord) bool {
		return now.Sub(r.Timestamp) >= l.window
	})
}

// Received returns the number of records in the suppression window.
func (l *Ledger) Received() int {
	return len(l.received)
}

// Emitted returns the number of own commands awaiting their echo.
func (l *Ledger) Emitted() int {
	return len(l.emitted)
}
