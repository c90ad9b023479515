package journal

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/ice-station/internal/logger"
)

// TimeLayout is the timestamp layout of rendered lines.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultSize is used when a non-positive size is given.
const DefaultSize = 500

// Entry is one journal line.
type Entry struct {
	// Time is when the line was written.
	Time time.Time `json:"time"`
	// Message is the text of the line.
	Message string `json:"message"`
	// Priority marks alerting lines.
	Priority bool `json:"priority"`
}

// String renders the line as "YYYY-MM-DD HH:MM:SS - message".
func (e Entry) String() string {
	return e.Time.Format(TimeLayout) + " - " + e.Message
}

// Journal is a bounded, concurrency safe list of entries; the oldest are
// dropped first once the size is reached.
type Journal struct {
	// mu protects entries.
	mu sync.RWMutex
	// entries is a ring buffer of size cap(entries).
	entries []Entry
	// start is the index of the oldest entry once the ring is full.
	start int
	// size is the maximum number of entries.
	size int
}

// New returns an empty journal holding up to size entries.
func New(size int) *Journal {
	if size <= 0 {
		size = DefaultSize
	}

	return &Journal{
		entries: make([]Entry, 0, size),
		size:    size,
	}
}

// Add appends a line and mirrors it to the log.
func (j *Journal) Add(ctx context.Context, at time.Time, message string, priority bool) Entry {
	entry := Entry{Time: at, Message: message, Priority: priority}

	j.mu.Lock()

	if len(j.entries) < j.size {
		j.entries = append(j.entries, entry)
	} else {
		j.entries[j.start] = entry
		j.start = (j.start + 1) % j.size
	}

	j.mu.Unlock()

	if priority {
		logger.WarnKV(ctx, message, "journal", true)
	} else {
		logger.InfoKV(ctx, message, "journal", true)
	}

	return entry
}

// Entries returns the lines oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	result := make([]Entry, 0, len(j.entries))
	result = append(result, j.entries[j.start:]...)
	result = append(result, j.entries[:j.start]...)

	return result
}

// Len returns the number of lines.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return len(j.entries)
}

// Clear removes every line.
func (j *Journal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = j.entries[:0]
	j.start = 0
}
