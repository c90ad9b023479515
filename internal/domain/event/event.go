package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is the category of an event.
type Type string

// Event categories.
const (
	TypeONVIF      Type = "onvif"
	TypeUser       Type = "user"
	TypeClient     Type = "client"
	TypeConnection Type = "connection"
)

// Source tells who produced an event.
type Source string

// Event sources.
const (
	SourceSelf Source = "self"
	SourceHTML Source = "html"
	SourceHub  Source = "hub"
)

// Well-known event subtypes.
const (
	NameMotion       = "motion"
	NameKill         = "kill"
	NameIgnore       = "ignore"
	NameRecover      = "recover"
	NameConnected    = "connected"
	NameDisconnected = "disconnected"
	NameZeroClient   = "zero_client"
)

// Keys inside Event.Data.
const (
	DataKillMode = "killMode"
	DataClient   = "client"
)

// Event is one security occurrence. Two events with the same ID are the same
// logical occurrence no matter how many times the transport repeats them.
type Event struct {
	// ID is unique for the lifetime of a session.
	ID string `json:"id"`
	// Type is the category (onvif, user, client, connection).
	Type Type `json:"type"`
	// Name is the subtype, e.g. motion, kill, disconnected.
	Name string `json:"event"`
	// Source is the producer of the event.
	Source Source `json:"source"`
	// Timestamp is the origination instant.
	Timestamp time.Time `json:"timestamp"`
	// Data carries subtype specific fields.
	Data map[string]any `json:"data,omitempty"`
}

// naiveLayouts are timestamp layouts without a zone, interpreted in local time.
//
//nolint:gochecknoglobals // Read-only lookup table.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NewCommand builds a user command originated by this station.
func NewCommand(name string, data map[string]any, now time.Time) Event {
	if data == nil {
		data = make(map[string]any)
	}

	return Event{
		ID:        uuid.NewString(),
		Type:      TypeUser,
		Name:      name,
		Source:    SourceHTML,
		Timestamp: now,
		Data:      data,
	}
}

// NewInternal builds a synthetic event raised by the station itself.
func NewInternal(typ Type, name string, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Name:      name,
		Source:    SourceSelf,
		Timestamp: now,
	}
}

// Tag is the source tag binding alert sessions to this kind of event.
func (e Event) Tag() string {
	return Tag(e.Type, e.Name)
}

// Tag builds the source tag for a type and subtype pair.
func Tag(typ Type, name string) string {
	return string(typ) + "_" + name
}

// KillMode returns data.killMode of a kill command.
func (e Event) KillMode() string {
	mode, _ := e.Data[DataKillMode].(string)

	return mode
}

// ClientName returns the name of the client a client event talks about.
func (e Event) ClientName() string {
	client, ok := e.Data[DataClient].(map[string]any)
	if !ok {
		return ""
	}

	for _, key := range []string{"name", "clientName"} {
		if name, ok := client[key].(string); ok && name != "" {
			return name
		}
	}

	return ""
}

// UnmarshalJSON accepts both RFC 3339 timestamps and the zone-less ISO form
// some hubs send.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event

	var raw struct {
		alias

		Timestamp string `json:"timestamp"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}

	*e = Event(raw.alias)
	e.Timestamp = ts

	return nil
}

// parseTimestamp parses an event timestamp; empty input yields the zero time.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}

	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, fmt.Errorf("parse event timestamp %q: unsupported format", s)
}

// EmittedRecord is a command sent by this station that is waiting for the
// hub to broadcast it back.
type EmittedRecord struct {
	// ID is the id of the sent command.
	ID string
	// Name is the command subtype.
	Name string
	// Timestamp is the send instant.
	Timestamp time.Time
}
