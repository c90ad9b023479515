package hub

import (
	"encoding/json"
	"fmt"

	"github.com/oshokin/ice-station/internal/domain/event"
)

// MessageType is the name of a channel message.
type MessageType string

// Channel messages.
const (
	// MsgIntroduce is the handshake sent on every (re)connect.
	MsgIntroduce MessageType = "introduce"
	// MsgEvent carries an event in either direction.
	MsgEvent MessageType = "event"
	// MsgEventIgnored carries an event the hub decided to ignore.
	MsgEventIgnored MessageType = "event_ignored"
	// MsgAck acknowledges an event id.
	MsgAck MessageType = "ack"
	// MsgPing is the hub liveness probe.
	MsgPing MessageType = "ping"
	// MsgGet requests a snapshot.
	MsgGet MessageType = "get"
	// MsgPong answers a snapshot.
	MsgPong MessageType = "pong"
	// MsgGetResult is the authoritative snapshot.
	MsgGetResult MessageType = "get_result"
	// MsgSetArmed requests an arm state change.
	MsgSetArmed MessageType = "set_armed"
)

// Envelope frames every channel message.
type Envelope struct {
	// Type is the message name.
	Type MessageType `json:"type"`
	// Data is the raw payload, absent for ping, get and pong.
	Data json.RawMessage `json:"data,omitempty"`
}

// Introduce is the handshake payload.
type Introduce struct {
	// Name is the client name.
	Name string `json:"name"`
	// Type is the client kind.
	Type event.ClientType `json:"type"`
	// LastEventID is the id of the last handled event, used by the hub to replay the backlog.
	LastEventID string `json:"lastEventID,omitempty"`
}

// EventMessage is the payload of event and event_ignored.
type EventMessage struct {
	// Event is the carried event.
	Event event.Event `json:"event"`
}

// Ack acknowledges an event.
type Ack struct {
	// ID is the acknowledged event id.
	ID string `json:"id"`
}

// Snapshot is the get_result payload.
type Snapshot struct {
	// IsArmed is the hub arm state.
	IsArmed bool `json:"isArmed"`
	// EventList holds the events the hub considers pending for this client.
	EventList []event.Event `json:"eventList"`
	// ClientList is the hub membership.
	ClientList []event.Client `json:"clientList"`
}

// SetArmed requests an arm state change.
type SetArmed struct {
	// Armed is the requested state.
	Armed bool `json:"armed"`
}

// Encode frames a payload. A nil payload produces a message without data.
func Encode(typ MessageType, payload any) ([]byte, error) {
	env := Envelope{Type: typ}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", typ, err)
		}

		env.Data = data
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}

	return raw, nil
}

// Decode parses the payload of an envelope into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("decode %s: empty payload", e.Type)
	}

	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}

	return nil
}
