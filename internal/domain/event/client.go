package event

import (
	"slices"
	"strings"
)

// ClientType is the kind of a hub member.
type ClientType string

// Client kinds.
const (
	ClientPC   ClientType = "pc"
	ClientHA   ClientType = "ha"
	ClientHTML ClientType = "html"
)

// ClientTypes lists every kind the roster is partitioned into.
//
//nolint:gochecknoglobals // Read-only enumeration.
var ClientTypes = []ClientType{ClientPC, ClientHA, ClientHTML}

// Client is a membership record from the hub snapshot.
type Client struct {
	// Name is the announced client name.
	Name string `json:"name"`
	// Type is the announced client kind.
	Type ClientType `json:"type"`
	// SID is the hub session id, informational only.
	SID string `json:"sid,omitempty"`
}

// Roster is the hub membership split by client kind.
type Roster struct {
	// byType holds the members of each kind in snapshot order.
	byType map[ClientType][]Client
}

// Partition splits a snapshot client list by kind. Unknown kinds are dropped.
func Partition(clients []Client) Roster {
	r := Roster{byType: make(map[ClientType][]Client, len(ClientTypes))}

	for _, c := range clients {
		if !slices.Contains(ClientTypes, c.Type) {
			continue
		}

		r.byType[c.Type] = append(r.byType[c.Type], c)
	}

	return r
}

// Count returns the number of members of a kind.
func (r Roster) Count(t ClientType) int {
	return len(r.byType[t])
}

// Names returns the member names of a kind.
func (r Roster) Names(t ClientType) []string {
	names := make([]string, 0, len(r.byType[t]))
	for _, c := range r.byType[t] {
		names = append(names, c.Name)
	}

	return names
}

// Describe renders the member names of a kind, or "None" for an empty kind.
func (r Roster) Describe(t ClientType) string {
	if r.Count(t) == 0 {
		return "None"
	}

	return strings.Join(r.Names(t), ", ")
}

// HasEmptyType reports whether at least one kind has no members.
func (r Roster) HasEmptyType() bool {
	for _, t := range ClientTypes {
		if r.Count(t) == 0 {
			return true
		}
	}

	return false
}

// Equal reports whether two rosters list the same names per kind.
func (r Roster) Equal(other Roster) bool {
	for _, t := range ClientTypes {
		if !slices.Equal(r.Names(t), other.Names(t)) {
			return false
		}
	}

	return true
}
