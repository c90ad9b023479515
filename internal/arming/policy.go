package arming

import (
	"fmt"
	"strings"

	"github.com/oshokin/ice-station/internal/domain/alarm"
	"github.com/oshokin/ice-station/internal/domain/event"
	"github.com/oshokin/ice-station/internal/ledger"
)

// Verdict is what the engine does with one event.
type Verdict int

// Verdicts.
const (
	// Drop absorbs the event without a journal line (own echoes).
	Drop Verdict = iota
	// Suppress absorbs a continuation inside the suppression window.
	Suppress
	// Ignore writes an IGNORED journal line, no alert.
	Ignore
	// Log writes a journal line, no alert.
	Log
	// Alert writes a priority journal line and raises an alert.
	Alert
	// Clear retracts every active alert.
	Clear
)

// String returns a log friendly verdict name.
func (v Verdict) String() string {
	switch v {
	case Drop:
		return "drop"
	case Suppress:
		return "suppress"
	case Ignore:
		return "ignore"
	case Log:
		return "log"
	case Alert:
		return "alert"
	case Clear:
		return "clear"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Inputs are the ledger facts Decide needs about an event.
type Inputs struct {
	// HubIgnored is set for events delivered as event_ignored.
	HubIgnored bool
	// OwnEmission is set when the event echoes a command of this station.
	OwnEmission bool
	// Suppressed is set when an event of the same kind is inside the window.
	Suppressed bool
}

// Decision is the outcome of the acceptance policy.
type Decision struct {
	// Verdict is the action to take.
	Verdict Verdict
	// Record adds the event to the suppression window.
	Record bool
	// Priority marks the journal line as an alerting line.
	Priority bool
	// Message is the journal line; empty means none.
	Message string
	// Banner is the overlay text of a raised alert.
	Banner string
	// Audible starts the audio loop when sound is enabled.
	Audible bool
}

// SuppressionKey returns the (type, subtype) the suppression window is checked
// with for an event, or false when the event kind is never suppressed.
// Connection events have no meaningful subtype and match on type alone.
func SuppressionKey(ev event.Event) (event.Type, string, bool) {
	switch {
	case ev.Type == event.TypeONVIF:
		return ev.Type, ev.Name, true
	case ev.Type == event.TypeConnection:
		return ev.Type, ledger.AnyName, true
	case ev.Type == event.TypeClient && ev.Source == event.SourceSelf:
		return ev.Type, ev.Name, true
	default:
		return "", "", false
	}
}

// Decide applies the acceptance policy of state to one event.
func Decide(state alarm.State, ev event.Event, in Inputs) Decision {
	if in.Suppressed {
		return Decision{Verdict: Suppress}
	}

	if ev.Source == event.SourceSelf {
		return decideInternal(state, ev)
	}

	switch {
	case state == alarm.Disarmed, in.HubIgnored && state != alarm.ArmedStandalone:
		return decideIgnored(ev, in)
	case state == alarm.ArmedStandalone:
		return decideStandalone(ev, in)
	default:
		return decideArmed(ev, in)
	}
}

// decideInternal handles synthetic events; they alert in both armed modes.
func decideInternal(state alarm.State, ev event.Event) Decision {
	var message, banner string

	switch {
	case ev.Type == event.TypeConnection && ev.Name == event.NameDisconnected:
		message, banner = "CONNECTION: Connection to server lost.", "CONNECTION LOST!"
	case ev.Type == event.TypeClient && ev.Name == event.NameZeroClient:
		message = fmt.Sprintf("CLIENT: Zero client detected: PC: %v, HA: %v, HTML: %v",
			countOf(ev, event.ClientPC), countOf(ev, event.ClientHA), countOf(ev, event.ClientHTML))
		banner = "ZERO CLIENT DETECTED!"
	default:
		return Decision{Verdict: Log, Record: true, Message: fmt.Sprintf("%s: %s.", upper(string(ev.Type)), ev.Name)}
	}

	if state == alarm.Disarmed {
		return Decision{Verdict: Log, Record: true, Priority: true, Message: message}
	}

	return Decision{Verdict: Alert, Record: true, Priority: true, Message: message, Banner: banner}
}

// decideIgnored handles events while disarmed or ignored by the hub.
func decideIgnored(ev event.Event, in Inputs) Decision {
	switch {
	case ev.Type == event.TypeUser && in.OwnEmission:
		return Decision{Verdict: Drop}
	case ev.Type == event.TypeClient && ev.Name == event.NameConnected:
		return Decision{Verdict: Log, Record: true, Message: clientLine("CLIENT", ev)}
	}

	var message string

	switch ev.Type {
	case event.TypeONVIF:
		message = fmt.Sprintf("IGNORED_ONVIF: %s ignored.", capitalize(ev.Name))
	case event.TypeUser:
		message = "IGNORED_" + userLine(ev) + " ignored."
	case event.TypeClient:
		message = clientLine("IGNORED_CLIENT", ev)
	default:
		message = fmt.Sprintf("IGNORED_%s: %s ignored.", upper(string(ev.Type)), ev.Name)
	}

	return Decision{Verdict: Ignore, Message: message}
}

// decideArmed is the full policy.
func decideArmed(ev event.Event, in Inputs) Decision {
	switch ev.Type {
	case event.TypeONVIF:
		return sensorAlert(ev)
	case event.TypeUser:
		if ev.Name == event.NameIgnore {
			d := Decision{Verdict: Clear, Record: true}
			if !in.OwnEmission {
				d.Priority, d.Message = true, userLine(ev)+"."
			}

			return d
		}

		if in.OwnEmission {
			return Decision{Verdict: Drop}
		}

		return Decision{
			Verdict:  Alert,
			Record:   true,
			Priority: true,
			Message:  userLine(ev) + ".",
			Banner:   userBanner(ev),
		}
	case event.TypeClient:
		return clientDecision(ev)
	default:
		return Decision{Verdict: Log, Record: true, Message: fmt.Sprintf("%s: %s.", upper(string(ev.Type)), ev.Name)}
	}
}

// decideStandalone trusts only local sensors: remote commands are logged, never alerted.
func decideStandalone(ev event.Event, in Inputs) Decision {
	switch ev.Type {
	case event.TypeUser:
		if in.OwnEmission {
			return Decision{Verdict: Drop}
		}

		return Decision{Verdict: Log, Record: true, Priority: true, Message: userLine(ev) + "."}
	default:
		return decideArmed(ev, in)
	}
}

// sensorAlert raises the alert of a sensor detection.
func sensorAlert(ev event.Event) Decision {
	return Decision{
		Verdict:  Alert,
		Record:   true,
		Priority: true,
		Message:  fmt.Sprintf("ONVIF: %s Detected!", capitalize(ev.Name)),
		Banner:   upper(ev.Name) + " DETECTED!",
		Audible:  true,
	}
}

// clientDecision logs client connects and alerts on every other client notice.
func clientDecision(ev event.Event) Decision {
	if ev.Name == event.NameConnected {
		return Decision{Verdict: Log, Record: true, Message: clientLine("CLIENT", ev)}
	}

	return Decision{
		Verdict:  Alert,
		Record:   true,
		Priority: true,
		Message:  clientLine("CLIENT", ev),
		Banner:   fmt.Sprintf("CLIENT '%s' %s!", ev.ClientName(), upper(ev.Name)),
	}
}

// userLine renders a user command without the trailing punctuation.
func userLine(ev event.Event) string {
	if ev.Name == event.NameKill {
		return fmt.Sprintf("USER: User broadcasted event '%s' with mode '%s'", upper(ev.Name), upper(ev.KillMode()))
	}

	return fmt.Sprintf("USER: User broadcasted event '%s'", upper(ev.Name))
}

// userBanner renders the overlay text of a foreign command.
func userBanner(ev event.Event) string {
	if ev.Name == event.NameKill && ev.KillMode() != "" {
		return fmt.Sprintf("%s (%s) BROADCASTED!", upper(ev.Name), upper(ev.KillMode()))
	}

	return upper(ev.Name) + " BROADCASTED!"
}

// clientLine renders a client notice with the given prefix.
func clientLine(prefix string, ev event.Event) string {
	return fmt.Sprintf("%s: Client '%s' %s.", prefix, ev.ClientName(), ev.Name)
}

// countOf reads a roster count the engine stored in a zero-client event.
func countOf(ev event.Event, t event.ClientType) any {
	if v, ok := ev.Data[string(t)]; ok {
		return v
	}

	return 0
}

// capitalize upper-cases the first letter.
func capitalize(s string) string {
	if s == "" {
		return ""
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

// upper is strings.ToUpper, named for readability at call sites.
func upper(s string) string {
	return strings.ToUpper(s)
}
