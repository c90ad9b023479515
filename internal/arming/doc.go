// Package arming implements the station alarm state machine and the event
// acceptance policy.
//
// Arm and disarm need a hub round trip: a request is remembered as pending and
// the state only changes when a snapshot confirms it. Standalone is toggled
// locally. Decide is a pure function of the state and one event; it tells the
// engine whether to drop, ignore, log, alert on or clear alerts for the event.
package arming
