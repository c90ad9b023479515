// Package liveness watches the hub link and the hub roster and reports when an
// alarm condition begins or ends.
//
// The link is live while the channel reports connected and the last heartbeat
// (hub snapshot) is younger than the heartbeat timeout. The roster condition
// holds while the station is armed and some client kind has no members.
// Only edges are reported, so each condition produces one synthetic event
// until it clears.
package liveness
