// Package alert schedules the visual and audible alerts of the station.
//
// An alert is made of three independently timed sessions (flash, overlay and
// sound). Every session carries the source tag of the event that raised it,
// and a tagged clear only retracts sessions with the same tag. Rendering is
// delegated to an Output.
package alert
