// Package control is the local HTTP surface of the station: status, the
// on-screen log, arm and standalone toggles, user commands and /metrics.
package control
