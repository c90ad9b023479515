// Package journal keeps the on-screen log of the station: a bounded list of
// timestamped lines, some of them flagged as priority (alerting) lines.
package journal
