// Package event contains the data model shared by the station pipeline:
// security events, locally emitted command records and the hub client roster.
package event
