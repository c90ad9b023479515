// Package metrics defines the Prometheus collectors of the station.
package metrics
