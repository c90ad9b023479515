// Package station wires the monitoring station together: the hub channel, the
// session engine, the camera supervisor and the local control surfaces.
package station
