// Package health exposes the station connectivity through the standard gRPC
// health checking protocol.
//
// The overall status ("") follows the hub link as seen by the liveness
// monitor; the "ice.camera" service follows the camera session.
package health
