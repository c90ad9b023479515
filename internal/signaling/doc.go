// Package signaling negotiates the receive-only camera session with the media relay.
//
// A session is built from scratch every time: the relay parameters are fetched,
// a signaling socket is opened, a local offer is sent and the answer applied,
// while ICE candidates are trickled both ways. A supervisor checks the session
// state every interval and restarts the whole negotiation unless the peer is
// connected or connecting.
package signaling
