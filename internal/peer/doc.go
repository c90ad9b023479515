// Package peer implements the receive-only camera peer connection on top of pion/webrtc.
package peer
