package signaling

// State is the connectivity of the camera session.
type State string

// Session states, as reported by the peer connection.
const (
	StateNew          State = "new"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateFailed       State = "failed"
	StateClosed       State = "closed"
)

// LostNotice is the camera status text shown while the feed is being restored.
const LostNotice = "Camera Feed Disconnected. Retrying..."

// Lost reports whether the state means a dropped feed.
func (s State) Lost() bool {
	return s == StateDisconnected || s == StateFailed
}

// Healthy reports whether the supervisor leaves the session alone.
func (s State) Healthy() bool {
	return s == StateConnected || s == StateConnecting
}
