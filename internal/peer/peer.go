package peer

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/oshokin/ice-station/internal/signaling"
)

// candidateMid is the media id remote candidates are bound to.
const candidateMid = "0"

// readBufferSize fits one RTP packet.
const readBufferSize = 1500

// Connection is a receive-only video and audio peer connection.
type Connection struct {
	// pc is the underlying peer connection.
	pc *webrtc.PeerConnection
}

// New creates a connection with one recvonly video and one recvonly audio transceiver.
func New(iceServers []string) (*Connection, error) {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}

	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		_, err = pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("add %s transceiver: %w", kind, err), pc.Close())
		}
	}

	// Media is consumed so the receivers keep running; rendering is out of the engine.
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		go drain(track)
	})

	return &Connection{pc: pc}, nil
}

// Factory returns a signaling.PeerFactory creating connections with iceServers.
func Factory(iceServers []string) signaling.PeerFactory {
	return func() (signaling.Peer, error) {
		return New(iceServers)
	}
}

// CreateOffer implements signaling.Peer.
func (c *Connection) CreateOffer() (string, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}

	if err = c.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}

	return offer.SDP, nil
}

// SetAnswer implements signaling.Peer.
func (c *Connection) SetAnswer(sdp string) error {
	err := c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
	if err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	return nil
}

// AddCandidate implements signaling.Peer.
func (c *Connection) AddCandidate(candidate string) error {
	mid := candidateMid

	if err := c.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate, SDPMid: &mid}); err != nil {
		return fmt.Errorf("add ICE candidate: %w", err)
	}

	return nil
}

// OnCandidate implements signaling.Peer. The end-of-candidates signal is not forwarded.
func (c *Connection) OnCandidate(fn func(candidate string)) {
	c.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}

		fn(candidate.ToJSON().Candidate)
	})
}

// OnStateChange implements signaling.Peer.
func (c *Connection) OnStateChange(fn func(signaling.State)) {
	c.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		fn(signaling.State(state.String()))
	})
}

// Close implements signaling.Peer.
func (c *Connection) Close() error {
	return c.pc.Close()
}

// drain reads a remote track until it ends.
func drain(track *webrtc.TrackRemote) {
	buf := make([]byte, readBufferSize)

	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}
