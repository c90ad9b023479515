package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/ice-station/internal/logger"
)

// Peer is a receive-only peer connection.
type Peer interface {
	// CreateOffer creates the local offer, applies it and returns its SDP.
	CreateOffer() (string, error)
	// SetAnswer applies the remote answer.
	SetAnswer(sdp string) error
	// AddCandidate applies a remote ICE candidate.
	AddCandidate(candidate string) error
	// OnCandidate registers the callback receiving local ICE candidates.
	OnCandidate(fn func(candidate string))
	// OnStateChange registers the callback receiving connection states.
	OnStateChange(fn func(State))
	// Close releases the connection.
	Close() error
}

// PeerFactory creates a fresh peer for every negotiation.
type PeerFactory func() (Peer, error)

// Options configures a Client.
type Options struct {
	// ConfigURL is the camera configuration endpoint.
	ConfigURL string
	// Secure selects wss for the signaling socket.
	Secure bool
	// NewPeer creates peer connections.
	NewPeer PeerFactory
	// Interval is the supervisor period.
	Interval time.Duration
	// Timeout bounds the configuration fetch and the socket dial.
	Timeout time.Duration
	// UserAgent is sent with HTTP requests and the socket handshake.
	UserAgent string
	// OnState receives every session state change.
	OnState func(State)
	// OnRestart is called on every full restart.
	OnRestart func()
}

// Defaults.
const (
	// DefaultInterval is the supervisor period.
	DefaultInterval = time.Second
	// DefaultTimeout bounds one configuration fetch or dial.
	DefaultTimeout = 5 * time.Second
)

// attempt is one negotiation.
type attempt struct {
	// cancel stops the negotiation goroutine.
	cancel context.CancelFunc
	// mu protects conn and peer.
	mu sync.Mutex
	// conn is the signaling socket.
	conn *websocket.Conn
	// writeMu serializes socket writes.
	writeMu sync.Mutex
	// peer is the peer connection.
	peer Peer
}

// Client supervises the camera session.
type Client struct {
	// opts holds the configuration.
	opts Options
	// http fetches the relay configuration.
	http *http.Client
	// dialer opens signaling sockets.
	dialer *websocket.Dialer

	// mu protects the fields below.
	mu sync.Mutex
	// gen identifies the current attempt; callbacks of older ones are dropped.
	gen uint64
	// state is the state of the current attempt.
	state State
	// current is the running attempt.
	current *attempt
}

// New creates a client. Nothing happens until Run.
func New(opts Options) *Client {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		dialer: &websocket.Dialer{HandshakeTimeout: opts.Timeout, Proxy: http.ProxyFromEnvironment},
		state:  StateNew,
	}
}

// State returns the state of the current attempt.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Run negotiates and supervises the session until ctx is canceled.
// Failures are never returned: every unhealthy state leads to a full restart.
func (c *Client) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "camera")

	c.restart(ctx)
	defer c.teardown()

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			if state := c.State(); !state.Healthy() {
				logger.DebugKV(ctx, "Restarting camera session", "state", state)

				if c.opts.OnRestart != nil {
					c.opts.OnRestart()
				}

				c.restart(ctx)
			}
		}
	}
}

// restart drops the current attempt and starts a new one.
func (c *Client) restart(ctx context.Context) {
	c.teardown()

	attemptCtx, cancel := context.WithCancel(ctx)
	a := &attempt{cancel: cancel}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.current = a
	c.mu.Unlock()

	c.setState(gen, StateNew)

	go c.negotiate(attemptCtx, gen, a)
}

// teardown stops the current attempt and releases its socket and peer.
func (c *Client) teardown() {
	c.mu.Lock()
	a := c.current
	c.current = nil
	c.mu.Unlock()

	if a == nil {
		return
	}

	a.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		_ = a.conn.Close()
	}

	if a.peer != nil {
		_ = a.peer.Close()
	}
}

// setState records the state of attempt gen and reports it; stale attempts are ignored.
func (c *Client) setState(gen uint64, state State) {
	c.mu.Lock()

	if gen != c.gen || c.state == state {
		c.mu.Unlock()
		return
	}

	c.state = state
	c.mu.Unlock()

	if c.opts.OnState != nil {
		c.opts.OnState(state)
	}
}

// negotiate runs one attempt: config, socket, peer, offer, then answer and candidates.
func (c *Client) negotiate(ctx context.Context, gen uint64, a *attempt) {
	if err := c.exchange(ctx, gen, a); err != nil && ctx.Err() == nil {
		logger.WarnKV(ctx, "Camera negotiation failed", "error", err)
		c.setState(gen, StateFailed)
	}
}

// exchange performs the signaling exchange and reads until the socket closes.
func (c *Client) exchange(ctx context.Context, gen uint64, a *attempt) error {
	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	cfg, err := FetchConfig(fetchCtx, c.http, c.opts.ConfigURL)

	cancel()

	if err != nil {
		return err
	}

	header := make(http.Header)
	if c.opts.UserAgent != "" {
		header.Set("User-Agent", c.opts.UserAgent)
	}

	target := cfg.SignalingURL(c.opts.Secure)

	conn, resp, err := c.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return fmt.Errorf("dial signaling: %w", err)
	}

	peer, err := c.opts.NewPeer()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("create peer: %w", err)
	}

	a.mu.Lock()
	a.conn, a.peer = conn, peer
	a.mu.Unlock()

	// The attempt may have been replaced while dialing.
	if ctx.Err() != nil {
		_ = conn.Close()
		_ = peer.Close()

		return nil
	}

	logger.DebugKV(ctx, "Signaling connected", "url", target)

	peer.OnStateChange(func(state State) {
		c.setState(gen, state)
	})

	peer.OnCandidate(func(candidate string) {
		if err := a.write(Message{Type: MsgCandidate, Value: candidate}); err != nil {
			logger.DebugKV(ctx, "Candidate not sent", "error", err)
		}
	})

	offer, err := peer.CreateOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}

	if err = a.write(Message{Type: MsgOffer, Value: offer}); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}

	return c.read(ctx, conn, peer)
}

// read applies the answer and the remote candidates until the socket closes.
// A closed socket is not a failure: the peer keeps its own state.
func (c *Client) read(ctx context.Context, conn *websocket.Conn, peer Peer) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.DebugKV(ctx, "Signaling closed", "error", err)
			return nil
		}

		var msg Message
		if err = json.Unmarshal(data, &msg); err != nil {
			logger.WarnKV(ctx, "Malformed signaling message dropped", "error", err)
			continue
		}

		switch msg.Type {
		case MsgAnswer:
			if err = peer.SetAnswer(msg.Value); err != nil {
				return fmt.Errorf("apply answer: %w", err)
			}
		case MsgCandidate:
			if err = peer.AddCandidate(msg.Value); err != nil {
				logger.DebugKV(ctx, "Remote candidate rejected", "error", err)
			}
		default:
			logger.DebugKV(ctx, "Unhandled signaling message", "type", msg.Type)
		}
	}
}

// write sends one frame on the attempt socket.
func (a *attempt) write(msg Message) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()

	if conn == nil {
		return websocket.ErrCloseSent
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	return conn.WriteJSON(msg)
}
