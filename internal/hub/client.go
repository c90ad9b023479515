package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/ice-station/internal/logger"
)

// InboundKind tells what an Inbound value reports.
type InboundKind int

// Inbound kinds.
const (
	// Up reports an established connection.
	Up InboundKind = iota
	// Down reports a lost or failed connection.
	Down
	// Message carries a received envelope.
	Message
)

// Inbound is one item delivered by the client.
type Inbound struct {
	// Kind is what happened.
	Kind InboundKind
	// Envelope is set for Message.
	Envelope Envelope
	// Err is the cause of a Down.
	Err error
}

// Defaults.
const (
	// DefaultReconnectInterval is the fixed delay between connection attempts.
	DefaultReconnectInterval = time.Second
	// DefaultWriteTimeout bounds a single write.
	DefaultWriteTimeout = 5 * time.Second
	// inboundBuffer is the capacity of the inbound channel.
	inboundBuffer = 64
)

// ErrNotConnected is returned by Send while the channel is down.
var ErrNotConnected = errors.New("hub channel is not connected")

// linkState is the last connectivity reported to the consumer.
type linkState int

const (
	linkUnknown linkState = iota
	linkUp
	linkDown
)

// Client is a reconnecting WebSocket channel to the hub.
type Client struct {
	// url is the hub WebSocket URL.
	url string
	// header is sent with every handshake.
	header http.Header
	// dialer opens the sockets.
	dialer *websocket.Dialer
	// reconnect is the delay between connection attempts.
	reconnect time.Duration
	// writeTimeout bounds a single write.
	writeTimeout time.Duration
	// inbound delivers connectivity changes and messages in order.
	inbound chan Inbound

	// mu protects conn.
	mu sync.Mutex
	// conn is the live socket or nil.
	conn *websocket.Conn
	// writeMu serializes writes on conn.
	writeMu sync.Mutex
	// state is the connectivity last delivered.
	state linkState
}

// Option configures the client.
type Option func(*Client)

// WithReconnectInterval sets the delay between connection attempts.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnect = d
		}
	}
}

// WithWriteTimeout sets the write deadline of a single message.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithUserAgent sets the User-Agent of the handshake.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.header.Set("User-Agent", ua)
		}
	}
}

// NewClient creates a client for url. Nothing is dialed until Run.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:          url,
		header:       make(http.Header),
		dialer:       websocket.DefaultDialer,
		reconnect:    DefaultReconnectInterval,
		writeTimeout: DefaultWriteTimeout,
		inbound:      make(chan Inbound, inboundBuffer),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Inbound returns the channel connectivity changes and messages are delivered on.
func (c *Client) Inbound() <-chan Inbound {
	return c.inbound
}

// Run keeps the channel connected until ctx is canceled.
// Channel loss is never fatal: it is reported as Down and retried.
func (c *Client) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "hub")

	ticker := time.NewTicker(c.reconnect)
	defer ticker.Stop()

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		c.report(ctx, Inbound{Kind: Down, Err: err}, linkDown)
		logger.DebugKV(ctx, "Hub channel down", "error", err, "retry_in", c.reconnect.String())

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Send frames and writes one message.
func (c *Client) Send(_ context.Context, typ MessageType, payload any) error {
	raw, err := Encode(typ, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if err = conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("write %s: %w", typ, err)
	}

	return nil
}

// Connected reports whether a socket is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

// session dials once and reads until the socket fails or ctx is canceled.
func (c *Client) session(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return fmt.Errorf("dial hub: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	done := make(chan struct{})
	defer close(done)

	// Unblock the reader on shutdown.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		_ = conn.Close()
	}()

	logger.InfoKV(ctx, "Hub channel connected", "url", c.url)
	c.report(ctx, Inbound{Kind: Up}, linkUp)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var env Envelope
		if err = json.Unmarshal(data, &env); err != nil {
			logger.WarnKV(ctx, "Malformed hub message dropped", "error", err)
			continue
		}

		c.deliver(ctx, Inbound{Kind: Message, Envelope: env})
	}
}

// report delivers a connectivity change once per edge.
func (c *Client) report(ctx context.Context, in Inbound, state linkState) {
	if c.state == state {
		return
	}

	c.state = state
	c.deliver(ctx, in)
}

// deliver blocks until the consumer takes the item or ctx is canceled.
func (c *Client) deliver(ctx context.Context, in Inbound) {
	select {
	case c.inbound <- in:
	case <-ctx.Done():
	}
}
