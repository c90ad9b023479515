package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakePeer records the negotiation and lets the test drive its state.
type fakePeer struct {
	mu          sync.Mutex
	answer      string
	candidates  []string
	closed      bool
	onCandidate func(string)
	onState     func(State)
}

func (p *fakePeer) CreateOffer() (string, error) { return "v=0 offer", nil }

func (p *fakePeer) SetAnswer(sdp string) error {
	p.mu.Lock()
	p.answer = sdp
	onState := p.onState
	p.mu.Unlock()

	onState(StateConnecting)

	return nil
}

func (p *fakePeer) AddCandidate(candidate string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.candidates = append(p.candidates, candidate)

	return nil
}

func (p *fakePeer) OnCandidate(fn func(string)) {
	p.mu.Lock()
	p.onCandidate = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnStateChange(fn func(State)) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	return nil
}

func (p *fakePeer) emit(state State) {
	p.mu.Lock()
	fn := p.onState
	p.mu.Unlock()

	fn(state)
}

// relay imitates the media relay: it serves the config and answers offers.
type relay struct {
	srv    *httptest.Server
	offers chan Message
	local  chan Message
}

func newRelay(t *testing.T) *relay {
	t.Helper()

	r := &relay{
		offers: make(chan Message, 8),
		local:  make(chan Message, 8),
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/camera-config", func(w http.ResponseWriter, _ *http.Request) {
		host := strings.TrimPrefix(r.srv.URL, "http://")
		_ = json.NewEncoder(w).Encode(RelayConfig{Host: host, Src: "front door"})
	})

	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("src") != "front door" || req.URL.Query().Get("mode") != "webrtc" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}

		defer func() { _ = conn.Close() }()

		for {
			var msg Message
			if err = conn.ReadJSON(&msg); err != nil {
				return
			}

			if msg.Type != MsgOffer {
				r.local <- msg
				continue
			}

			r.offers <- msg
			_ = conn.WriteJSON(Message{Type: MsgAnswer, Value: "v=0 answer"})
			_ = conn.WriteJSON(Message{Type: MsgCandidate, Value: "candidate:1 1 udp 1 10.0.0.2 5000 typ host"})
		}
	})

	r.srv = httptest.NewServer(mux)
	t.Cleanup(r.srv.Close)

	return r
}

// peers collects the peers created by the client.
type peers struct {
	mu  sync.Mutex
	all []*fakePeer
}

func (ps *peers) factory() (Peer, error) {
	p := &fakePeer{}

	ps.mu.Lock()
	ps.all = append(ps.all, p)
	ps.mu.Unlock()

	return p, nil
}

func (ps *peers) count() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return len(ps.all)
}

func (ps *peers) last() *fakePeer {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return ps.all[len(ps.all)-1]
}

// TestSignalingURL verifies the relay socket URL.
func TestSignalingURL(t *testing.T) {
	t.Parallel()

	cfg := RelayConfig{Host: "relay.local:1984", Src: "cam1"}
	require.Equal(t, "ws://relay.local:1984/api/ws?mode=webrtc&src=cam1", cfg.SignalingURL(false))
	require.Equal(t, "wss://relay.local:1984/api/ws?mode=webrtc&src=cam1", cfg.SignalingURL(true))
}

// TestFetchConfigRejects checks error statuses and incomplete bodies.
func TestFetchConfigRejects(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(`{"host":"relay"}`))
	}))
	defer srv.Close()

	_, err := FetchConfig(context.Background(), srv.Client(), srv.URL+"/missing")
	require.ErrorIs(t, err, errUnexpectedStatus)

	_, err = FetchConfig(context.Background(), srv.Client(), srv.URL+"/partial")
	require.ErrorIs(t, err, errIncompleteConfig)
}

// TestNegotiation verifies offer, answer and candidates flow both ways.
func TestNegotiation(t *testing.T) {
	t.Parallel()

	r := newRelay(t)
	ps := &peers{}

	var (
		mu     sync.Mutex
		states []State
	)

	c := New(Options{
		ConfigURL: r.srv.URL + "/api/v1/camera-config",
		NewPeer:   ps.factory,
		Interval:  time.Hour,
		OnState: func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = c.Run(ctx) }()

	select {
	case offer := <-r.offers:
		require.Equal(t, "v=0 offer", offer.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("no offer received")
	}

	require.Eventually(t, func() bool { return c.State() == StateConnecting }, 5*time.Second, 10*time.Millisecond)

	p := ps.last()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()

		return p.answer == "v=0 answer" && len(p.candidates) == 1
	}, 5*time.Second, 10*time.Millisecond)

	p.mu.Lock()
	onCandidate := p.onCandidate
	p.mu.Unlock()

	onCandidate("candidate:2 1 udp 1 192.168.1.5 6000 typ host")

	select {
	case msg := <-r.local:
		require.Equal(t, MsgCandidate, msg.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no local candidate received")
	}

	p.emit(StateConnected)
	require.Equal(t, StateConnected, c.State())

	mu.Lock()
	require.Equal(t, []State{StateConnecting, StateConnected}, states)
	mu.Unlock()
}

// TestSupervisorRestarts ensures a failed session is rebuilt from scratch and
// callbacks of the dropped peer are ignored.
func TestSupervisorRestarts(t *testing.T) {
	t.Parallel()

	r := newRelay(t)
	ps := &peers{}

	var restarts sync.WaitGroup

	restarts.Add(1)

	var once sync.Once

	c := New(Options{
		ConfigURL: r.srv.URL + "/api/v1/camera-config",
		NewPeer:   ps.factory,
		Interval:  200 * time.Millisecond,
		OnRestart: func() { once.Do(restarts.Done) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.State() == StateConnecting }, 5*time.Second, 5*time.Millisecond)

	first := ps.last()
	first.emit(StateFailed)

	restarts.Wait()

	require.Eventually(t, func() bool { return ps.count() >= 2 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		first.mu.Lock()
		defer first.mu.Unlock()

		return first.closed
	}, 5*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return c.State() == StateConnecting }, 5*time.Second, 5*time.Millisecond)

	// The replaced peer can no longer move the session state.
	first.emit(StateFailed)
	require.Equal(t, StateConnecting, c.State())
}
