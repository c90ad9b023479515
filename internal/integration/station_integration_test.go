package integration

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/ice-station/internal/config"
	"github.com/oshokin/ice-station/internal/domain/alarm"
	"github.com/oshokin/ice-station/internal/domain/event"
	"github.com/oshokin/ice-station/internal/hub"
	"github.com/oshokin/ice-station/internal/service/station"
)

const (
	waitTimeout  = 5 * time.Second
	pollInterval = 20 * time.Millisecond
	pingInterval = 200 * time.Millisecond
)

// hubServer is a minimal hub: it answers get and set_armed with snapshots,
// pings the station and records acks.
type hubServer struct {
	// armed is the hub arm state.
	armed atomic.Bool
	// acks counts acknowledged events.
	acks atomic.Int32
	// events receives events to push to the station.
	events chan event.Event
}

func (h *hubServer) serve(t *testing.T) string {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}

		h.session(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// session owns all writes on conn; a reader goroutine feeds it.
func (h *hubServer) session(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	inbound := make(chan hub.Envelope)
	done := make(chan struct{})

	defer close(done)

	go func() {
		defer close(inbound)

		for {
			var env hub.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}

			select {
			case inbound <- env:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		var (
			typ     hub.MessageType
			payload any
		)

		select {
		case env, ok := <-inbound:
			if !ok {
				return
			}

			switch env.Type {
			case hub.MsgGet:
				typ, payload = hub.MsgGetResult, h.snapshot()
			case hub.MsgSetArmed:
				var req hub.SetArmed
				if env.Decode(&req) == nil {
					h.armed.Store(req.Armed)
				}

				typ, payload = hub.MsgGetResult, h.snapshot()
			case hub.MsgAck:
				h.acks.Add(1)

				continue
			default:
				continue
			}
		case ev := <-h.events:
			typ, payload = hub.MsgEvent, hub.EventMessage{Event: ev}
		case <-ticker.C:
			typ = hub.MsgPing
		}

		raw, err := hub.Encode(typ, payload)
		if err != nil {
			return
		}

		if err = conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}

func (h *hubServer) snapshot() hub.Snapshot {
	return hub.Snapshot{
		IsArmed: h.armed.Load(),
		ClientList: []event.Client{
			{Name: "office-pc", Type: event.ClientPC},
			{Name: "home-assistant", Type: event.ClientHA},
			{Name: "lobby", Type: event.ClientHTML},
		},
	}
}

// freeAddress reserves a loopback port for a listener started later.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// startStation writes settings for hubURL and runs the station in the background.
func startStation(t *testing.T, hubURL string) (controlURL, healthAddr string) {
	t.Helper()

	controlAddr := freeAddress(t)
	healthAddr = freeAddress(t)
	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)

	require.NoError(t, config.Save(cfgPath, &config.Config{
		ClientName:     "integration",
		HubURL:         hubURL,
		ControlAddress: controlAddr,
		HealthAddress:  healthAddr,
		Timeout:        2 * time.Second,
		LogLevel:       "error",
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- station.Run(ctx, &station.Options{ConfigPath: cfgPath})
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(waitTimeout):
			t.Error("station did not stop")
		}
	})

	return "http://" + controlAddr, healthAddr
}

// stationStatus is the part of the status document the tests look at.
type stationStatus struct {
	// State is the effective arm state.
	State string `json:"state"`
	// HubConnected reports the hub link.
	HubConnected bool `json:"hubConnected"`
	// Clients is the roster of the latest snapshot.
	Clients map[string][]string `json:"clients"`
	// Alerts lists the active alert sessions.
	Alerts []json.RawMessage `json:"alerts"`
}

func status(t *testing.T, controlURL string) (stationStatus, bool) {
	t.Helper()

	resp, err := http.Get(controlURL + "/api/v1/status") //nolint:noctx // Test helper.
	if err != nil {
		return stationStatus{}, false
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	var st stationStatus
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&st) != nil {
		return stationStatus{}, false
	}

	return st, true
}

func post(t *testing.T, url string) int {
	t.Helper()

	resp, err := http.Post(url, "application/json", nil) //nolint:noctx // Test helper.
	require.NoError(t, err)

	_ = resp.Body.Close()

	return resp.StatusCode
}

// TestStation_ArmAndAlert runs the whole station against a local hub: arming
// goes through the hub round trip and a sensor event raises an alert.
func TestStation_ArmAndAlert(t *testing.T) {
	t.Parallel()

	h := &hubServer{events: make(chan event.Event, 1)}
	controlURL, _ := startStation(t, h.serve(t))

	// The roster arrives with the first snapshot, so the channel is up.
	require.Eventually(t, func() bool {
		st, ok := status(t, controlURL)
		return ok && st.HubConnected && len(st.Clients["pc"]) > 0
	}, waitTimeout, pollInterval)

	require.Equal(t, http.StatusAccepted, post(t, controlURL+"/api/v1/arm"))

	require.Eventually(t, func() bool {
		st, ok := status(t, controlURL)
		return ok && st.State == alarm.Armed.String()
	}, waitTimeout, pollInterval)
	require.True(t, h.armed.Load())

	h.events <- event.Event{
		ID:        "motion-1",
		Type:      event.TypeONVIF,
		Name:      event.NameMotion,
		Source:    event.SourceHub,
		Timestamp: time.Now(),
	}

	require.Eventually(t, func() bool {
		st, ok := status(t, controlURL)
		return ok && len(st.Alerts) > 0 && h.acks.Load() > 0
	}, waitTimeout, pollInterval)

	// A second arm request is rejected while the hub reports armed.
	require.Equal(t, http.StatusConflict, post(t, controlURL+"/api/v1/arm"))
}

// TestStation_HealthFollowsHub checks the gRPC health service reports a live hub link.
func TestStation_HealthFollowsHub(t *testing.T) {
	t.Parallel()

	h := &hubServer{events: make(chan event.Event)}
	_, healthAddr := startStation(t, h.serve(t))

	conn, err := grpc.NewClient(healthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	defer func() {
		_ = conn.Close()
	}()

	client := healthpb.NewHealthClient(conn)

	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})

		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, waitTimeout, pollInterval)
}
