package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Signaling message types.
const (
	MsgOffer     = "webrtc/offer"
	MsgAnswer    = "webrtc/answer"
	MsgCandidate = "webrtc/candidate"
)

// Message is one signaling frame.
type Message struct {
	// Type is offer, answer or candidate.
	Type string `json:"type"`
	// Value is an SDP or an ICE candidate line.
	Value string `json:"value"`
}

// RelayConfig is returned by the camera configuration endpoint.
type RelayConfig struct {
	// Host is host[:port] of the media relay.
	Host string `json:"host"`
	// Src is the stream id.
	Src string `json:"src"`
}

var (
	// errIncompleteConfig is returned when the endpoint omits host or src.
	errIncompleteConfig = errors.New("camera config must contain host and src")
	// errUnexpectedStatus is returned for non-2xx configuration responses.
	errUnexpectedStatus = errors.New("unexpected HTTP status")
)

// maxConfigSize bounds the configuration response body.
const maxConfigSize = 64 << 10

// FetchConfig loads the relay parameters from endpoint.
func FetchConfig(ctx context.Context, client *http.Client, endpoint string) (RelayConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RelayConfig{}, fmt.Errorf("build config request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return RelayConfig{}, fmt.Errorf("fetch camera config: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return RelayConfig{}, fmt.Errorf("fetch camera config: %w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var cfg RelayConfig
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxConfigSize)).Decode(&cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("decode camera config: %w", err)
	}

	if cfg.Host == "" || cfg.Src == "" {
		return RelayConfig{}, errIncompleteConfig
	}

	return cfg, nil
}

// SignalingURL builds ws(s)://host/api/ws?src=...&mode=webrtc.
func (c RelayConfig) SignalingURL(secure bool) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   c.Host,
		Path:   "/api/ws",
	}

	q := url.Values{}
	q.Set("src", c.Src)
	q.Set("mode", "webrtc")
	u.RawQuery = q.Encode()

	return u.String()
}
