package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/ice-station/internal/logger"
)

// Config holds the settings of one monitoring station.
type Config struct {
	// ClientName is the name announced to the hub; empty means "detect from the host".
	ClientName string `yaml:"client_name"`
	// ClientType is the roster type announced to the hub (pc, ha or html).
	ClientType string `yaml:"client_type"`
	// HubURL is the WebSocket URL of the hub channel.
	HubURL string `yaml:"hub_url"`
	// CameraConfigURL is the endpoint returning {host, src} for the camera feed.
	// Empty disables the camera session.
	CameraConfigURL string `yaml:"camera_config_url"`
	// SignalingTLS selects wss instead of ws for the signaling socket.
	SignalingTLS bool `yaml:"signaling_tls"`
	// ICEServers lists the STUN/TURN URLs used by the peer connection.
	ICEServers []string `yaml:"ice_servers"`
	// Profile picks the default window and tick (rich or simple).
	Profile string `yaml:"profile"`
	// SuppressionWindow is W: repeats of the same event kind inside it are continuations.
	SuppressionWindow time.Duration `yaml:"suppression_window"`
	// TickInterval is the period of the prune, liveness and render tick.
	TickInterval time.Duration `yaml:"tick_interval"`
	// HeartbeatTimeout is the maximum heartbeat age for the hub link to count as live.
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	// ReconnectInterval is the fixed delay between hub reconnect attempts.
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	// CameraSuperviseInterval is the period of the camera session supervisor.
	CameraSuperviseInterval time.Duration `yaml:"camera_supervise_interval"`
	// SoundEnabled turns the audio loop of raised alerts on or off.
	SoundEnabled bool `yaml:"sound_enabled"`
	// Timeout bounds dials and configuration fetches.
	Timeout time.Duration `yaml:"timeout"`
	// JournalSize caps the number of on-screen log lines kept in memory.
	JournalSize int `yaml:"journal_size"`
	// ControlAddress is the listen address of the local control API; empty disables it.
	ControlAddress string `yaml:"control_addr"`
	// HealthAddress is the listen address of the gRPC health service; empty disables it.
	HealthAddress string `yaml:"health_addr"`
	// LogLevel is the minimum level of the station logger.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for station settings.
	DefaultConfigFilename = "ice-station.yaml"

	// ProfileRich is the full build: 10s window, 1s tick.
	ProfileRich = "rich"
	// ProfileSimple is the reduced build: 15s window, 100ms tick.
	ProfileSimple = "simple"

	// DefaultClientType is the roster type of a dashboard station.
	DefaultClientType = "html"
	// DefaultHeartbeatTimeout is the heartbeat freshness bound.
	DefaultHeartbeatTimeout = 1 * time.Second
	// DefaultReconnectInterval is the fixed hub retry interval.
	DefaultReconnectInterval = 1 * time.Second
	// DefaultCameraSuperviseInterval is the camera supervisor period.
	DefaultCameraSuperviseInterval = 1 * time.Second
	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second
	// DefaultJournalSize is the default number of retained log lines.
	DefaultJournalSize = 500
	// DefaultICEServer is used when no ICE server is configured.
	DefaultICEServer = "stun:stun.l.google.com:19302"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errHubURLRequired is returned when the hub URL is missing.
	errHubURLRequired = errors.New("hub URL must be provided")
	// errUnsupportedScheme is returned for URLs with a scheme the station cannot dial.
	errUnsupportedScheme = errors.New("unsupported URL scheme")
	// errUnknownClientType is returned for a client type outside pc/ha/html.
	errUnknownClientType = errors.New("unknown client type")
	// errUnknownProfile is returned for a profile other than rich or simple.
	errUnknownProfile = errors.New("unknown profile")
	// errUnknownLogLevel is returned for an unparsable log level.
	errUnknownLogLevel = errors.New("unknown log level")
)

// profileDefaults maps a profile to its suppression window and tick interval.
//
//nolint:gochecknoglobals // Read-only lookup table.
var profileDefaults = map[string]struct{ window, tick time.Duration }{
	ProfileRich:   {window: 10 * time.Second, tick: 1 * time.Second},
	ProfileSimple: {window: 15 * time.Second, tick: 100 * time.Millisecond},
}

// Default returns settings with every field that has a non-zero default filled in.
// Profile dependent durations stay zero until Validate resolves the profile.
func Default() *Config {
	return &Config{
		ClientType:              DefaultClientType,
		ICEServers:              []string{DefaultICEServer},
		Profile:                 ProfileRich,
		HeartbeatTimeout:        DefaultHeartbeatTimeout,
		ReconnectInterval:       DefaultReconnectInterval,
		CameraSuperviseInterval: DefaultCameraSuperviseInterval,
		SoundEnabled:            true,
		Timeout:                 DefaultTimeout,
		JournalSize:             DefaultJournalSize,
		LogLevel:                "info",
	}
}

// Load reads configuration from the provided path, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	path = filepath.Clean(path)

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	ApplyEnv(cfg)

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills every unset default.
//
//nolint:cyclop // One flat list of independent checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.HubURL == "" {
		return errHubURLRequired
	}

	if err := checkURL(cfg.HubURL, "ws", "wss"); err != nil {
		return fmt.Errorf("invalid hub URL: %w", err)
	}

	if cfg.CameraConfigURL != "" {
		if err := checkURL(cfg.CameraConfigURL, "http", "https"); err != nil {
			return fmt.Errorf("invalid camera config URL: %w", err)
		}
	}

	cfg.ClientName = strings.TrimSpace(cfg.ClientName)

	if cfg.ClientType == "" {
		cfg.ClientType = DefaultClientType
	}

	if !slices.Contains([]string{"pc", "ha", "html"}, cfg.ClientType) {
		return fmt.Errorf("%w: %q", errUnknownClientType, cfg.ClientType)
	}

	if cfg.Profile == "" {
		cfg.Profile = ProfileRich
	}

	defaults, ok := profileDefaults[cfg.Profile]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownProfile, cfg.Profile)
	}

	if cfg.SuppressionWindow <= 0 {
		cfg.SuppressionWindow = defaults.window
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.tick
	}

	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}

	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}

	if cfg.CameraSuperviseInterval <= 0 {
		cfg.CameraSuperviseInterval = DefaultCameraSuperviseInterval
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.JournalSize <= 0 {
		cfg.JournalSize = DefaultJournalSize
	}

	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = []string{DefaultICEServer}
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	return nil
}

// checkURL parses raw and ensures it carries one of the allowed schemes and a host.
func checkURL(raw string, schemes ...string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}

	if !slices.Contains(schemes, parsed.Scheme) {
		return fmt.Errorf("%w: %q", errUnsupportedScheme, parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}

	return nil
}
