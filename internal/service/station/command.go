package station

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/ice-station/internal/alert"
	"github.com/oshokin/ice-station/internal/api/grpc/health"
	"github.com/oshokin/ice-station/internal/api/http/control"
	"github.com/oshokin/ice-station/internal/config"
	"github.com/oshokin/ice-station/internal/domain/event"
	"github.com/oshokin/ice-station/internal/engine"
	"github.com/oshokin/ice-station/internal/hub"
	"github.com/oshokin/ice-station/internal/journal"
	"github.com/oshokin/ice-station/internal/logger"
	"github.com/oshokin/ice-station/internal/metrics"
	"github.com/oshokin/ice-station/internal/peer"
	"github.com/oshokin/ice-station/internal/service/common"
	"github.com/oshokin/ice-station/internal/signaling"
	"github.com/oshokin/ice-station/internal/version"
)

// Options controls the station process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// HubURL overrides the hub WebSocket URL from the settings.
	HubURL string
	// ClientName overrides the name announced to the hub.
	ClientName string
}

// seenCapacity bounds the remembered event ids.
const seenCapacity = 4096

// Run connects to the hub and serves the station until ctx is canceled or a
// component fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "ice-station")

	settings, err := resolveSettings(opts)
	if err != nil {
		return err
	}

	applyLogLevel(settings.LogLevel)

	m := metrics.New()
	log := journal.New(settings.JournalSize)
	healthServer := health.NewServer()

	channel := hub.NewClient(settings.HubURL,
		hub.WithReconnectInterval(settings.ReconnectInterval),
		hub.WithWriteTimeout(settings.Timeout),
		hub.WithUserAgent(version.UserAgent()),
	)

	eng := engine.New(engine.Settings{
		ClientName:       settings.ClientName,
		ClientType:       event.ClientType(settings.ClientType),
		Window:           settings.SuppressionWindow,
		TickInterval:     settings.TickInterval,
		HeartbeatTimeout: settings.HeartbeatTimeout,
		SoundEnabled:     settings.SoundEnabled,
		SeenCapacity:     seenCapacity,
	}, engine.Deps{
		Channel: channel,
		Inbound: channel.Inbound(),
		Output:  alert.LogOutput{},
		Journal: log,
		Metrics: m,
		Health:  healthServer,
	})

	logger.InfoKV(ctx, "Station starting",
		"version", version.Short(),
		"client_name", settings.ClientName,
		"client_type", settings.ClientType,
		"hub_url", settings.HubURL,
		"profile", settings.Profile,
		"suppression_window", settings.SuppressionWindow,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err = config.Watch(ctx, opts.ConfigPath, func(r config.Reloadable) {
		applyLogLevel(r.LogLevel)
		eng.SetSoundEnabled(r.SoundEnabled)
	}); err != nil {
		// Hot reload is optional; the station runs with the loaded settings.
		logger.WarnKV(ctx, "Settings watcher disabled", "error", err)
	}

	components := map[string]func(context.Context) error{
		"engine": eng.Run,
		"hub":    channel.Run,
	}

	if settings.CameraConfigURL != "" {
		camera := signaling.New(signaling.Options{
			ConfigURL: settings.CameraConfigURL,
			Secure:    settings.SignalingTLS,
			NewPeer:   peer.Factory(settings.ICEServers),
			Interval:  settings.CameraSuperviseInterval,
			Timeout:   settings.Timeout,
			UserAgent: version.UserAgent(),
			OnState:   eng.ReportCamera,
			OnRestart: m.CameraRestarts.Inc,
		})
		components["camera"] = camera.Run
	}

	if settings.ControlAddress != "" {
		router := control.NewRouter(eng, log,
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry}),
			settings.Timeout,
		)
		components["control"] = func(ctx context.Context) error {
			return control.Serve(ctx, settings.ControlAddress, router)
		}
	}

	if settings.HealthAddress != "" {
		components["health"] = func(ctx context.Context) error {
			return healthServer.ListenAndServe(ctx, settings.HealthAddress)
		}
	}

	err = runAll(ctx, components)

	logger.Info(ctx, "Station stopped")

	return err
}

// resolveSettings loads the settings file and applies command line overrides.
func resolveSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.HubURL != "" {
		settings.HubURL = opts.HubURL
	}

	if opts.ClientName != "" {
		settings.ClientName = opts.ClientName
	}

	if err = config.Validate(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	if settings.ClientName == "" {
		if settings.ClientName, err = common.DetectClientName(); err != nil {
			return nil, fmt.Errorf("detect client name: %w", err)
		}
	}

	return settings, nil
}

// applyLogLevel switches the global logger to a configured level.
func applyLogLevel(level string) {
	if parsed, ok := logger.ParseLogLevel(level); ok {
		logger.SetLevel(parsed)
	}
}

// runAll starts every component and waits for all of them. The first failure
// cancels the rest and is returned.
func runAll(ctx context.Context, components map[string]func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	for name, run := range components {
		wg.Go(func() {
			err := run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}

			logger.ErrorKV(ctx, "Component failed", "component", name, "error", err)

			once.Do(func() {
				firstErr = fmt.Errorf("%s: %w", name, err)

				cancel()
			})
		})
	}

	wg.Wait()

	return firstErr
}
