package alert

import (
	"context"

	"github.com/oshokin/ice-station/internal/logger"
)

// LogOutput renders alerts to the station log.
type LogOutput struct{}

// ShowFlash implements Output.
func (LogOutput) ShowFlash(ctx context.Context) {
	logger.Debug(ctx, "Flash on")
}

// HideFlash implements Output.
func (LogOutput) HideFlash(ctx context.Context) {
	logger.Debug(ctx, "Flash off")
}

// ShowOverlay implements Output.
func (LogOutput) ShowOverlay(ctx context.Context, message string) {
	logger.WarnKV(ctx, "Alert", "message", message)
}

// HideOverlay implements Output.
func (LogOutput) HideOverlay(ctx context.Context) {
	logger.Info(ctx, "Alert cleared")
}

// StartSound implements Output.
func (LogOutput) StartSound(ctx context.Context) {
	logger.Info(ctx, "Alarm sound started")
}

// StopSound implements Output.
func (LogOutput) StopSound(ctx context.Context) {
	logger.Info(ctx, "Alarm sound stopped")
}
