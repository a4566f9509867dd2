package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fieldops-service/internal/client"
	"fieldops-service/internal/config"
	"fieldops-service/internal/location"
	"fieldops-service/internal/logger"
)

// field-agent runs on a technician device while clocked in and reports the
// latest GPS fix to the API on a fixed interval.
func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewFieldClient(cfg)
	sink := func(ctx context.Context, fix location.Fix) error {
		return api.PushLocation(ctx, cfg.ClockEntryID, fix)
	}

	tracker := location.NewTracker(
		location.NewFileSource(cfg.FixFile),
		sink,
		cfg.RefreshInterval,
		cfg.LocationTimeout,
		appLogger,
	)

	appLogger.Info().
		Str("clock_entry_id", cfg.ClockEntryID).
		Dur("interval", cfg.RefreshInterval).
		Msg("starting field agent")

	tracker.Run(ctx)
	appLogger.Info().Msg("field agent stopped")
}
