package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/coach_booking/internal/app"
	"github.com/Freeeeeet/coach_booking/internal/config"
	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

var CLI struct {
	Version kong.VersionFlag

	Serve            ServeCmd            `cmd:"" help:"Run the HTTP API and reminder scheduler." default:"1"`
	Migrate          MigrateCmd          `cmd:"" help:"Apply database migrations."`
	SeedAvailability SeedAvailabilityCmd `cmd:"" help:"Install Mon-Fri 09:00-17:00 availability for a coach."`
	RenderWeek       RenderWeekCmd       `cmd:"" help:"Render a coach's week as PNG."`
}

// runContext is shared by every command.
type runContext struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("coachd"),
		kong.Description("Coach availability and booking engine"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogFile)
	defer func() { _ = logger.Sync() }()

	if cfg.EnvFileLoaded {
		logger.Debug("Loaded configuration from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := kctx.Run(&runContext{ctx: ctx, cfg: cfg, logger: logger}); err != nil {
		logger.Error("Command failed", zap.String("command", kctx.Command()), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// withApp builds the engine for one command and releases it afterwards.
func withApp(rc *runContext, fn func(*app.App) error) error {
	a, err := app.New(rc.ctx, rc.cfg, rc.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			rc.logger.Warn("Failed to close resources", zap.Error(err))
		}
	}()

	return fn(a)
}
