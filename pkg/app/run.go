package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flemzord/fitagent/internal/config"
)

const shutdownTimeout = 10 * time.Second

// RunParams configures Serve.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version is injected at build time via ldflags.
	Version string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer

	// Options are passed to New.
	Options []Option
}

// LoadConfig resolves, loads, and validates the configuration.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Setup loads configuration and builds the logger and the App.
func Setup(ctx context.Context, params RunParams) (*App, *slog.Logger, error) {
	cfg, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := NewLogger(cfg, out)
	if err != nil {
		return nil, nil, err
	}

	opts := append([]Option{WithVersion(params.Version)}, params.Options...)
	a, err := New(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

// Serve starts the gateway and blocks until SIGINT or SIGTERM, or until ctx
// is cancelled, then shuts everything down.
func Serve(ctx context.Context, params RunParams) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, logger, err := Setup(ctx, params)
	if err != nil {
		return err
	}

	gw, err := a.Gateway()
	if err != nil {
		_ = a.Close(context.Background())
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close(context.Background())
		return fmt.Errorf("starting app: %w", err)
	}
	if err := gw.Start(ctx); err != nil {
		_ = a.Close(context.Background())
		return err
	}

	logger.Info("fitagent started", "version", params.Version, "addr", gw.Addr())
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	gwErr := gw.Stop(shutdownCtx)
	appErr := a.Close(shutdownCtx)
	logger.Info("shutdown complete")
	if gwErr != nil {
		return gwErr
	}
	return appErr
}
