package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SteelMorgan/log-viewer/internal/config"
	"github.com/SteelMorgan/log-viewer/internal/mcp"
	"github.com/SteelMorgan/log-viewer/internal/observability"
	"github.com/SteelMorgan/log-viewer/internal/service"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	closeLog := observability.InitLogger(cfg.LogLevel, cfg.LogFile)
	defer closeLog()

	log.Info().
		Str("version", version).
		Str("transport", cfg.Transport).
		Msg("Starting log viewer")

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    "log-viewer",
		ServiceVersion: version,
		Endpoint:       cfg.TracingEndpoint,
		Protocol:       cfg.TracingProtocol,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracer")
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error shutting down tracer")
		}
	}()

	svc, err := service.NewViewerService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create viewer service")
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	server, err := mcp.NewServer(svc.Handler(), cfg.HTTPPort, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	switch cfg.Transport {
	case "stdio":
		err = server.RunStdio(ctx)
	default:
		log.Info().Int("port", cfg.HTTPPort).Msg("Serving HTTP tool endpoints")
		err = server.Start(ctx)
	}

	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Server error")
		return
	}

	log.Info().Msg("Log viewer stopped")
}
