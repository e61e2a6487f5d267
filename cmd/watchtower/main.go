// Command watchtower runs the wallet-activity monitoring pipeline, or
// manages the wallets it watches, depending on the subcommand invoked.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/blocksentry/watchtower/internal/handlers/cli"
	"github.com/blocksentry/watchtower/internal/pkg/logger"
	"github.com/blocksentry/watchtower/internal/pkg/telemetry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := logger.Init(logger.WithLevel(envOr("WATCHTOWER_LOG_LEVEL", "info"))); err != nil {
		log.Fatalf("watchtower: configuring logger: %v", err)
	}
	defer logger.Sync()

	shutdownTelemetry, err := telemetry.Init(ctx, "watchtower")
	if err != nil {
		logger.Warn(ctx, "telemetry disabled: initialization failed", "error", err)
	} else {
		defer shutdownTelemetry(context.Background())
	}

	if err := cli.Run(ctx, buildPipeline, buildWalletRegistry); err != nil {
		logger.Error(ctx, "watchtower exited with error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
