package cli

import (
	"context"
	"os"

	"github.com/blocksentry/watchtower/internal/blockproc"
	"github.com/blocksentry/watchtower/internal/config"
	"github.com/blocksentry/watchtower/internal/walletregistry"

	"github.com/urfave/cli/v3"
)

// PipelineFactory builds the full processing pipeline for a loaded
// configuration and hands back a cleanup function that releases whatever
// resources the factory opened (database connections, bot clients),
// regardless of whether the pipeline was ever started.
type PipelineFactory func(ctx context.Context, cfg *config.Config) (blockproc.Service, func(), error)

// WalletRegistryFactory builds the wallet registry service for a loaded
// configuration.
type WalletRegistryFactory func(ctx context.Context, cfg *config.Config) (walletregistry.Service, func(), error)

// Run initializes and executes the watchtower CLI application.
//
// It registers all available commands, including:
//
//   - `run`: loads a named configuration and starts the full pipeline.
//   - `watch`: registers a wallet for monitoring.
//   - `unwatch`: unregisters a wallet from monitoring.
//
// Both factories are invoked lazily, once per command, after the named
// configuration has been loaded.
func Run(ctx context.Context, pipelines PipelineFactory, registries WalletRegistryFactory) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "watchtower",
		Description:           "Command-line interface for running the Watchtower wallet-activity monitor.",
		Usage:                 "watchtower [command] [flags]",
		Commands: []*cli.Command{
			runPipelineCommand(pipelines),
			startWatchingWalletCommand(registries),
			stopWatchingWalletCommand(registries),
		},
	}

	return app.Run(ctx, os.Args)
}
