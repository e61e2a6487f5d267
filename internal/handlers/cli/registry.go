package cli

import (
	"context"
	"fmt"

	"github.com/blocksentry/watchtower/internal/config"
	"github.com/blocksentry/watchtower/internal/walletregistry"

	"github.com/urfave/cli/v3"
)

// startWatchingWalletCommand returns a CLI command that allows operators to
// register a wallet address for activity monitoring under a given
// configuration's shared store.
//
// Usage example:
//
//	watchtower watch --config mainnet --network operator --address 0xABC123...
func startWatchingWalletCommand(build WalletRegistryFactory) *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Description: "Register a wallet to be monitored for transaction activity.",
		Usage:       "Registers a wallet address for watching. Must provide config, network, and address.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Required: true, Usage: "Configuration name to load"},
			&cli.StringFlag{Name: "network", Required: true, Usage: "Subscriber chat id the wallet is watched on behalf of"},
			&cli.StringFlag{Name: "address", Required: true, Usage: "Wallet address to start watching"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			wr, cleanup, err := buildWalletRegistry(ctx, build, c.String("config"))
			if err != nil {
				return err
			}
			defer cleanup()

			return wr.StartWatching(ctx, c.String("network"), c.String("address"))
		},
	}
}

// stopWatchingWalletCommand returns a CLI command that allows operators to
// unregister a wallet address from monitoring.
//
// Usage example:
//
//	watchtower unwatch --config mainnet --network operator --address 0xABC123...
func stopWatchingWalletCommand(build WalletRegistryFactory) *cli.Command {
	return &cli.Command{
		Name:        "unwatch",
		Description: "Unregister a wallet from being monitored.",
		Usage:       "Stops watching a wallet address. Must provide config, network, and address.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Required: true, Usage: "Configuration name to load"},
			&cli.StringFlag{Name: "network", Required: true, Usage: "Subscriber chat id the wallet is watched on behalf of"},
			&cli.StringFlag{Name: "address", Required: true, Usage: "Wallet address to stop watching"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			wr, cleanup, err := buildWalletRegistry(ctx, build, c.String("config"))
			if err != nil {
				return err
			}
			defer cleanup()

			return wr.StopWatching(ctx, c.String("network"), c.String("address"))
		},
	}
}

func buildWalletRegistry(ctx context.Context, build WalletRegistryFactory, configName string) (walletregistry.Service, func(), error) {
	if configName == "" {
		return nil, nil, fmt.Errorf("missing required --config flag")
	}
	cfg, err := config.Load(configName)
	if err != nil {
		return nil, nil, err
	}
	return build(ctx, cfg)
}
