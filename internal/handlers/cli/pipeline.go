package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blocksentry/watchtower/internal/config"

	"github.com/urfave/cli/v3"
)

// runPipelineCommand returns a CLI command that loads a named configuration
// and starts the full block processing pipeline: block ingestion,
// watchlist matching, decoding, and delivery.
//
// Usage example:
//
//	watchtower run mainnet
//
// The process runs indefinitely until it receives an interrupt (SIGINT or
// SIGTERM).
func runPipelineCommand(build PipelineFactory) *cli.Command {
	return &cli.Command{
		Name:        "run",
		Description: "Loads the named configuration and runs the full pipeline until interrupted.",
		Usage:       "Initializes and runs the pipeline for <config-name>. Terminates gracefully on Ctrl+C or termination signals.",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "config-name"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.StringArg("config-name")
			if name == "" {
				return fmt.Errorf("run: missing required <config-name> argument")
			}

			cfg, err := config.Load(name)
			if err != nil {
				return err
			}

			pipeline, cleanup, err := build(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			quit := make(chan os.Signal, 1)
			defer close(quit)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			if err := pipeline.Start(ctx); err != nil {
				return err
			}
			defer pipeline.Close()

			<-quit
			return nil
		},
	}
}
