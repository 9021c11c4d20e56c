package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandwichfarm/nsyte/internal/config"
	"github.com/sandwichfarm/nsyte/internal/nostr"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Retry events that could not be published on a previous run",
	Long: `drain reads the project's local spool of events that failed to reach any
relay and retries them now, respecting each entry's backoff window.`,
	RunE: runDrain,
}

func init() {
	rootCmd.AddCommand(drainCmd)
}

func runDrain(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load(config.ProjectPath(flagProjectRoot))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pool := nostr.NewRelayPool(ctx, cfg.Relays)
	defer pool.Close()

	spool := nostr.NewSpool(flagProjectRoot)
	sent, failed, err := spool.Drain(ctx, pool)
	if err != nil {
		return fmt.Errorf("draining spool: %w", err)
	}

	fmt.Printf("drained: %d sent, %d failed again\n", sent, failed)
	return nil
}
