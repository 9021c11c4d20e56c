package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandwichfarm/nsyte/internal/config"
	"github.com/sandwichfarm/nsyte/internal/nostr"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report relay connectivity and spool backlog",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	cfg, err := config.Load(config.ProjectPath(flagProjectRoot))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pool := nostr.NewRelayPool(ctx, cfg.Relays)
	defer pool.Close()

	spool := nostr.NewSpool(flagProjectRoot)

	signerStatus := "not configured"
	switch {
	case flagPrivateKey != "":
		signerStatus = "local key"
	case flagBunker != "" || flagNbunksec != "":
		signerStatus = "bunker"
	case cfg.BunkerPubkey != "":
		signerStatus = "bunker (stored)"
	}

	status := nostr.CheckHealth(pool, spool, signerStatus)
	fmt.Print(nostr.FormatHealthStatus(status))
	return nil
}
