package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandwichfarm/nsyte/internal/blossom"
	"github.com/sandwichfarm/nsyte/internal/config"
	"github.com/sandwichfarm/nsyte/internal/hasher"
	"github.com/sandwichfarm/nsyte/internal/manifest"
	"github.com/sandwichfarm/nsyte/internal/nostr"
	"github.com/sandwichfarm/nsyte/internal/scanner"
)

var flagLsPubkey string

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List a site's remote file manifest without syncing",
	Long: `ls fetches the remote manifest for a site from the relays, HEAD-probes each
file's blob on the configured Blossom servers, and prints every path with its digest
and how many servers hold it. Useful for inspecting what's published without touching
local files or uploading anything.`,
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().StringVar(&flagLsPubkey, "pubkey", "", "hex pubkey to list (defaults to the configured signer's pubkey)")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(config.ProjectPath(flagProjectRoot))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pubkeyHex := flagLsPubkey
	if pubkeyHex == "" {
		store := config.NewSecretStore()
		signer, err := buildSigner(ctx, flagPrivateKey, flagBunker, flagNbunksec, store, flagProjectRoot)
		if err != nil {
			return fmt.Errorf("resolving pubkey: %w (or pass --pubkey)", err)
		}
		defer signer.Close()
		pubkeyHex = signer.PublicKey()
	}

	pool := nostr.NewRelayPool(ctx, cfg.Relays)
	defer pool.Close()

	entries := manifest.Fetch(ctx, pool, nostr.PubKeyFromHex(pubkeyHex))
	if len(entries) == 0 {
		fmt.Println("no files published")
		return nil
	}

	digests := make([]hasher.Digest, len(entries))
	for i, e := range entries {
		digests[i] = hasher.Digest{File: scanner.File{Path: e.Path}, SHA256: e.Digest}
	}

	prober := blossom.NewProber(cfg.Servers)
	probes, err := prober.ProbeAll(ctx, digests)
	if err != nil {
		return fmt.Errorf("probing servers: %w", err)
	}

	for i, e := range entries {
		p := probes[i]
		status := "missing"
		if p.Present {
			status = fmt.Sprintf("on %d server(s)", len(p.OnServers))
		}
		fmt.Printf("%s\t%s\t%s\n", e.Path, e.Digest, status)
	}
	return nil
}
