package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandwichfarm/nsyte/internal/config"
	"github.com/sandwichfarm/nsyte/internal/nostr"
	"github.com/sandwichfarm/nsyte/internal/pipeline"
	"github.com/sandwichfarm/nsyte/internal/progress"
	"github.com/sandwichfarm/nsyte/internal/publish"
	"github.com/sandwichfarm/nsyte/internal/telemetry"
)

var (
	flagForce             bool
	flagPurge             bool
	flagDryRun            bool
	flagConcurrency       int
	flagServers           []string
	flagRelays            []string
	flagPrivateKey        string
	flagBunker            string
	flagNbunksec          string
	flagFallback          string
	flagPublishServerList bool
	flagPublishRelayList  bool
	flagPublishProfile    bool
	flagNonInteractive    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan, diff, and sync the project against Nostr + Blossom",
	Long: `run is the default sync operation: it scans the local project, fetches the
remote manifest, computes what changed, uploads new or changed files, publishes their
manifest events, and (with --purge) deletes remote files no longer present locally.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&flagForce, "force", false, "re-transfer every local file regardless of digest match")
	runCmd.Flags().BoolVar(&flagPurge, "purge", false, "delete remote files with no local counterpart")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "compute and print the sync plan without transferring anything")
	runCmd.Flags().IntVar(&flagConcurrency, "concurrency", config.DefaultConcurrency, "max concurrent file uploads")
	runCmd.Flags().StringSliceVar(&flagServers, "servers", nil, "Blossom server URLs (overrides config)")
	runCmd.Flags().StringSliceVar(&flagRelays, "relays", nil, "Nostr relay URLs (overrides config)")
	runCmd.Flags().StringVar(&flagPrivateKey, "privatekey", "", "hex-encoded private key to sign with")
	runCmd.Flags().StringVar(&flagBunker, "bunker", "", "bunker:// URI for NIP-46 remote signing")
	runCmd.Flags().StringVar(&flagNbunksec, "nbunksec", "", "stored bunker token to sign with")
	runCmd.Flags().StringVar(&flagFallback, "fallback", "", "path to upload as the site's fallback/404 document")
	runCmd.Flags().BoolVar(&flagPublishServerList, "publish-server-list", false, "also publish a kind-10063 Blossom server list")
	runCmd.Flags().BoolVar(&flagPublishRelayList, "publish-relay-list", false, "also publish a kind-10002 relay list")
	runCmd.Flags().BoolVar(&flagPublishProfile, "publish-profile", false, "also publish the configured kind-0 profile")
	runCmd.Flags().BoolVar(&flagNonInteractive, "non-interactive", false, "disable the interactive progress renderer")
}

func runRun(cmd *cobra.Command, args []string) error {
	if flagNonInteractive {
		os.Setenv("NSYTE_NON_INTERACTIVE", "true")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	cfg, err := config.Load(config.ProjectPath(flagProjectRoot))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(flagServers) > 0 {
		cfg.Servers = flagServers
	}
	if len(flagRelays) > 0 {
		cfg.Relays = flagRelays
	}
	if cmd.Flags().Changed("concurrency") && flagConcurrency > 0 {
		cfg.Concurrency = flagConcurrency
	}
	if flagFallback != "" {
		cfg.Fallback = flagFallback
	}

	store := config.NewSecretStore()
	signer, err := buildSigner(ctx, flagPrivateKey, flagBunker, flagNbunksec, store, flagProjectRoot)
	if err != nil {
		return err
	}
	defer signer.Close()

	telemetryProvider, err := telemetry.New(ctx)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer telemetryProvider.Shutdown(context.Background())

	collector := progress.NewCollector(telemetryProvider.Meter())

	done := make(chan struct{})
	if progress.Interactive(os.Stdout) {
		p := progress.NewProgram(collector, done)
		go func() {
			_, _ = p.Run()
		}()
	}

	report := pipeline.Run(ctx, pipeline.Options{
		ProjectRoot: flagProjectRoot,
		Force:       flagForce,
		Purge:       flagPurge,
		DryRun:      flagDryRun,
		Signer:      signer,
		Collector:   collector,
		Fallback:    cfg.Fallback,
	}, cfg)
	close(done)

	if !progress.Interactive(os.Stdout) {
		progress.HeadlessRender(os.Stdout, collector)
	}

	if !flagDryRun {
		if err := publishOptionalMetadata(ctx, cfg, signer); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	if report.Err != nil {
		return report.Err
	}

	progress.RenderSummary(os.Stdout, progress.Summary{
		RunID:      report.RunID,
		Scanned:    report.Scanned,
		Uploaded:   report.Uploaded,
		UploadFail: report.UploadFail,
		Published:  report.Published,
		Deleted:    report.Deleted,
		Unchanged:  report.Unchanged,
	})

	if code := report.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

func publishOptionalMetadata(ctx context.Context, cfg *config.ProjectConfig, signer nostr.Signer) error {
	if !flagPublishServerList && !flagPublishRelayList && !flagPublishProfile {
		return nil
	}

	pool := nostr.NewRelayPool(ctx, cfg.Relays)
	defer pool.Close()
	publisher := publish.NewPublisher(signer, pool)

	// Best-effort: a metadata publish failure does not roll back an otherwise
	// successful file sync, it is only surfaced as a warning.
	if flagPublishServerList {
		if _, err := publisher.PublishServerList(ctx, cfg.Servers); err != nil {
			return fmt.Errorf("publishing server list: %w", err)
		}
	}
	if flagPublishRelayList {
		entries := make([]nostr.RelayListEntry, len(cfg.Relays))
		for i, r := range cfg.Relays {
			entries[i] = nostr.RelayListEntry{URL: r, Marker: nostr.RelayReadWrite}
		}
		if _, err := publisher.PublishRelayList(ctx, entries); err != nil {
			return fmt.Errorf("publishing relay list: %w", err)
		}
	}
	if flagPublishProfile && cfg.Profile != "" {
		if _, err := publisher.PublishProfile(ctx, cfg.Profile); err != nil {
			return fmt.Errorf("publishing profile: %w", err)
		}
	}
	return nil
}
