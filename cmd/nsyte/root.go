// Command nsyte publishes a local directory to Nostr relays and Blossom servers as a
// signed, content-addressed static site, and keeps the remote copy in sync with the
// local one on each run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagProjectRoot string
	flagVerbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "nsyte",
	Short: "Sync a static site to Nostr + Blossom",
	Long: `nsyte publishes a local directory as a decentralized static site: every file's
content digest is announced as a signed Nostr event, and the file itself is uploaded
to one or more Blossom blob servers. Running it again only transfers what changed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProjectRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
