package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "ytarr",
	Short: "CLI client for the ytarr daemon",
	Long: `ytarr - CLI client for the ytarr daemon

Manage tracked YouTube channels and playlists, trigger syncs,
and inspect the daemon's library state.

Run 'ytarrd' to start the server daemon.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8090", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("ytarr {{.Version}}\n")
}
