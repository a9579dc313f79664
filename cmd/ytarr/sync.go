package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	syncCmd := &cobra.Command{
		Use:   "sync <source>",
		Short: "Trigger an immediate sync cycle for a source",
		Long:  "Starts a sync cycle on the server for the source named by id or display name. The cycle runs in the background; use 'ytarr history' to see its outcome.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSync,
	}
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	src, err := client.FindSource(args[0])
	if err != nil {
		return err
	}

	if err := client.TriggerSync(src.ID); err != nil {
		return err
	}
	fmt.Printf("Sync started for %q (%s)\n", src.Name, src.ID)
	return nil
}
