package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	status, err := client.Status()
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(status)
		return nil
	}

	fmt.Printf("Server:     %s (%s)\n", serverURL, status.Status)
	fmt.Printf("Version:    %s\n", status.Version)
	fmt.Printf("Sources:    %d\n", status.Sources)
	if status.Paused {
		fmt.Printf("Background: paused\n")
	} else {
		fmt.Printf("Background: running\n")
	}
	return nil
}
