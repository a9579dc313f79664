package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync cycles",
		RunE:  runHistory,
	}
	historyCmd.Flags().StringP("source", "s", "", "Filter by source id or name")
	historyCmd.Flags().IntP("limit", "l", 20, "Maximum number of records")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	sourceRef, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")

	client := NewClient(serverURL)

	var sourceID string
	if sourceRef != "" {
		src, err := client.FindSource(sourceRef)
		if err != nil {
			return err
		}
		sourceID = src.ID
	}

	records, err := client.History(sourceID, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(records)
		return nil
	}

	if len(records) == 0 {
		fmt.Println("No sync history.")
		return nil
	}

	fmt.Printf("  %-16s %-30s %-6s %-8s %s\n", "STARTED", "SOURCE", "NEW", "TOOK", "RESULT")
	fmt.Println("  " + strings.Repeat("-", 80))
	for i := range records {
		rec := &records[i]
		name := rec.SourceName
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		result := "ok"
		if rec.Error != "" {
			result = rec.Error
			if len(result) > 40 {
				result = result[:37] + "..."
			}
		}
		took := rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second)
		fmt.Printf("  %-16s %-30s %-6d %-8s %s\n",
			rec.StartedAt.Format("2006-01-02 15:04"), name, rec.NewVideos, took, result)
	}
	return nil
}
