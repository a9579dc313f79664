package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage tracked channels and playlists",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked sources",
		RunE:  runSourcesList,
	}

	addChannelCmd := &cobra.Command{
		Use:   "add-channel <handle>",
		Short: "Track a channel by handle",
		Long:  "Tracks a YouTube channel. The handle is the @-name from the channel URL, with or without the leading @.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSourcesAddChannel,
	}
	addChannelCmd.Flags().String("name", "", "Display name (defaults to the handle)")
	addChannelCmd.Flags().Int("max-videos", 0, "Only materialize the N most recent videos per cycle")
	addChannelCmd.Flags().Int("max-age-days", 0, "Ignore videos older than N days")

	addPlaylistCmd := &cobra.Command{
		Use:   "add-playlist <playlist-id>",
		Short: "Track a playlist by id",
		Args:  cobra.ExactArgs(1),
		RunE:  runSourcesAddPlaylist,
	}
	addPlaylistCmd.Flags().String("name", "", "Display name (defaults to the playlist id)")
	addPlaylistCmd.Flags().Int("max-videos", 0, "Only materialize the N most recent videos per cycle")

	removeCmd := &cobra.Command{
		Use:   "remove <source>",
		Short: "Stop tracking a source",
		Long:  "Removes a source by id or name and deletes its materialized media directory.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSourcesRemove,
	}

	resetCmd := &cobra.Command{
		Use:   "reset <source>",
		Short: "Reset a source for full re-sync",
		Long:  "Clears the source's watermark and deletes its media directory so the next cycle rebuilds everything.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSourcesReset,
	}

	sourcesCmd.AddCommand(listCmd)
	sourcesCmd.AddCommand(addChannelCmd)
	sourcesCmd.AddCommand(addPlaylistCmd)
	sourcesCmd.AddCommand(removeCmd)
	sourcesCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	sources, err := client.Sources()
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(sources)
		return nil
	}

	if len(sources) == 0 {
		fmt.Println("No sources tracked.")
		return nil
	}

	fmt.Printf("Sources (%d):\n\n", len(sources))
	fmt.Printf("  %-36s %-8s %-30s %-7s %s\n", "ID", "KIND", "NAME", "VIDEOS", "LAST CHECKED")
	fmt.Println("  " + strings.Repeat("-", 100))
	for i := range sources {
		src := &sources[i]
		name := src.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		checked := "never"
		if !src.LastChecked.IsZero() {
			checked = src.LastChecked.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %-36s %-8s %-30s %-7d %s\n", src.ID, src.Kind, name, src.VideoCount, checked)
	}
	return nil
}

func runSourcesAddChannel(cmd *cobra.Command, args []string) error {
	handle := strings.TrimPrefix(args[0], "@")
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = handle
	}

	req := SourceRequest{Kind: "channel", Name: name, Handle: handle}
	if n, _ := cmd.Flags().GetInt("max-videos"); n > 0 {
		req.MaxVideos = &n
	}
	if n, _ := cmd.Flags().GetInt("max-age-days"); n > 0 {
		req.MaxAgeDays = &n
	}

	client := NewClient(serverURL)
	src, err := client.AddSource(req)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(src)
		return nil
	}
	fmt.Printf("Tracking channel %q (%s)\n", src.Name, src.ID)
	return nil
}

func runSourcesAddPlaylist(cmd *cobra.Command, args []string) error {
	playlistID := args[0]
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = playlistID
	}

	req := SourceRequest{Kind: "playlist", Name: name, PlaylistID: playlistID}
	if n, _ := cmd.Flags().GetInt("max-videos"); n > 0 {
		req.MaxVideos = &n
	}

	client := NewClient(serverURL)
	src, err := client.AddSource(req)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(src)
		return nil
	}
	fmt.Printf("Tracking playlist %q (%s)\n", src.Name, src.ID)
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	src, err := client.FindSource(args[0])
	if err != nil {
		return err
	}

	if err := client.DeleteSource(src.ID); err != nil {
		return err
	}
	fmt.Printf("Removed %q (%s)\n", src.Name, src.ID)
	return nil
}

func runSourcesReset(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	src, err := client.FindSource(args[0])
	if err != nil {
		return err
	}

	if err := client.ResetSource(src.ID); err != nil {
		return err
	}
	fmt.Printf("Reset %q (%s); next cycle will rebuild from scratch\n", src.Name, src.ID)
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
