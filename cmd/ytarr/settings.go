package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "View and change runtime settings",
		RunE:  runSettingsShow,
	}

	setAddressCmd := &cobra.Command{
		Use:   "set-address <url>",
		Short: "Set the address written into .strm stubs",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsSetAddress,
	}

	setIntervalCmd := &cobra.Command{
		Use:   "set-interval <minutes>",
		Short: "Set the rescan interval in minutes",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsSetInterval,
	}

	setMediaPathCmd := &cobra.Command{
		Use:   "set-media-path <dir>",
		Short: "Set the media library root (must exist on the server)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsSetMediaPath,
	}

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Toggle background rescans on or off",
		RunE:  runSettingsPause,
	}

	maintenanceCmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Toggle proactive manifest cache maintenance",
		RunE:  runSettingsMaintenance,
	}

	settingsCmd.AddCommand(setAddressCmd)
	settingsCmd.AddCommand(setIntervalCmd)
	settingsCmd.AddCommand(setMediaPathCmd)
	settingsCmd.AddCommand(pauseCmd)
	settingsCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	settings, err := client.Settings()
	if err != nil {
		return err
	}
	printSettings(settings)
	return nil
}

func printSettings(s *SettingsResponse) {
	if jsonOutput {
		printJSON(s)
		return
	}
	fmt.Printf("Server address:       %s\n", s.ServerAddress)
	fmt.Printf("Check interval:       %d minutes\n", s.CheckIntervalMinutes)
	fmt.Printf("Media path:           %s\n", s.MediaPath)
	fmt.Printf("Background tasks:     %s\n", onOff(!s.Paused, "running", "paused"))
	fmt.Printf("Manifest maintenance: %s\n", onOff(s.MaintainManifestCache, "on", "off"))
}

func onOff(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

func runSettingsSetAddress(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	var settings SettingsResponse
	body := map[string]string{"server_address": args[0]}
	if err := client.put("/api/v1/settings/server-address", body, &settings); err != nil {
		return err
	}
	printSettings(&settings)
	return nil
}

func runSettingsSetInterval(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes <= 0 {
		return fmt.Errorf("interval must be a positive number of minutes")
	}

	client := NewClient(serverURL)
	var settings SettingsResponse
	body := map[string]int{"check_interval_minutes": minutes}
	if err := client.put("/api/v1/settings/check-interval", body, &settings); err != nil {
		return err
	}
	printSettings(&settings)
	return nil
}

func runSettingsSetMediaPath(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	var settings SettingsResponse
	body := map[string]string{"media_path": args[0]}
	if err := client.put("/api/v1/settings/media-path", body, &settings); err != nil {
		return err
	}
	printSettings(&settings)
	return nil
}

func runSettingsPause(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	var settings SettingsResponse
	if err := client.post("/api/v1/settings/pause", nil, &settings); err != nil {
		return err
	}
	printSettings(&settings)
	return nil
}

func runSettingsMaintenance(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	var settings SettingsResponse
	if err := client.post("/api/v1/settings/maintenance", nil, &settings); err != nil {
		return err
	}
	printSettings(&settings)
	return nil
}
