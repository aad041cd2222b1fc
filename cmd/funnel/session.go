package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved quiz progress",
	Long:  `List, inspect, and remove the per-device progress kept by the device store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List devices with saved progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		devices, err := app.Manager.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing devices: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(devices) == 0 {
			fmt.Fprintln(out, "No saved progress found.")
			return nil
		}
		fmt.Fprintln(out, "Devices:")
		for _, d := range devices {
			fmt.Fprintln(out, "- "+d)
		}
		return nil
	},
}

type inspection struct {
	Device string                `json:"device"`
	Keys   map[string]string     `json:"keys"`
	Remote *domain.RemoteSession `json:"remote,omitempty"`
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <device>",
	Short: "Show the stored keys of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		device := args[0]
		keys, err := app.Inspect(cmd.Context(), device)
		if err != nil {
			return fmt.Errorf("error loading device '%s': %w", device, err)
		}
		if len(keys) == 0 {
			return fmt.Errorf("no saved progress for device '%s'", device)
		}

		res := inspection{Device: device, Keys: keys}
		if reader, ok := app.Sessions.(ports.SessionReader); ok && keys[domain.KeySessionID] != "" {
			remote, err := reader.Get(cmd.Context(), keys[domain.KeySessionID])
			switch {
			case err == nil:
				res.Remote = remote
			case !errors.Is(err, domain.ErrSessionNotFound):
				return fmt.Errorf("error loading remote session: %w", err)
			}
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling state: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm [device]...",
	Short: "Remove the saved progress of one or more devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("name at least one device or pass --all")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		devices := args
		if all {
			if devices, err = app.Manager.List(cmd.Context()); err != nil {
				return fmt.Errorf("error listing devices: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var errs []error
		for _, device := range devices {
			if err := app.Manager.Purge(cmd.Context(), device); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", device, err))
				continue
			}
			fmt.Fprintf(out, "Removed device '%s'\n", device)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every device")
}
