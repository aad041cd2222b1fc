package main

import (
	"fmt"
	"os"

	"github.com/aretw0/funnel/internal/cli"
	"github.com/aretw0/funnel/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Funnel is a resumable quiz funnel sequencer",
	Long: `Funnel walks visitors through an ordered quiz, persists their progress per device,
mirrors it to a remote session store and hands off to checkout.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("env", "", "Path to a .env file (default ./.env)")
	pf.String("dir", "", "State directory (overrides FUNNEL_STATE_DIR)")
	pf.String("catalog", "", "Catalog file replacing the embedded quiz (overrides FUNNEL_CATALOG)")
	pf.Bool("debug", false, "Enable debug logging on stderr")
}

// loadConfig reads the environment and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var files []string
	if env, _ := cmd.Flags().GetString("env"); env != "" {
		files = append(files, env)
	}

	// Validation runs once the flags are applied.
	cfg, _ := config.Load(files...)

	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.SetStateDir(dir)
	}
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		cfg.CatalogPath = path
	}
	return cfg, cfg.Validate()
}

// newApp wires the application from cfg.
func newApp(cmd *cobra.Command, cfg config.Config) (*cli.App, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	logger := cli.NewLogger(cfg.LogLevel, cfg.LogJSON, debug)
	return cli.Build(cmd.Context(), cfg, logger)
}
