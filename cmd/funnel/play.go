package main

import (
	"os"

	"github.com/aretw0/funnel/internal/cli"
	"github.com/aretw0/funnel/internal/config"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Take the quiz in the terminal",
	Long: `Plays the quiz for one device, resuming where it left off.
Type ':help' during the quiz for navigation commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if os.Getenv(config.EnvLogLevel) == "" {
			// Info logs would interleave with the quiz.
			cfg.LogLevel = "warn"
		}

		app, err := newApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		flags := cmd.Flags()
		opts := cli.PlayOptions{Signals: true}
		opts.DeviceID, _ = flags.GetString("device")
		opts.Locator, _ = flags.GetString("locator")
		opts.Fresh, _ = flags.GetBool("fresh")
		opts.JSON, _ = flags.GetBool("json")
		opts.Headless, _ = flags.GetBool("headless")
		opts.Quiet, _ = flags.GetBool("quiet")
		source, _ := flags.GetString("utm-source")
		medium, _ := flags.GetString("utm-medium")
		campaign, _ := flags.GetString("utm-campaign")
		opts.UTM = domain.UTM{Source: source, Medium: medium, Campaign: campaign}

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		_, err = cli.RunPlay(sc, app, opts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	f := playCmd.Flags()
	f.StringP("device", "d", cli.DefaultDevice, "Device namespace holding the quiz progress")
	f.String("locator", "", "Step ID to start at")
	f.Bool("fresh", false, "Discard saved progress before starting")
	f.Bool("json", false, "Speak line-delimited JSON on stdin/stdout")
	f.Bool("headless", false, "Plain text output; checkout is not confirmed")
	f.BoolP("quiet", "q", false, "Hide the banner and status messages")
	f.String("utm-source", "", "Campaign source for the remote session")
	f.String("utm-medium", "", "Campaign medium for the remote session")
	f.String("utm-campaign", "", "Campaign name for the remote session")
}
