package main

import (
	"fmt"

	"github.com/aretw0/funnel/pkg/catalog"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and check quiz catalogs",
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active catalog",
	Long:  `Prints the catalog selected by --catalog or FUNNEL_CATALOG, or the embedded one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cat := catalog.Default()
		if cfg.CatalogPath != "" {
			if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
				return err
			}
		}

		format, _ := cmd.Flags().GetString("format")
		data, err := catalog.Marshal(cat, catalog.Format(format))
		if err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var catalogLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the steps of the active catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cat := catalog.Default()
		if cfg.CatalogPath != "" {
			if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		for i, s := range cat.Steps() {
			progress := "-"
			if s.CountsTowardProgress() {
				progress = fmt.Sprintf("%d/%d", cat.ProgressNumber(i), cat.ProgressTotal())
			}
			fmt.Fprintf(out, "%2d  %-24s %-17s %s\n", i, s.ID, s.Kind, progress)
		}
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog file for consistency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(args[0])
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog is valid! ✅ (%d steps, %d plans)\n", cat.Len(), len(domain.Plans()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogLsCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogShowCmd.Flags().StringP("format", "f", string(catalog.FormatYAML), "Output format (yaml or json)")
}
