package main

import (
	"fmt"
	"time"

	"github.com/pagedeck/pagedeck"
	"github.com/pagedeck/pagedeck/config"
	"github.com/spf13/cobra"
)

// regenCmd re-runs the external site generator.
var regenCmd = &cobra.Command{
	Use:   "regen",
	Short: "Re-run the site generator",
	Long: `Run the configured generator command, then rescan and audit the site.

The generator is whatever produces the site tree (for demo pages,
typically a plotting script that rewrites docs/). PageDeck streams its
output, then reports what the regenerated tree looks like so a broken
generation is caught before it is published.

Example:
  pagedeck regen -c pagedeck.yaml`,
	RunE: runRegen,
}

func init() {
	rootCmd.AddCommand(regenCmd)

	regenCmd.Flags().StringP("config", "c", "pagedeck.yaml", "path to config file")
}

func runRegen(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Generator.Command) == 0 {
		return fmt.Errorf("no generator configured; set generator.command")
	}

	result, err := pagedeck.RunGenerator(cmd.Context(), pagedeck.GeneratorConfig{
		Command: cfg.Generator.Command,
		Dir:     cfg.Generator.Dir,
		Env:     cfg.Generator.Env,
		Timeout: cfg.Generator.Timeout.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("generator failed: %w", err)
	}
	fmt.Printf("Generator finished in %s\n", result.Duration.Round(time.Millisecond))

	inv, err := pagedeck.ScanSite(cmd.Context(), cfg.Site.Dir)
	if err != nil {
		return fmt.Errorf("failed to scan regenerated site: %w", err)
	}
	report := pagedeck.AuditSite(inv, config.BuildAuditConfig(cfg))

	fmt.Printf("Regenerated site: %d files, %d pages, site hash %.12s\n",
		len(inv.Assets), len(inv.Pages), inv.Hash)
	fmt.Printf("Audit: %d errors, %d warnings\n", report.Errors, report.Warnings)
	if report.Errors > 0 {
		for _, f := range report.Findings {
			if f.Severity == pagedeck.SeverityError {
				fmt.Printf("  [%s] %s: %s: %s\n", f.Severity, f.Rule, f.Path, f.Detail)
			}
		}
		return fmt.Errorf("regenerated site has %d audit errors", report.Errors)
	}
	return nil
}
