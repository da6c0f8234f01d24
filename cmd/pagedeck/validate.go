package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pagedeck/pagedeck"
	"github.com/pagedeck/pagedeck/config"
	"github.com/spf13/cobra"
)

// validateCmd audits the site tree without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config and audit the site",
	Long: `Validate a PageDeck configuration file and audit the site tree.

This command parses the YAML, expands environment variables, scans the
site directory, and runs the pre-publish audit: required files present,
vendored libraries in place, references resolvable, no Jekyll traps.
It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid and the audit found no errors
  1 - Config is invalid or the audit found errors

Example:
  pagedeck validate -c pagedeck.yaml
  pagedeck validate -c pagedeck.yaml --strict --json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "pagedeck.yaml", "path to config file")
	validateCmd.Flags().Bool("strict", false, "treat warnings as errors")
	validateCmd.Flags().Bool("json", false, "emit the audit report as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	strict, _ := cmd.Flags().GetBool("strict")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	inv, err := pagedeck.ScanSite(cmd.Context(), cfg.Site.Dir)
	if err != nil {
		return fmt.Errorf("failed to scan site: %w", err)
	}
	report := pagedeck.AuditSite(inv, config.BuildAuditConfig(cfg))

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Printf("Scanned %s: %d files, %d pages, site hash %.12s\n",
			cfg.Site.Dir, len(inv.Assets), len(inv.Pages), inv.Hash)
		for _, f := range report.Findings {
			if f.Path != "" {
				fmt.Printf("  [%s] %s: %s: %s\n", f.Severity, f.Rule, f.Path, f.Detail)
			} else {
				fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Rule, f.Detail)
			}
		}
		fmt.Printf("Audit: %d errors, %d warnings, %d notes\n",
			report.Errors, report.Warnings, report.Infos)
	}

	if report.Errors > 0 {
		return fmt.Errorf("audit found %d errors", report.Errors)
	}
	if strict && report.Warnings > 0 {
		return fmt.Errorf("audit found %d warnings (strict mode)", report.Warnings)
	}
	return nil
}
