package main

import (
	"fmt"

	"github.com/pagedeck/pagedeck"
	"github.com/pagedeck/pagedeck/config"
	"github.com/spf13/cobra"
)

// publishCmd ships the site to its hosting branch or folder.
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Ship the site to its hosting branch or folder",
	Long: `Publish the site tree to its configured hosting location.

Two layouts are supported, matching the two ways hosts are configured:
  - branch mode (the default): the tree becomes the entire content of the
    hosting branch (e.g. gh-pages), committed through a temporary worktree
    and pushed
  - folder mode: the tree already lives in a folder of the current branch
    (e.g. main + /docs); the marker files are written into it and the
    folder is committed and pushed

Every publish writes a manifest carrying the site hash, which is what
lets 'pagedeck check' verify the deploy afterwards. The audit runs first
and errors refuse the publish unless --force is given.

Example:
  pagedeck publish -c pagedeck.yaml
  pagedeck publish -c pagedeck.yaml --dry-run
  pagedeck publish -c pagedeck.yaml -m "Refresh radar demos"`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringP("config", "c", "pagedeck.yaml", "path to config file")
	publishCmd.Flags().StringP("message", "m", "", "commit message (default carries the site hash)")
	publishCmd.Flags().Bool("dry-run", false, "stage and report without running git")
	publishCmd.Flags().Bool("no-push", false, "commit without pushing")
	publishCmd.Flags().Bool("force", false, "publish even when the audit finds errors")
}

func runPublish(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	message, _ := cmd.Flags().GetString("message")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noPush, _ := cmd.Flags().GetBool("no-push")
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	inv, err := pagedeck.ScanSite(cmd.Context(), cfg.Site.Dir)
	if err != nil {
		return fmt.Errorf("failed to scan site: %w", err)
	}

	report := pagedeck.AuditSite(inv, config.BuildAuditConfig(cfg))
	if report.Errors > 0 && !force {
		for _, f := range report.Findings {
			if f.Severity == pagedeck.SeverityError {
				fmt.Printf("  [%s] %s: %s: %s\n", f.Severity, f.Rule, f.Path, f.Detail)
			}
		}
		return fmt.Errorf("audit found %d errors; fix them or pass --force", report.Errors)
	}

	if message == "" {
		message = cfg.Publish.Message
	}

	result, err := pagedeck.PublishSite(cmd.Context(), inv, pagedeck.PublishOptions{
		SiteDir:        cfg.Site.Dir,
		RepoDir:        cfg.Publish.RepoDir,
		Remote:         cfg.Publish.Remote,
		Branch:         cfg.Publish.Branch,
		Folder:         cfg.Publish.Folder,
		Message:        message,
		CNAME:          cfg.Publish.CNAME,
		NoJekyll:       cfg.NoJekyllEnabled(),
		RenderMarkdown: cfg.Publish.RenderMarkdown,
		DryRun:         dryRun,
		Push:           !dryRun && !noPush,
	}, logger)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	switch {
	case result.DryRun:
		fmt.Printf("Dry run: would publish %d files (%d bytes), site hash %.12s\n",
			result.Files, result.Bytes, result.SiteHash)
	case result.Skipped:
		fmt.Printf("Nothing to publish: the hosting branch already holds site hash %.12s\n",
			result.SiteHash)
	default:
		fmt.Printf("Published %d files (%d bytes) as commit %.12s, site hash %.12s\n",
			result.Files, result.Bytes, result.CommitSHA, result.SiteHash)
		if cfg.Deploy.BaseURL != "" {
			fmt.Printf("Verify with: pagedeck check -c %s --wait\n", configFile)
		}
	}
	return nil
}
