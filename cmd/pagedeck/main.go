// Package main is the entry point for the pagedeck CLI.
//
// PageDeck can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	pagedeck serve -c pagedeck.yaml    # Preview the site and watch the deploy
//	pagedeck validate -c pagedeck.yaml # Audit the site before publishing
//	pagedeck publish -c pagedeck.yaml  # Ship the site to its hosting branch
//	pagedeck check -c pagedeck.yaml    # One-shot check of the deployed site
//	pagedeck regen -c pagedeck.yaml    # Re-run the site generator
//	pagedeck version                   # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pagedeck",
	Short: "Preview, audit, publish, and verify static demo sites",
	Long: `PageDeck manages the deploy loop for a pre-built static site hosted
on a Pages-style provider.

It previews the site locally the way the host serves it, audits the tree
for the classic publish traps (missing vendor files, broken references,
Jekyll eating underscore paths), ships it to the hosting branch or folder,
and verifies the deployed URLs afterwards.

Quick start:
  1. Create a config file (pagedeck.yaml)
  2. Run: pagedeck serve -c pagedeck.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  site:
    dir: docs
    required: [index.html]
  deploy:
    base_url: https://user.github.io/project`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pagedeck binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pagedeck %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
