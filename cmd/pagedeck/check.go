package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pagedeck/pagedeck"
	"github.com/pagedeck/pagedeck/config"
	"github.com/spf13/cobra"
)

// checkCmd performs a one-shot verification of the deployed site.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the deployed site once",
	Long: `Check every configured target of the deployed site once and report.

Statuses map onto what an operator sees after a deploy:
  ok       the URL serves the expected content
  missing  the host returns 404 (hosting not enabled, or wrong branch/folder)
  stale    the host serves an old version (deploy still propagating)
  error    the request failed or returned something unexpected

With --wait, checking repeats until every target is ok or the wait
budget runs out; useful right after 'pagedeck publish', since hosts can
take a few minutes to propagate.

Exit codes:
  0 - every target is ok
  1 - at least one target is not ok

Example:
  pagedeck check -c pagedeck.yaml
  pagedeck check -c pagedeck.yaml --wait --wait-timeout 5m`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("config", "c", "pagedeck.yaml", "path to config file")
	checkCmd.Flags().Bool("wait", false, "repeat until every target is ok")
	checkCmd.Flags().Duration("wait-timeout", 5*time.Minute, "give up waiting after this long")
	checkCmd.Flags().Duration("wait-interval", 15*time.Second, "delay between waiting passes")
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	wait, _ := cmd.Flags().GetBool("wait")
	waitTimeout, _ := cmd.Flags().GetDuration("wait-timeout")
	waitInterval, _ := cmd.Flags().GetDuration("wait-interval")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	inv, err := pagedeck.ScanSite(cmd.Context(), cfg.Site.Dir)
	if err != nil {
		return fmt.Errorf("failed to scan site: %w", err)
	}

	targets, err := config.BuildTargets(cfg, inv)
	if err != nil {
		return fmt.Errorf("failed to build targets: %w", err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets to check; set deploy.base_url or deploy.targets")
	}

	ctx := cmd.Context()
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, waitTimeout)
		defer cancel()
	}

	opts := pagedeck.CheckOptions{
		MaxConcurrency: cfg.Deploy.MaxConcurrency,
		RequestRate:    cfg.Deploy.RequestRate,
		Logger:         logger,
	}

	for {
		results, err := pagedeck.CheckTargets(ctx, targets, opts)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("check failed: %w", err)
		}

		healthy := printResults(results)
		if healthy {
			fmt.Println("All targets ok")
			return nil
		}
		if !wait || ctx.Err() != nil {
			return fmt.Errorf("deployed site is not healthy")
		}

		fmt.Printf("Waiting %s before the next pass...\n", waitInterval)
		select {
		case <-time.After(waitInterval):
		case <-ctx.Done():
			return fmt.Errorf("deployed site did not become healthy within %s", waitTimeout)
		}
	}
}

// printResults writes one line per result plus remediation hints, and
// reports whether every target is ok.
func printResults(results []pagedeck.CheckResult) bool {
	healthy := true
	for _, r := range results {
		fmt.Printf("  %-8s %-30s %s (%dms)\n", r.Status, r.TargetName, r.URL, r.Latency.Milliseconds())
		if r.Status != pagedeck.StatusOK {
			healthy = false
			if hint := r.Status.Hint(); hint != "" {
				fmt.Printf("           hint: %s\n", hint)
			}
			if r.Error != nil {
				fmt.Printf("           error: %s\n", r.Error)
			}
		}
	}
	return healthy
}
