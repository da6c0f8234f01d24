package pagedeck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pagedeck/pagedeck/dashboard"
	"github.com/pagedeck/pagedeck/internal/probe"
	"github.com/pagedeck/pagedeck/internal/server"
	"github.com/pagedeck/pagedeck/internal/store"
	"github.com/pagedeck/pagedeck/internal/watch"
)

const (
	defaultCheckInterval  = 30 * time.Second
	defaultPort           = 8080
	defaultMaxConcurrency = 8
)

// Deck is the main orchestrator for site preview, auditing, and deployment
// checking.
//
// Deck scans the configured site directory, audits it for publish problems,
// serves it locally the way the hosting provider would, and (when targets
// are configured) periodically checks the deployed URLs. It is created using
// [New] with functional options and started with [Deck.Start].
//
// The typical lifecycle is:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithTarget(t),
//	)
//	if err != nil {
//	    slog.Error("failed to create deck", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	deck.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type Deck struct {
	title           string
	siteDir         string
	targets         []Target
	checkInterval   time.Duration
	port            int
	maxConcurrency  int
	requestRate     float64
	liveReload      bool
	markdown        bool
	watch           bool
	auditConfig     AuditConfig
	logger          *slog.Logger
	resultCallbacks []func(CheckResult)
}

// New creates a new [Deck] instance with the given options.
//
// A site directory must be configured via [WithSiteDir]. Targets are
// optional; without them the deck previews and audits but checks nothing.
// Other options have sensible defaults:
//   - Check interval: 30 seconds
//   - Port: 8080
//   - Max concurrency: 8
//   - Watching: enabled
//
// Returns an error if no site directory is configured or if any option is
// invalid.
//
// Example:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithCheckInterval(time.Minute),
//	    pagedeck.WithPort(9090),
//	)
func New(opts ...Option) (*Deck, error) {
	cfg := &deckConfig{
		targets:        []Target{},
		checkInterval:  defaultCheckInterval,
		port:           defaultPort,
		maxConcurrency: defaultMaxConcurrency,
		watch:          true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.siteDir == "" {
		return nil, errors.New("a site directory is required")
	}

	// validate target name uniqueness (required for per-target interval tracking)
	seen := make(map[string]bool, len(cfg.targets))
	for _, t := range cfg.targets {
		if seen[t.name] {
			return nil, fmt.Errorf("duplicate target name: %q", t.name)
		}
		seen[t.name] = true
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Deck{
		title:           cfg.title,
		siteDir:         cfg.siteDir,
		targets:         cfg.targets,
		checkInterval:   cfg.checkInterval,
		port:            cfg.port,
		maxConcurrency:  cfg.maxConcurrency,
		requestRate:     cfg.requestRate,
		liveReload:      cfg.liveReload,
		markdown:        cfg.markdown,
		watch:           cfg.watch,
		auditConfig:     cfg.auditConfig,
		logger:          logger,
		resultCallbacks: cfg.resultCallbacks,
	}, nil
}

// Start scans and audits the site, begins serving the preview, and starts
// checking any configured targets.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The site directory is scanned and audited
//   - The preview and dashboard are served at http://localhost:<port>
//   - When watching is enabled, changes to the site trigger rescans
//   - Configured targets are checked immediately, then at their intervals
//
// The caller controls the lifecycle via context cancellation. For signal
// handling, use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	deck.Start(ctx)
//
// Returns nil on graceful shutdown. Returns an error if the initial scan
// fails or the HTTP server fails to start.
func (d *Deck) Start(ctx context.Context) error {
	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	inv, err := ScanSite(ctx, d.siteDir)
	if err != nil {
		return fmt.Errorf("failed to scan site: %w", err)
	}
	report := AuditSite(inv, d.auditConfig)

	d.logger.Info("site scanned",
		"dir", d.siteDir,
		"files", len(inv.Assets),
		"pages", len(inv.Pages),
		"hash", shortHash(inv.Hash),
	)
	d.logger.Info("site audited",
		"errors", report.Errors,
		"warnings", report.Warnings,
	)
	d.logger.Info("preview available", "url", fmt.Sprintf("http://localhost:%d", d.port))
	if len(d.targets) > 0 {
		d.logger.Info("checking configured", "targets", len(d.targets), "interval", d.checkInterval.String())
	}

	resultStore := store.NewMemoryStore()

	httpServer := server.New(server.Config{
		SiteDir:    d.siteDir,
		Port:       d.port,
		Assets:     dashboard.Assets,
		Title:      d.title,
		Markdown:   d.markdown,
		LiveReload: d.liveReload,
		Store:      resultStore,
		Logger:     d.logger,
	})
	httpServer.SetInventory(inv)
	httpServer.SetReport(report)

	var cleanups []func()

	// start the check scheduler if there are targets to check
	if len(d.targets) > 0 {
		scheduler := probe.NewScheduler(toProbeInfos(d.targets), d.checkInterval, d.maxConcurrency, d.requestRate, d.logger)
		scheduler.Start(ctx)

		// track the results consumer goroutine to ensure clean shutdown
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for result := range scheduler.Results() {
				// store update first (callbacks fire after data is persisted)
				resultStore.Update(probeResultToStoreResult(result))

				// invoke result callbacks (after store update)
				if len(d.resultCallbacks) > 0 {
					publicResult := probeResultToPublicResult(result)
					for _, cb := range d.resultCallbacks {
						invokeCallbackSafe(cb, publicResult, d.logger)
					}
				}

				// log check results (DEBUG level for success to reduce noise)
				logAttrs := []any{
					"status", result.Status,
					"target", result.TargetName,
					"url", result.URL,
					"latency_ms", result.Latency.Milliseconds(),
				}
				if result.Error != nil {
					d.logger.Warn("check completed with error", append(logAttrs, "error", result.Error.Error())...)
				} else {
					d.logger.Debug("check completed", logAttrs...)
				}
			}
		}()

		cleanups = append(cleanups, func() {
			scheduler.Stop() // closes results channel
			wg.Wait()        // wait for all results to be processed
		})
	}

	// start the file watcher so edits and generator runs refresh the preview
	if d.watch {
		watcher, err := watch.New(d.siteDir, 0, d.logger)
		if err != nil {
			for _, fn := range cleanups {
				fn()
			}
			return fmt.Errorf("failed to watch site directory: %w", err)
		}
		watcher.Start(ctx)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range watcher.Events() {
				inv, err := ScanSite(ctx, d.siteDir)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					d.logger.Warn("rescan failed", "error", err)
					continue
				}
				report := AuditSite(inv, d.auditConfig)
				httpServer.SetInventory(inv)
				httpServer.SetReport(report)
				httpServer.NotifyReload()
				d.logger.Info("site rescanned",
					"files", len(inv.Assets),
					"hash", shortHash(inv.Hash),
					"errors", report.Errors,
					"warnings", report.Warnings,
				)
			}
		}()

		cleanups = append(cleanups, func() {
			watcher.Stop() // closes events channel
			wg.Wait()
		})
	}

	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	d.logger.Info("pagedeck stopped")
	return nil
}

// Targets returns a copy of the configured targets.
//
// The returned slice is a copy; modifying it does not affect the Deck.
// Each [Target] in the slice is immutable.
func (d *Deck) Targets() []Target {
	cp := make([]Target, len(d.targets))
	copy(cp, d.targets)
	return cp
}

// SiteDir returns the configured site directory.
func (d *Deck) SiteDir() string {
	return d.siteDir
}

// Port returns the configured HTTP port for the preview server.
func (d *Deck) Port() int {
	return d.port
}

// CheckInterval returns the configured interval between check cycles.
func (d *Deck) CheckInterval() time.Duration {
	return d.checkInterval
}

// probeResultToStoreResult converts a probe result to a store result.
func probeResultToStoreResult(pr probe.CheckResult) store.CheckResult {
	var errStr *string
	if pr.Error != nil {
		s := pr.Error.Error()
		errStr = &s
	}

	return store.CheckResult{
		Name:           pr.TargetName,
		URL:            pr.URL,
		Status:         pr.Status,
		Labels:         pr.Labels,
		ResponseTimeMs: pr.Latency.Milliseconds(),
		CheckedAt:      pr.CheckedAt,
		Error:          errStr,
	}
}

// probeResultToPublicResult converts internal probe result to public API type.
// Creates defensive copies of mutable fields to prevent data races.
func probeResultToPublicResult(pr probe.CheckResult) CheckResult {
	return CheckResult{
		TargetName:  pr.TargetName,
		URL:         pr.URL,
		Status:      Status(pr.Status),
		Labels:      copyMap(pr.Labels),
		Latency:     pr.Latency,
		CheckedAt:   pr.CheckedAt,
		Error:       pr.Error,
		RawResponse: copyBytes(pr.RawResponse),
		StatusCode:  pr.StatusCode,
	}
}

// copyBytes returns a copy of the byte slice, or nil if input is nil.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// shortHash abbreviates a site hash for log output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// invokeCallbackSafe calls a result callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(CheckResult), result CheckResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked",
				"panic", r,
				"target", result.TargetName,
			)
		}
	}()
	cb(result)
}
