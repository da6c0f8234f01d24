package pagedeck

import (
	"context"
	"log/slog"

	"github.com/pagedeck/pagedeck/internal/gen"
	"github.com/pagedeck/pagedeck/internal/publish"
)

// PublishOptions configures a [PublishSite] run.
//
// PublishOptions is an alias for the internal publish model. The zero value
// plus SiteDir selects branch mode on gh-pages with an "origin" push.
type PublishOptions = publish.Options

// PublishResult reports what a [PublishSite] run did.
type PublishResult = publish.Result

// PublishSite ships the inventory's tree to its hosting branch or folder.
//
// The inventory must come from a fresh [ScanSite] of opts.SiteDir. A
// manifest carrying the site hash is written alongside the files, which is
// what lets [ManifestProbe] verify the deploy later. When the hosting
// branch already holds identical content, the commit is skipped and the
// result says so.
//
// Example:
//
//	inv, _ := pagedeck.ScanSite(ctx, "docs")
//	res, err := pagedeck.PublishSite(ctx, inv, pagedeck.PublishOptions{
//	    SiteDir:  "docs",
//	    NoJekyll: true,
//	    Push:     true,
//	}, logger)
func PublishSite(ctx context.Context, inv *Inventory, opts PublishOptions, logger *slog.Logger) (*PublishResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return publish.New(logger).Publish(ctx, inv, opts)
}

// GeneratorConfig describes the external command that regenerates the site
// (for demo pages, typically a plotting script that rewrites docs/).
type GeneratorConfig = gen.Config

// GeneratorResult reports how a generator run ended.
type GeneratorResult = gen.Result

// RunGenerator executes the site generator, streaming its output to the
// logger. Regenerated files are picked up by the next [ScanSite] (or, in a
// running [Deck], by the watcher).
func RunGenerator(ctx context.Context, cfg GeneratorConfig, logger *slog.Logger) (*GeneratorResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return gen.Run(ctx, cfg, logger)
}
