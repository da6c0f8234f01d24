package pagedeck

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagedeck/pagedeck/internal/site"
)

// Inventory is the result of scanning a site tree: every file with its
// size, SHA-256 digest, and content type, plus parsed pages with their
// titles and references, and a deterministic whole-site hash.
//
// Inventory is an alias for the internal site model, so values returned by
// [ScanSite] can be passed directly to [AuditSite], [SiteTargets], and
// [HashProbe] without conversion.
type Inventory = site.Inventory

// Asset is a single file in a scanned site tree.
type Asset = site.Asset

// Page is an HTML asset with its parsed title and references.
type Page = site.Page

// Ref is a reference extracted from an HTML page.
type Ref = site.Ref

// Manifest is the JSON snapshot published alongside the site.
// See [ManifestProbe] for how a deployed manifest detects staleness.
type Manifest = site.Manifest

// ManifestName is the manifest's filename at the site root.
const ManifestName = site.ManifestName

// BuildSiteManifest converts an inventory into a publishable [Manifest].
// [PublishSite] writes one automatically; this is for callers shipping the
// tree through their own pipeline who still want 'pagedeck check' to verify
// it. publishID may be empty.
func BuildSiteManifest(inv *Inventory, publishID string) *Manifest {
	return site.BuildManifest(inv, publishID)
}

// ScanSite walks a static site directory and builds an [Inventory].
//
// Files are hashed concurrently; HTML documents are parsed for titles and
// references. VCS directories are skipped, and symbolic links are recorded
// but never followed into directories.
//
// Returns an error for a missing or empty directory, or if any file cannot
// be read.
func ScanSite(ctx context.Context, dir string) (*Inventory, error) {
	return site.Scan(ctx, dir)
}

// SiteTargets derives check [Target] values for a deployed site from its
// local inventory.
//
// It always produces two targets:
//   - the site root (baseURL + "/") verified with [PageProbe]
//   - the published manifest verified with [ManifestProbe] against the
//     local site hash, detecting whole-site staleness in one request
//
// Each additional path must exist in the inventory and yields a target
// verified with [HashProbe] against that file's local digest, so a deploy
// that silently dropped or mangled the file is caught per path. Pass the
// site's required pages and vendor bundles here.
//
// Targets are labeled with kind=root, kind=manifest, or kind=asset.
//
// Example:
//
//	inv, _ := pagedeck.ScanSite(ctx, "docs")
//	targets, err := pagedeck.SiteTargets("https://user.github.io/project", inv,
//	    "index.html",
//	    "demo/index.html",
//	    "vendor/plotly/plotly.min.js",
//	)
func SiteTargets(baseURL string, inv *Inventory, paths ...string) ([]Target, error) {
	if inv == nil {
		return nil, fmt.Errorf("inventory is nil")
	}
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	targets := make([]Target, 0, len(paths)+2)

	root, err := NewTarget("Site root", base+"/",
		WithProbe(PageProbe),
		WithLabels("kind", "root"),
	)
	if err != nil {
		return nil, fmt.Errorf("site root target: %w", err)
	}
	targets = append(targets, root)

	manifest, err := NewTarget("Manifest", base+"/"+ManifestName,
		WithProbe(ManifestProbe(inv.Hash)),
		WithLabels("kind", "manifest"),
	)
	if err != nil {
		return nil, fmt.Errorf("manifest target: %w", err)
	}
	targets = append(targets, manifest)

	seen := map[string]bool{}
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		asset, ok := inv.Lookup(p)
		if !ok {
			return nil, fmt.Errorf("path %q is not in the site inventory", p)
		}
		t, err := NewTarget(p, base+"/"+asset.Path,
			WithProbe(HashProbe(asset.SHA256)),
			WithLabels("kind", "asset"),
		)
		if err != nil {
			return nil, fmt.Errorf("target for %q: %w", p, err)
		}
		targets = append(targets, t)
	}

	return targets, nil
}
