package pagedeck

import "github.com/pagedeck/pagedeck/internal/audit"

// AuditReport is the outcome of validating a site tree with [AuditSite].
type AuditReport = audit.Report

// AuditFinding is a single audit observation.
type AuditFinding = audit.Finding

// Severity classifies an [AuditFinding].
type Severity = audit.Severity

// Severity levels, errors first.
const (
	SeverityError   = audit.SeverityError
	SeverityWarning = audit.SeverityWarning
	SeverityInfo    = audit.SeverityInfo
)

// AuditConfig selects what [AuditSite] enforces beyond the structural rules.
type AuditConfig = audit.Config

// VendorSpec names a vendored front-end library bundle and its files.
type VendorSpec = audit.VendorSpec

// AuditSite validates a scanned site tree against the ways static-site
// deploys break: missing required pages, incomplete vendor bundles, broken
// or case-mismatched references, underscore-prefixed paths with no
// .nojekyll marker, remote script/stylesheet dependencies, raw markdown
// links, orphaned pages, and symlinks.
//
// Run it before publishing instead of debugging a broken deploy after.
//
// Example:
//
//	inv, _ := pagedeck.ScanSite(ctx, "docs")
//	report := pagedeck.AuditSite(inv, pagedeck.AuditConfig{
//	    RequiredPaths: []string{"index.html", "demo/index.html"},
//	    Vendors: []pagedeck.VendorSpec{
//	        {Name: "charting", Paths: []string{"vendor/plotly/plotly.min.js"}},
//	    },
//	})
//	if report.HasErrors() {
//	    // refuse to publish
//	}
func AuditSite(inv *Inventory, cfg AuditConfig) *AuditReport {
	return audit.Run(inv, cfg)
}
