package audit

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pagedeck/pagedeck/internal/site"
)

// nojekyllName disables the host's default Jekyll preprocessing when
// present at the site root.
const nojekyllName = ".nojekyll"

// VendorSpec names a bundled third-party front-end library and the files
// it must ship. Sites vendor these libraries precisely so pages render
// without view-time network dependencies; a missing bundle is the classic
// "page loads but the plots are blank" failure.
type VendorSpec struct {
	// Name identifies the bundle, e.g. "charting" or "math".
	Name string

	// Paths are the site-relative files the bundle consists of.
	Paths []string
}

// Config selects what the audit enforces beyond the structural rules.
type Config struct {
	// RequiredPaths must exist as non-empty regular files.
	RequiredPaths []string

	// Vendors are the vendored library bundles to verify.
	Vendors []VendorSpec
}

// Run applies every audit rule to the inventory and returns the report.
// Findings are ordered errors first, then warnings, then infos; within a
// severity the original rule order is kept.
func Run(inv *site.Inventory, cfg Config) *Report {
	r := &Report{
		SiteHash:    inv.Hash,
		GeneratedAt: time.Now(),
	}

	checkRequired(r, inv, cfg.RequiredPaths)
	checkVendors(r, inv, cfg.Vendors)
	checkRefs(r, inv)
	checkJekyll(r, inv)
	checkOrphans(r, inv)
	checkSymlinks(r, inv)

	sort.SliceStable(r.Findings, func(i, j int) bool {
		return r.Findings[i].Severity.rank() > r.Findings[j].Severity.rank()
	})
	r.count()
	return r
}

func (r *Report) add(rule string, sev Severity, p, detail string) {
	r.Findings = append(r.Findings, Finding{Rule: rule, Severity: sev, Path: p, Detail: detail})
}

// checkRequired verifies the configured required paths exist and are
// non-empty. A missing index.html is indistinguishable from hosting being
// misconfigured once deployed; this catches it before publish.
func checkRequired(r *Report, inv *site.Inventory, required []string) {
	for _, p := range required {
		a, ok := inv.Lookup(p)
		if !ok {
			r.add("required", SeverityError, p, "required file is missing from the site tree")
			continue
		}
		if a.Size == 0 {
			r.add("required", SeverityError, p, "required file is empty")
		}
	}
}

// checkVendors verifies each vendored bundle ships complete and non-empty.
func checkVendors(r *Report, inv *site.Inventory, vendors []VendorSpec) {
	for _, v := range vendors {
		for _, p := range v.Paths {
			a, ok := inv.Lookup(p)
			if !ok {
				r.add("vendor", SeverityError, p,
					fmt.Sprintf("%s bundle file is missing; pages depending on it will render without it", v.Name))
				continue
			}
			if a.Size == 0 {
				r.add("vendor", SeverityError, p, fmt.Sprintf("%s bundle file is empty", v.Name))
			}
		}
	}
}

// checkRefs walks every reference on every page. Local references must
// resolve to a file in the inventory with exact case: hosts serve
// case-sensitively while local filesystems often do not, so a
// case-insensitive match works in preview and 404s in production.
// External script and stylesheet references are flagged because the whole
// point of vendoring is that pages render offline.
func checkRefs(r *Report, inv *site.Inventory) {
	for _, pg := range inv.Pages {
		for _, ref := range pg.Refs {
			if ref.External {
				if ref.Kind == "script" || ref.Kind == "stylesheet" {
					r.add("external", SeverityWarning, pg.Path,
						fmt.Sprintf("%s loaded from a remote origin (%s); vendor it so pages render without network access", ref.Kind, ref.Raw))
				}
				continue
			}
			if ref.Path == "" {
				r.add("refs", SeverityError, pg.Path,
					fmt.Sprintf("reference %q escapes the site root or cannot be resolved", ref.Raw))
				continue
			}
			if _, ok := inv.Lookup(ref.Path); ok {
				if site.IsMarkdown(ref.Path) {
					r.add("markdown", SeverityWarning, pg.Path,
						fmt.Sprintf("link to %s will be served as raw markdown, not rendered", ref.Path))
				}
				continue
			}
			if _, ok := inv.LookupFold(ref.Path); ok {
				r.add("case", SeverityError, pg.Path,
					fmt.Sprintf("reference %q only matches case-insensitively; it will 404 on a case-sensitive host", ref.Raw))
				continue
			}
			r.add("refs", SeverityError, pg.Path,
				fmt.Sprintf("broken reference %q: %s does not exist in the site tree", ref.Raw, ref.Path))
		}
	}
}

// checkJekyll flags underscore-prefixed paths with no .nojekyll marker.
// The host's default preprocessor excludes such paths from the published
// site, silently dropping the files.
func checkJekyll(r *Report, inv *site.Inventory) {
	if _, ok := inv.Lookup(nojekyllName); ok {
		return
	}
	var hit []string
	for _, a := range inv.Assets {
		for _, seg := range strings.Split(a.Path, "/") {
			if strings.HasPrefix(seg, "_") {
				hit = append(hit, a.Path)
				break
			}
		}
	}
	if len(hit) == 0 {
		return
	}
	r.add("jekyll", SeverityError, hit[0],
		fmt.Sprintf("%d file(s) under underscore-prefixed paths will be dropped by the host's preprocessor; add a %s file at the site root", len(hit), nojekyllName))
}

// checkOrphans reports pages no other page links to. The site root and a
// custom 404 page are entry points and exempt.
func checkOrphans(r *Report, inv *site.Inventory) {
	referenced := make(map[string]bool)
	for _, pg := range inv.Pages {
		for _, ref := range pg.Refs {
			if ref.Path != "" {
				referenced[path.Clean(ref.Path)] = true
			}
		}
	}
	for _, pg := range inv.Pages {
		if pg.Path == "index.html" || pg.Path == "404.html" {
			continue
		}
		if !referenced[pg.Path] {
			r.add("orphans", SeverityInfo, pg.Path, "page is not linked from any other page")
		}
	}
}

// checkSymlinks reports symlinked files; hosts may reject or flatten them.
func checkSymlinks(r *Report, inv *site.Inventory) {
	for _, a := range inv.Assets {
		if a.Symlink {
			r.add("symlinks", SeverityInfo, a.Path, "file is a symbolic link; the host may reject or flatten it")
		}
	}
}
