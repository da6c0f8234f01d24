package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pagedeck/pagedeck/internal/site"
)

// scanTree scans a freshly written temp tree.
func scanTree(t *testing.T, files map[string]string) *site.Inventory {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	inv, err := site.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return inv
}

// findingsByRule collects findings for one rule.
func findingsByRule(r *Report, rule string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestRunCleanSite(t *testing.T) {
	inv := scanTree(t, map[string]string{
		"index.html":    `<html><head><title>x</title></head><body><script src="vendor/lib.js"></script><a href="demo.html">d</a></body></html>`,
		"demo.html":     `<html><body><a href="index.html">home</a></body></html>`,
		"vendor/lib.js": "1;",
	})
	report := Run(inv, Config{
		RequiredPaths: []string{"index.html"},
		Vendors:       []VendorSpec{{Name: "lib", Paths: []string{"vendor/lib.js"}}},
	})

	if report.Errors != 0 {
		t.Errorf("Errors = %d, want 0 (findings: %+v)", report.Errors, report.Findings)
	}
	if report.SiteHash != inv.Hash {
		t.Errorf("SiteHash = %s, want %s", report.SiteHash, inv.Hash)
	}
	if report.HasErrors() {
		t.Errorf("HasErrors() = true, want false")
	}
}

func TestRequiredAndVendorRules(t *testing.T) {
	inv := scanTree(t, map[string]string{
		"index.html": "<html></html>",
		"empty.js":   "",
	})
	report := Run(inv, Config{
		RequiredPaths: []string{"index.html", "missing.html", "empty.js"},
		Vendors:       []VendorSpec{{Name: "plotly", Paths: []string{"vendor/plotly.min.js"}}},
	})

	required := findingsByRule(report, "required")
	if len(required) != 2 {
		t.Fatalf("required findings = %d, want 2: %+v", len(required), required)
	}
	vendor := findingsByRule(report, "vendor")
	if len(vendor) != 1 {
		t.Fatalf("vendor findings = %d, want 1", len(vendor))
	}
	if vendor[0].Severity != SeverityError {
		t.Errorf("vendor severity = %s, want %s", vendor[0].Severity, SeverityError)
	}
	if !report.HasErrors() {
		t.Errorf("HasErrors() = false, want true")
	}
}

func TestBrokenAndCaseRefs(t *testing.T) {
	inv := scanTree(t, map[string]string{
		"index.html": `<html><body>
<script src="vendor/Lib.js"></script>
<img src="plots/gone.png">
</body></html>`,
		"vendor/lib.js": "1;",
	})
	report := Run(inv, Config{})

	caseFindings := findingsByRule(report, "case")
	if len(caseFindings) != 1 {
		t.Fatalf("case findings = %d, want 1: %+v", len(caseFindings), report.Findings)
	}
	broken := findingsByRule(report, "refs")
	if len(broken) != 1 {
		t.Fatalf("refs findings = %d, want 1: %+v", len(broken), report.Findings)
	}
	if broken[0].Path != "index.html" {
		t.Errorf("refs finding path = %q, want index.html", broken[0].Path)
	}
}

func TestExternalScriptWarning(t *testing.T) {
	inv := scanTree(t, map[string]string{
		"index.html": `<html><head>
<link rel="stylesheet" href="https://cdn.example.com/site.css">
</head><body>
<script src="https://cdn.example.com/lib.js"></script>
<a href="https://example.com/">fine</a>
</body></html>`,
	})
	report := Run(inv, Config{})

	ext := findingsByRule(report, "external")
	if len(ext) != 2 {
		t.Fatalf("external findings = %d, want 2 (script+stylesheet only): %+v", len(ext), report.Findings)
	}
	for _, f := range ext {
		if f.Severity != SeverityWarning {
			t.Errorf("external severity = %s, want %s", f.Severity, SeverityWarning)
		}
	}
}

func TestJekyllRule(t *testing.T) {
	files := map[string]string{
		"index.html":        "<html></html>",
		"_static/style.css": "body{}",
	}
	report := Run(scanTree(t, files), Config{})
	if got := findingsByRule(report, "jekyll"); len(got) != 1 {
		t.Fatalf("jekyll findings = %d, want 1", len(got))
	}

	// a .nojekyll marker silences the rule
	files[".nojekyll"] = ""
	report = Run(scanTree(t, files), Config{})
	if got := findingsByRule(report, "jekyll"); len(got) != 0 {
		t.Errorf("jekyll findings with .nojekyll = %d, want 0", len(got))
	}
}

func TestOrphanAndMarkdownRules(t *testing.T) {
	inv := scanTree(t, map[string]string{
		"index.html":   `<html><body><a href="guide.md">guide</a></body></html>`,
		"guide.md":     "# Guide",
		"lonely.html":  "<html></html>",
		"404.html":     "<html></html>",
	})
	report := Run(inv, Config{})

	if got := findingsByRule(report, "markdown"); len(got) != 1 {
		t.Errorf("markdown findings = %d, want 1", len(got))
	}
	orphans := findingsByRule(report, "orphans")
	if len(orphans) != 1 {
		t.Fatalf("orphan findings = %d, want 1: %+v", len(orphans), orphans)
	}
	if orphans[0].Path != "lonely.html" {
		t.Errorf("orphan path = %q, want lonely.html", orphans[0].Path)
	}
	if orphans[0].Severity != SeverityInfo {
		t.Errorf("orphan severity = %s, want %s", orphans[0].Severity, SeverityInfo)
	}
}

func TestFindingsOrderedBySeverity(t *testing.T) {
	inv := scanTree(t, map[string]string{
		"index.html":  `<html><body><script src="https://cdn.example.com/l.js"></script><img src="gone.png"></body></html>`,
		"lonely.html": "<html></html>",
	})
	report := Run(inv, Config{})

	last := SeverityError
	for _, f := range report.Findings {
		if last == SeverityWarning && f.Severity == SeverityError {
			t.Fatalf("error finding after warning: %+v", report.Findings)
		}
		if last == SeverityInfo && f.Severity != SeverityInfo {
			t.Fatalf("non-info finding after info: %+v", report.Findings)
		}
		last = f.Severity
	}
	if report.Worst() != SeverityError {
		t.Errorf("Worst() = %s, want %s", report.Worst(), SeverityError)
	}
}
