package pagedeck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// scanFixtureSite scans a small demo tree shared by the root package tests.
func scanFixtureSite(t *testing.T) *Inventory {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":           `<html><head><title>Demo</title></head><body><script src="vendor/plotly.min.js"></script></body></html>`,
		"demo/index.html":      "<html><body>demo</body></html>",
		"vendor/plotly.min.js": "plotly;",
	}
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	inv, err := ScanSite(context.Background(), dir)
	if err != nil {
		t.Fatalf("ScanSite() error = %v", err)
	}
	return inv
}

func TestSiteTargets(t *testing.T) {
	inv := scanFixtureSite(t)

	targets, err := SiteTargets("https://user.github.io/project/", inv,
		"index.html",
		"vendor/plotly.min.js",
		"index.html", // duplicates collapse
	)
	if err != nil {
		t.Fatalf("SiteTargets() error = %v", err)
	}
	if len(targets) != 4 {
		t.Fatalf("len(targets) = %d, want 4 (root, manifest, 2 assets)", len(targets))
	}

	root := targets[0]
	if root.URL() != "https://user.github.io/project/" {
		t.Errorf("root URL = %q", root.URL())
	}
	if root.Labels()["kind"] != "root" {
		t.Errorf("root labels = %v, want kind=root", root.Labels())
	}

	manifest := targets[1]
	if !strings.HasSuffix(manifest.URL(), "/"+ManifestName) {
		t.Errorf("manifest URL = %q, want %s suffix", manifest.URL(), ManifestName)
	}
	if manifest.Labels()["kind"] != "manifest" {
		t.Errorf("manifest labels = %v", manifest.Labels())
	}

	for _, tgt := range targets[2:] {
		if tgt.Labels()["kind"] != "asset" {
			t.Errorf("asset target %q labels = %v", tgt.Name(), tgt.Labels())
		}
		if tgt.Probe() == nil {
			t.Errorf("asset target %q has no probe", tgt.Name())
		}
	}
}

func TestSiteTargetsAssetProbeDetectsStaleness(t *testing.T) {
	inv := scanFixtureSite(t)
	targets, err := SiteTargets("https://example.com", inv, "vendor/plotly.min.js")
	if err != nil {
		t.Fatalf("SiteTargets() error = %v", err)
	}

	probe := targets[2].Probe()
	if got := probe([]byte("plotly;"), 200); got != StatusOK {
		t.Errorf("published content = %v, want ok", got)
	}
	if got := probe([]byte("// old deploy"), 200); got != StatusStale {
		t.Errorf("old content = %v, want stale", got)
	}
}

func TestSiteTargetsErrors(t *testing.T) {
	inv := scanFixtureSite(t)

	if _, err := SiteTargets("https://example.com", inv, "nope.html"); err == nil {
		t.Errorf("unknown path error = nil, want error")
	}
	if _, err := SiteTargets("", inv); err == nil {
		t.Errorf("empty base URL error = nil, want error")
	}
	if _, err := SiteTargets("https://example.com", nil); err == nil {
		t.Errorf("nil inventory error = nil, want error")
	}
}
