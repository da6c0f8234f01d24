package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeTree creates the given files under a new temp dir and returns it.
func writeTree(t *testing.T, files map[string]string) string {
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
	return dir
}

func TestScanInventory(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":    `<!DOCTYPE html><html><head><title>Demo</title></head><body><script src="vendor/lib.js"></script></body></html>`,
		"vendor/lib.js": "console.log(1);\n",
		"data.json":     `{"ok":true}`,
	})

	inv, err := Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(inv.Assets) != 3 {
		t.Errorf("len(Assets) = %d, want 3", len(inv.Assets))
	}
	if len(inv.Pages) != 1 {
		t.Fatalf("len(Pages) = %d, want 1", len(inv.Pages))
	}
	if inv.Pages[0].Title != "Demo" {
		t.Errorf("Pages[0].Title = %q, want %q", inv.Pages[0].Title, "Demo")
	}
	if len(inv.Hash) != 64 {
		t.Errorf("len(Hash) = %d, want 64", len(inv.Hash))
	}

	// assets are sorted by path
	for i := 1; i < len(inv.Assets); i++ {
		if inv.Assets[i-1].Path >= inv.Assets[i].Path {
			t.Errorf("assets not sorted: %q before %q", inv.Assets[i-1].Path, inv.Assets[i].Path)
		}
	}

	a, ok := inv.Lookup("vendor/lib.js")
	if !ok {
		t.Fatalf("Lookup(vendor/lib.js) = false, want true")
	}
	if a.Size != int64(len("console.log(1);\n")) {
		t.Errorf("asset size = %d, want %d", a.Size, len("console.log(1);\n"))
	}
	if a.ContentType != "text/javascript; charset=utf-8" {
		t.Errorf("ContentType = %q, want text/javascript", a.ContentType)
	}

	var total int64
	for _, asset := range inv.Assets {
		total += asset.Size
	}
	if inv.TotalBytes != total {
		t.Errorf("TotalBytes = %d, want %d", inv.TotalBytes, total)
	}
}

func TestScanHashDeterministic(t *testing.T) {
	files := map[string]string{
		"index.html": "<html><body>hi</body></html>",
		"a/b.css":    "body{}",
	}
	inv1, err := Scan(context.Background(), writeTree(t, files))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	inv2, err := Scan(context.Background(), writeTree(t, files))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if inv1.Hash != inv2.Hash {
		t.Errorf("identical trees hash differently: %s vs %s", inv1.Hash, inv2.Hash)
	}

	files["a/b.css"] = "body{margin:0}"
	inv3, err := Scan(context.Background(), writeTree(t, files))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if inv3.Hash == inv1.Hash {
		t.Errorf("changed tree kept hash %s", inv1.Hash)
	}
}

func TestScanSkipsVCSAndManifest(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":      "<html></html>",
		".git/config":     "[core]",
		ManifestName:      `{"version":1}`,
		".nojekyll":       "",
		"sub/.svn/wc.db":  "x",
		"sub/real.txt":    "kept",
		"sub/.hg/hgrc":    "x",
		"sub/deeper/a.js": "1;",
	})

	inv, err := Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	for _, p := range []string{".git/config", ManifestName, "sub/.svn/wc.db", "sub/.hg/hgrc"} {
		if _, ok := inv.Lookup(p); ok {
			t.Errorf("Lookup(%q) = true, want excluded", p)
		}
	}
	for _, p := range []string{"index.html", ".nojekyll", "sub/real.txt", "sub/deeper/a.js"} {
		if _, ok := inv.Lookup(p); !ok {
			t.Errorf("Lookup(%q) = false, want included", p)
		}
	}
}

func TestScanErrors(t *testing.T) {
	if _, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("Scan(missing dir) error = nil, want error")
	}
	if _, err := Scan(context.Background(), t.TempDir()); err == nil {
		t.Errorf("Scan(empty dir) error = nil, want error")
	}

	// a regular file is not a site dir
	dir := writeTree(t, map[string]string{"file.txt": "x"})
	if _, err := Scan(context.Background(), filepath.Join(dir, "file.txt")); err == nil {
		t.Errorf("Scan(regular file) error = nil, want error")
	}
}

func TestScanRecordsSymlinks(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html": "<html></html>",
		"real.css":   "body{}",
	})
	if err := os.Symlink(filepath.Join(dir, "real.css"), filepath.Join(dir, "link.css")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	// dangling links are dropped, not fatal
	if err := os.Symlink(filepath.Join(dir, "gone.css"), filepath.Join(dir, "dangling.css")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	inv, err := Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	a, ok := inv.Lookup("link.css")
	if !ok {
		t.Fatalf("Lookup(link.css) = false, want true")
	}
	if !a.Symlink {
		t.Errorf("link.css Symlink = false, want true")
	}
	if _, ok := inv.Lookup("dangling.css"); ok {
		t.Errorf("Lookup(dangling.css) = true, want dropped")
	}
}

func TestLookupFold(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"Vendor/Lib.JS": "1;",
		"index.html":    "<html></html>",
	})
	inv, err := Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if _, ok := inv.Lookup("vendor/lib.js"); ok {
		t.Errorf("Lookup(vendor/lib.js) = true, want false (case differs)")
	}
	if _, ok := inv.LookupFold("vendor/lib.js"); !ok {
		t.Errorf("LookupFold(vendor/lib.js) = false, want true")
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a/b.html", "text/html; charset=utf-8"},
		{"styles.CSS", "text/css; charset=utf-8"},
		{"plot.svg", "image/svg+xml"},
		{"vendor/lib.min.js", "text/javascript; charset=utf-8"},
		{"unknown.xyz123", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := ContentTypeFor(tt.path); got != tt.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
