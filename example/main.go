package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pagedeck/pagedeck"
)

func main() {
	// build a small demo site in a temp directory
	siteDir, err := writeDemoSite()
	if err != nil {
		slog.Error("failed to write demo site", "error", err)
		os.Exit(1)
	}
	defer os.RemoveAll(siteDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inv, err := pagedeck.ScanSite(ctx, siteDir)
	if err != nil {
		slog.Error("failed to scan demo site", "error", err)
		os.Exit(1)
	}

	// start a mock "deployed host" that cycles through the failure modes a
	// real deploy shows: 404s, then stale content, then healthy
	// (see mock_server.go)
	go StartMockHost(":9999", siteDir, inv)
	time.Sleep(100 * time.Millisecond)

	// derive one target per interesting path, pinned to the local hashes
	targets, err := pagedeck.SiteTargets("http://localhost:9999", inv,
		"index.html",
		"vendor/app.js",
	)
	if err != nil {
		slog.Error("failed to build targets", "error", err)
		os.Exit(1)
	}

	deck, err := pagedeck.New(
		pagedeck.WithSiteDir(siteDir),
		pagedeck.WithTargets(targets...),
		pagedeck.WithCheckInterval(5*time.Second),
		pagedeck.WithPort(8080),
		pagedeck.WithLiveReload(true),
		pagedeck.WithAuditConfig(pagedeck.AuditConfig{
			RequiredPaths: []string{"index.html"},
			Vendors: []pagedeck.VendorSpec{
				{Name: "app", Paths: []string{"vendor/app.js"}},
			},
		}),
		pagedeck.WithTitle("PageDeck Demo"),
	)
	if err != nil {
		slog.Error("failed to create deck", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   PageDeck Demo                                       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Preview + dashboard: http://localhost:8080/_deck/   ║")
	fmt.Println("  ║   Mock deployed host:  http://localhost:9999          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   The mock host cycles every 30s:                     ║")
	fmt.Println("  ║   missing (404) → stale (old hash) → ok               ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	if err := deck.Start(ctx); err != nil {
		slog.Error("pagedeck error", "error", err)
		os.Exit(1)
	}
}

// writeDemoSite creates a minimal static site: an index page, a vendored
// script it references, and a custom 404 page.
func writeDemoSite() (string, error) {
	dir, err := os.MkdirTemp("", "pagedeck-demo-")
	if err != nil {
		return "", err
	}

	files := map[string]string{
		"index.html": `<!DOCTYPE html>
<html>
<head><title>PageDeck Demo Site</title></head>
<body>
<h1>PageDeck Demo Site</h1>
<div id="chart"></div>
<script src="vendor/app.js"></script>
</body>
</html>
`,
		"vendor/app.js": `document.getElementById("chart").textContent = "chart goes here";
`,
		"404.html": `<!DOCTYPE html>
<html><head><title>Not found</title></head><body><h1>404</h1></body></html>
`,
		".nojekyll": "",
	}

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}
