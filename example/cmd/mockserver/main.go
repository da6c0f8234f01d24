// Standalone mock deployed host for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver docs
//
// Then in another terminal:
//
//	go run ./cmd/pagedeck check -c example/pagedeck.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pagedeck/pagedeck"
)

func main() {
	siteDir := "docs"
	if len(os.Args) > 1 {
		siteDir = os.Args[1]
	}

	inv, err := pagedeck.ScanSite(context.Background(), siteDir)
	if err != nil {
		slog.Error("failed to scan site", "dir", siteDir, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Mock deployed host starting on :9999, serving %s\n", siteDir)
	fmt.Printf("Site hash: %.12s (%d files)\n", inv.Hash, len(inv.Assets))
	fmt.Println("Phases cycle every 30s: missing (404) → stale (old hash) → ok")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	start := time.Now()
	var (
		mu        sync.Mutex
		lastPhase = ""
	)
	phases := []string{"missing", "stale", "ok"}

	currentPhase := func() string {
		phase := phases[int(time.Since(start)/(30*time.Second))%3]
		mu.Lock()
		if phase != lastPhase {
			slog.Info("phase change", "phase", phase)
			lastPhase = phase
		}
		mu.Unlock()
		return phase
	}

	freshManifest, _ := pagedeck.BuildSiteManifest(inv, "mock-current").Encode()
	staleCopy := *pagedeck.BuildSiteManifest(inv, "mock-previous")
	staleCopy.SiteHash = strings.Repeat("0", 64)
	staleManifest, _ := staleCopy.Encode()

	fileServer := http.FileServer(http.Dir(siteDir))

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		phase := currentPhase()

		if phase == "missing" {
			http.NotFound(w, r)
			return
		}

		if path.Base(r.URL.Path) == pagedeck.ManifestName {
			w.Header().Set("Content-Type", "application/json")
			if phase == "stale" {
				_, _ = w.Write(staleManifest)
			} else {
				_, _ = w.Write(freshManifest)
			}
			return
		}

		// stale phase serves mangled scripts so hash probes notice
		if phase == "stale" && strings.HasSuffix(r.URL.Path, ".js") {
			w.Header().Set("Content-Type", "text/javascript")
			_, _ = w.Write([]byte("// old deploy\n"))
			return
		}

		fileServer.ServeHTTP(w, r)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
