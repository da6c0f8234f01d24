package main

import (
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pagedeck/pagedeck"
)

// hostPhase is what the mock deployed host currently simulates.
type hostPhase int

const (
	phaseMissing hostPhase = iota // hosting not propagated yet: everything 404s
	phaseStale                    // old deploy still served: wrong manifest hash
	phaseOK                       // fully consistent with the local tree
)

func (p hostPhase) String() string {
	switch p {
	case phaseMissing:
		return "missing"
	case phaseStale:
		return "stale"
	default:
		return "ok"
	}
}

// StartMockHost serves siteDir the way a Pages-style host would, cycling
// through deploy failure modes every 30 seconds so the dashboard has
// something to show. Call this in a goroutine before starting the deck.
func StartMockHost(addr, siteDir string, inv *pagedeck.Inventory) {
	start := time.Now()
	var (
		mu        sync.Mutex
		lastPhase = hostPhase(-1)
	)

	currentPhase := func() hostPhase {
		phase := hostPhase(int(time.Since(start)/(30*time.Second)) % 3)
		mu.Lock()
		if phase != lastPhase {
			slog.Info("mock host phase change", "phase", phase.String())
			lastPhase = phase
		}
		mu.Unlock()
		return phase
	}

	// a manifest for the current tree, and one for a tree that no longer
	// exists (what a host still propagating an old deploy would serve)
	freshManifest, _ := pagedeck.BuildSiteManifest(inv, "demo-current").Encode()
	staleCopy := *pagedeck.BuildSiteManifest(inv, "demo-previous")
	staleCopy.SiteHash = strings.Repeat("0", 64)
	staleManifest, _ := staleCopy.Encode()

	fileServer := http.FileServer(http.Dir(siteDir))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		phase := currentPhase()

		if phase == phaseMissing {
			http.NotFound(w, r)
			return
		}

		if path.Base(r.URL.Path) == pagedeck.ManifestName {
			w.Header().Set("Content-Type", "application/json")
			if phase == phaseStale {
				_, _ = w.Write(staleManifest)
			} else {
				_, _ = w.Write(freshManifest)
			}
			return
		}

		// stale phase serves mangled file content so hash probes notice
		if phase == phaseStale && strings.HasSuffix(r.URL.Path, ".js") {
			w.Header().Set("Content-Type", "text/javascript")
			_, _ = w.Write([]byte("// old deploy\n"))
			return
		}

		fileServer.ServeHTTP(w, r)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock host error", "error", err)
	}
}
