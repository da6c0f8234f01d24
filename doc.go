// Package pagedeck previews, audits, publishes, and verifies static demo
// sites hosted on Pages-style providers.
//
// PageDeck is designed as an SDK-first library, allowing developers to wire
// the deploy-and-verify loop for a pre-built static site (the kind a
// plotting or docs generator emits into a docs/ folder) into their own
// tooling. It follows functional programming principles with immutable
// types, pure functions, and composable configuration via the functional
// options pattern.
//
// # Quick Start
//
// Preview a site directory and check its deployed URL with graceful
// shutdown:
//
//	t, _ := pagedeck.NewTarget("Site root", "https://user.github.io/project/",
//	    pagedeck.WithProbe(pagedeck.PageProbe))
//	deck, _ := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithTarget(t),
//	)
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	deck.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// PageDeck uses the functional options pattern for configuration:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithTargets(targets...),
//	    pagedeck.WithCheckInterval(time.Minute),
//	    pagedeck.WithPort(9090),
//	    pagedeck.WithLiveReload(true),
//	)
//
// Targets can also be configured with options:
//
//	t, err := pagedeck.NewTarget("Manifest", "https://user.github.io/project/pagedeck.manifest.json",
//	    pagedeck.WithLabels("kind", "manifest"),
//	    pagedeck.WithTimeout(5 * time.Second),
//	    pagedeck.WithProbe(pagedeck.ManifestProbe(inv.Hash)),
//	)
//
// # Probes
//
// Probes determine how HTTP responses are interpreted as verification
// states. Several built-in probes are provided:
//
//   - [StatusCodeProbe]: maps HTTP status codes (2xx=ok, 404=missing, else error)
//   - [PageProbe]: additionally requires the body to look like an HTML document
//   - [HashProbe]: compares the body's SHA-256 digest against the published file (mismatch=stale)
//   - [ManifestProbe]: compares the deployed manifest's site hash against the local scan (mismatch=stale)
//   - [ContainsProbe]: requires a substring in the body
//   - [FirstMatch]: tries multiple probes in order, returning the first non-unknown result
//
// Custom probes can be created by implementing the [Probe] function type.
//
// # Architecture
//
// PageDeck consists of several internal packages (under internal/):
//
//   - internal/site: site tree scanning, hashing, and reference extraction
//   - internal/audit: pre-publish rules (missing files, broken refs, Jekyll traps)
//   - internal/probe: concurrent deployed-URL checking with worker pool
//   - internal/publish: git branch and folder publishing with atomic markers
//   - internal/watch: debounced recursive change detection
//   - internal/gen: external site generator execution
//   - internal/store: in-memory storage with pub/sub for real-time updates
//   - internal/server: HTTP preview and dashboard with REST API and Server-Sent Events
//   - dashboard: embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice. The library is designed for single-binary deployment
// using Go's embed directive for static assets.
package pagedeck
