package pagedeck

import (
	"errors"
	"log/slog"
	"time"
)

// deckConfig holds mutable state during Deck construction.
type deckConfig struct {
	title           string
	siteDir         string
	targets         []Target
	checkInterval   time.Duration
	port            int
	maxConcurrency  int
	requestRate     float64
	liveReload      bool
	markdown        bool
	watch           bool
	auditConfig     AuditConfig
	logger          *slog.Logger
	resultCallbacks []func(CheckResult)
}

// Option is a function that configures a [Deck] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithSiteDir], [WithTarget], [WithTargets],
// [WithCheckInterval], [WithPort], [WithMaxConcurrency], [WithRequestRate],
// [WithLiveReload], [WithMarkdown], [WithWatch], [WithAuditConfig],
// [WithLogger], [WithResultCallback], [WithTitle].
type Option func(*deckConfig) error

// WithSiteDir sets the site directory to scan, audit, and serve.
//
// The directory should contain the tree exactly as it will be published:
// index.html at the root, vendored assets under their referenced paths.
// A site directory is required for [New] to succeed.
//
// Example:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	)
func WithSiteDir(dir string) Option {
	return func(cfg *deckConfig) error {
		if dir == "" {
			return errors.New("site directory cannot be empty")
		}
		cfg.siteDir = dir
		return nil
	}
}

// WithTarget adds a single [Target] to the check list.
//
// Can be called multiple times to add multiple targets. Targets are
// optional; without any, the deck previews and audits but checks nothing.
//
// Example:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithTarget(t1),
//	    pagedeck.WithTarget(t2),
//	)
func WithTarget(t Target) Option {
	return func(cfg *deckConfig) error {
		cfg.targets = append(cfg.targets, t)
		return nil
	}
}

// WithTargets adds multiple [Target] values to the check list.
//
// This is a convenience function for adding several targets at once.
// Equivalent to calling [WithTarget] multiple times.
//
// Example:
//
//	targets, _ := pagedeck.SiteTargets("https://user.github.io/project", inv)
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithTargets(targets...),
//	)
func WithTargets(targets ...Target) Option {
	return func(cfg *deckConfig) error {
		cfg.targets = append(cfg.targets, targets...)
		return nil
	}
}

// WithCheckInterval sets how often all targets are checked.
//
// The interval applies globally to all targets that do not carry their own
// via [WithInterval]. Each check cycle checks due targets concurrently
// (up to the [WithMaxConcurrency] limit). Defaults to 30 seconds if not
// specified.
//
// Example:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithCheckInterval(time.Minute),
//	)
//
// Returns an error if the duration is zero or negative.
func WithCheckInterval(d time.Duration) Option {
	return func(cfg *deckConfig) error {
		if d <= 0 {
			return errors.New("check interval must be positive")
		}
		cfg.checkInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the preview server.
//
// The site preview and the dashboard will be available at
// http://localhost:<port>. Defaults to 8080 if not specified.
//
// Example:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithPort(9090),
//	)
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *deckConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency sets the maximum number of concurrent HTTP requests.
//
// This limits how many targets are checked simultaneously during each
// check cycle. Defaults to 8 if not specified.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *deckConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithRequestRate caps outbound check requests per second across all
// workers.
//
// Pages hosts rate-limit aggressive clients; a deck checking every vendored
// asset of a large site can trip that. Zero (the default) disables the cap.
//
// Returns an error if the rate is negative.
func WithRequestRate(perSecond float64) Option {
	return func(cfg *deckConfig) error {
		if perSecond < 0 {
			return errors.New("request rate cannot be negative")
		}
		cfg.requestRate = perSecond
		return nil
	}
}

// WithLiveReload enables browser live reload in the preview.
//
// Served HTML pages get a small script injected that reloads the page when
// the site changes on disk. Implies nothing about watching; combine with
// [WithWatch] (on by default) for the full edit-and-see loop.
func WithLiveReload(enabled bool) Option {
	return func(cfg *deckConfig) error {
		cfg.liveReload = enabled
		return nil
	}
}

// WithMarkdown enables rendering markdown files to HTML in the preview,
// approximating how a Pages-style host renders README.md and friends.
// Disabled by default; markdown files are then served as plain text.
func WithMarkdown(enabled bool) Option {
	return func(cfg *deckConfig) error {
		cfg.markdown = enabled
		return nil
	}
}

// WithWatch controls whether the site directory is watched for changes.
//
// Watching is enabled by default: edits and generator runs trigger a rescan,
// a re-audit, and (with [WithLiveReload]) a browser reload. Disable for
// one-shot or read-only usage.
func WithWatch(enabled bool) Option {
	return func(cfg *deckConfig) error {
		cfg.watch = enabled
		return nil
	}
}

// WithAuditConfig sets the audit rules: required paths and vendored library
// specs the site must carry. The zero [AuditConfig] runs only the generic
// rules (reference integrity, case sensitivity, Jekyll underscore paths).
//
// Example:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithAuditConfig(pagedeck.AuditConfig{
//	        RequiredPaths: []string{"index.html", ".nojekyll"},
//	        Vendors: []pagedeck.VendorSpec{
//	            {Name: "plotly", Paths: []string{"vendor/plotly.min.js"}},
//	        },
//	    }),
//	)
func WithAuditConfig(ac AuditConfig) Option {
	return func(cfg *deckConfig) error {
		cfg.auditConfig = ac
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Deck instance.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithLogger(logger),
//	)
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *deckConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithResultCallback registers a function to be called on every check
// completion.
//
// The callback receives a [CheckResult] containing the check outcome,
// including the target name, URL, status, latency, and the raw HTTP
// response.
//
// Multiple callbacks may be registered by calling WithResultCallback
// multiple times; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Long-running operations should
// dispatch work to a separate goroutine. Blocking callbacks will delay
// subsequent check result processing.
//
// Callbacks are invoked synchronously from a single goroutine. Panics within
// callbacks are recovered and logged; they do not crash the scheduler.
//
// Example:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithTarget(root),
//	    pagedeck.WithResultCallback(func(result pagedeck.CheckResult) {
//	        if result.Status == pagedeck.StatusMissing {
//	            log.Printf("ALERT: %s is 404ing!", result.TargetName)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithResultCallback(cb func(CheckResult)) Option {
	return func(cfg *deckConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.resultCallbacks = append(cfg.resultCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "PageDeck".
//
// Example:
//
//	deck, err := pagedeck.New(
//	    pagedeck.WithSiteDir("docs"),
//	    pagedeck.WithTitle("SigChain Demo Pages"),
//	)
func WithTitle(title string) Option {
	return func(cfg *deckConfig) error {
		cfg.title = title
		return nil
	}
}
