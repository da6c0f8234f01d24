package pagedeck

import (
	"errors"
	"net/http"
	"time"
)

// targetConfig holds mutable state during target construction.
type targetConfig struct {
	labels   map[string]string
	headers  map[string]string
	timeout  time.Duration
	probe    Probe
	method   string
	interval time.Duration
}

// TargetOption is a function that configures a [Target] during construction.
//
// TargetOption implements the functional options pattern, allowing optional
// configuration to be passed to [NewTarget] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithLabels], [WithHeaders], [WithTimeout], [WithProbe].
type TargetOption func(*targetConfig) error

// WithLabels adds metadata labels to the target for grouping and filtering.
//
// Labels are key-value pairs that appear in the dashboard and can be used
// to categorize targets (e.g., by mirror, environment, or asset kind).
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	t, err := pagedeck.NewTarget("Vendor bundle", url,
//	    pagedeck.WithLabels("kind", "vendor", "bundle", "charting"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithLabels(keyValues ...string) TargetOption {
	return func(cfg *targetConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithHeaders adds custom HTTP headers to check requests for this target.
//
// Use this for hosts that require authentication or custom headers, or to
// bypass caches with Cache-Control request directives.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	t, err := pagedeck.NewTarget("Preview", url,
//	    pagedeck.WithHeaders("Authorization", "Bearer token123"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) TargetOption {
	return func(cfg *targetConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the HTTP request timeout for this target.
//
// If the host does not respond within this duration, the check is
// considered failed and the target status is set to [StatusError].
// Defaults to 10 seconds if not specified.
//
// Example:
//
//	t, err := pagedeck.NewTarget("Large bundle", url,
//	    pagedeck.WithTimeout(30 * time.Second),
//	)
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) TargetOption {
	return func(cfg *targetConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithProbe sets a custom [Probe] for this target.
//
// The probe determines how to interpret the HTTP response as a [Status].
// If not specified, the target uses [DefaultProbe], which maps the HTTP
// status code alone.
//
// Example:
//
//	t, err := pagedeck.NewTarget("Index", url,
//	    pagedeck.WithProbe(pagedeck.HashProbe(asset.SHA256)),
//	)
func WithProbe(p Probe) TargetOption {
	return func(cfg *targetConfig) error {
		cfg.probe = p
		return nil
	}
}

// WithMethod sets the HTTP method for check requests.
//
// Supported methods are GET (default) and HEAD. Use HEAD for targets where
// you only need reachability without downloading the body; note that
// body-inspecting probes like [HashProbe] require GET.
//
// If not specified, GET is used.
//
// Example:
//
//	t, err := pagedeck.NewTarget("Big asset", url,
//	    pagedeck.WithMethod("HEAD"),
//	)
//
// Returns an error if the method is not GET or HEAD.
func WithMethod(method string) TargetOption {
	return func(cfg *targetConfig) error {
		switch method {
		case http.MethodGet, http.MethodHead:
			cfg.method = method
			return nil
		default:
			return errors.New("method must be GET or HEAD")
		}
	}
}

// WithInterval sets a custom check interval for this target.
//
// When set, this target is checked at the specified interval instead of
// the global check interval. Use this to check the site root more
// frequently or heavy vendor bundles less frequently.
//
// The interval must be at least 1 second and at most 1 hour.
// Returns an error if the interval is outside these bounds.
//
// If not specified, the target uses the global check interval
// configured via [WithCheckInterval].
//
// Note: The interval is measured from when a check starts, not when it
// completes. For slow hosts, effective interval = configured interval +
// check duration.
//
// Example:
//
//	root, _ := pagedeck.NewTarget("Site root", url,
//	    pagedeck.WithInterval(15 * time.Second),
//	)
//
//	bundle, _ := pagedeck.NewTarget("Charting bundle", bundleURL,
//	    pagedeck.WithInterval(5 * time.Minute),
//	)
func WithInterval(d time.Duration) TargetOption {
	return func(cfg *targetConfig) error {
		if d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		if d > time.Hour {
			return errors.New("interval must not exceed 1 hour")
		}
		cfg.interval = d
		return nil
	}
}
