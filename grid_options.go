package pagedeck

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// gridConfig holds configuration during target grid construction.
type gridConfig struct {
	urlTemplate  string
	dimensions   map[string][]string
	staticLabels map[string]string
	headers      map[string]string
	timeout      time.Duration
	probe        Probe
	method       string
	interval     time.Duration
}

// GridOption configures target grid generation.
// GridOption implements the functional options pattern for [NewTargetGrid].
type GridOption func(*gridConfig) error

// WithURLTemplate sets the URL template for target generation.
// The template uses Go's text/template syntax with dimension keys as variables.
//
// Example:
//
//	WithURLTemplate("https://{{.mirror}}.example.io/{{.project}}/")
//
// Returns an error if the template string is empty.
func WithURLTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("URL template required")
		}
		cfg.urlTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
// Each key in the map becomes a template variable, and the cartesian product
// of all values generates the target combinations.
//
// Example:
//
//	WithDimensions(map[string][]string{
//	    "mirror":  {"pages", "staging"},
//	    "project": {"sigchain-demos", "docs"},
//	})
//
// Returns an error if the map is empty, any dimension has no values,
// or any value is an empty string.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridLabels adds static labels to all generated targets.
// These labels are merged with auto-generated dimension labels.
// On collision, static labels take precedence over dimension labels.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	WithGridLabels("kind", "mirror", "tier", "public")
func WithGridLabels(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridLabels requires an even number of arguments (key-value pairs)")
		}
		if cfg.staticLabels == nil {
			cfg.staticLabels = make(map[string]string)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.staticLabels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithGridHeaders adds HTTP headers to all generated targets.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	WithGridHeaders("Authorization", "Bearer token")
func WithGridHeaders(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridHeaders requires an even number of arguments (key-value pairs)")
		}
		if cfg.headers == nil {
			cfg.headers = make(map[string]string)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithGridTimeout sets the HTTP request timeout for all generated targets.
//
// Returns an error if the duration is negative.
// A duration of zero is valid and means use the target default.
func WithGridTimeout(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithGridProbe sets a custom [Probe] for all generated targets.
// If nil, targets use [DefaultProbe].
func WithGridProbe(p Probe) GridOption {
	return func(cfg *gridConfig) error {
		cfg.probe = p
		return nil
	}
}

// WithGridMethod sets the HTTP method for all generated targets.
//
// Supported methods are GET (default) and HEAD.
//
// Returns an error if the method is not GET or HEAD.
func WithGridMethod(method string) GridOption {
	return func(cfg *gridConfig) error {
		switch method {
		case http.MethodGet, http.MethodHead:
			cfg.method = method
			return nil
		default:
			return errors.New("method must be GET or HEAD")
		}
	}
}

// WithGridInterval sets a custom check interval for all generated targets.
// This overrides the global check interval set on [Deck].
//
// The interval must be between 1 second and 1 hour.
// A zero duration means use the global check interval.
//
// Note: The interval is measured from when a check starts, not when it
// completes. For slow hosts, effective interval = configured interval +
// check duration.
//
// Example:
//
//	WithGridInterval(30 * time.Second)
func WithGridInterval(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("interval cannot be negative")
		}
		if d != 0 && d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		if d > time.Hour {
			return errors.New("interval must not exceed 1 hour")
		}
		cfg.interval = d
		return nil
	}
}
