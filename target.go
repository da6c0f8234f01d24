package pagedeck

import (
	"errors"
	"net/url"
	"time"
)

const defaultTargetTimeout = 10 * time.Second

// Target represents a deployed-site URL to verify.
//
// Target is immutable after creation via [NewTarget]. All fields are
// private with getter methods that return copies of mutable data (maps),
// ensuring the target cannot be modified after construction.
//
// Targets are configured using the functional options pattern with
// [TargetOption] functions such as [WithLabels], [WithHeaders],
// [WithTimeout], [WithProbe], [WithMethod], and [WithInterval].
type Target struct {
	name     string
	url      string
	labels   map[string]string
	headers  map[string]string
	timeout  time.Duration
	probe    Probe
	method   string
	interval time.Duration
}

// Name returns the target's display name.
// The name is used for identification in the dashboard and logs.
func (t Target) Name() string {
	return t.name
}

// URL returns the target's URL as a string.
// This is the deployed-site URL that will be fetched during checks.
func (t Target) URL() string {
	return t.url
}

// Labels returns a copy of the target's labels.
// Labels are key-value metadata used for grouping and filtering targets
// in the dashboard. Returns nil if no labels are set.
func (t Target) Labels() map[string]string {
	return copyMap(t.labels)
}

// Headers returns a copy of the target's custom HTTP headers.
// These headers are sent with every check request to this target.
// Returns nil if no custom headers are set.
func (t Target) Headers() map[string]string {
	return copyMap(t.headers)
}

// Timeout returns the target's HTTP request timeout.
// Defaults to 10 seconds if not explicitly set via [WithTimeout].
func (t Target) Timeout() time.Duration {
	return t.timeout
}

// Probe returns the target's [Probe] function.
// Returns nil if no custom probe was specified. When nil, the checking
// layer applies [DefaultProbe].
func (t Target) Probe() Probe {
	return t.probe
}

// Method returns the HTTP method for check requests.
// Returns empty string if not explicitly set, which means GET will be used.
func (t Target) Method() string {
	return t.method
}

// Interval returns the target's custom check interval.
// Returns 0 if no custom interval was specified, meaning the global
// check interval configured via [WithCheckInterval] should be used.
func (t Target) Interval() time.Duration {
	return t.interval
}

// NewTarget creates a [Target] with the given name, URL, and options.
//
// The name parameter is a human-readable identifier displayed in the
// dashboard. The rawURL parameter must be a valid URL with a scheme
// (http:// or https://).
//
// Options are applied in order using the functional options pattern.
// See [WithLabels], [WithHeaders], [WithTimeout], and [WithProbe].
//
// Returns an error if the name is empty or the URL is invalid.
//
// Example:
//
//	t, err := pagedeck.NewTarget("Site root", "https://user.github.io/project/",
//	    pagedeck.WithProbe(pagedeck.PageProbe),
//	    pagedeck.WithTimeout(5 * time.Second),
//	)
func NewTarget(name, rawURL string, opts ...TargetOption) (Target, error) {
	if name == "" {
		return Target{}, errors.New("target name cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme == "" {
		return Target{}, errors.New("URL must have a scheme (http:// or https://)")
	}

	cfg := &targetConfig{
		labels:  make(map[string]string),
		headers: make(map[string]string),
		timeout: defaultTargetTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Target{}, err
		}
	}

	return Target{
		name:     name,
		url:      rawURL,
		labels:   cfg.labels,
		headers:  cfg.headers,
		timeout:  cfg.timeout,
		probe:    cfg.probe,
		method:   cfg.method,
		interval: cfg.interval,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
