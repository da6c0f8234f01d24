package pagedeck

import "time"

// Status represents the verification state of a deployed-site target.
//
// Status is a string type that can hold one of five predefined values:
// [StatusOK], [StatusMissing], [StatusStale], [StatusError], or
// [StatusUnknown]. Using a string type allows for easy JSON serialization
// and human-readable logging while maintaining type safety through the
// defined constants.
//
// The values map onto the failure modes a static-site operator actually
// sees after a deploy: the page 404s (missing), the content is an old
// version (stale), or the request fails outright (error).
type Status string

const (
	// StatusOK indicates the target is served and matches expectations.
	StatusOK Status = "ok"

	// StatusMissing indicates the host returned 404 for the target. For the
	// site root this usually means hosting is not enabled or the configured
	// branch/folder is wrong; for an asset it means the file was never
	// published.
	StatusMissing Status = "missing"

	// StatusStale indicates the target is served but its content does not
	// match the locally published version, typically because the host is
	// still propagating a recent publish or a CDN cache is holding old
	// content.
	StatusStale Status = "stale"

	// StatusError indicates the target is unreachable or returned an
	// unexpected response.
	StatusError Status = "error"

	// StatusUnknown indicates the status could not be determined.
	// This typically occurs when a probe cannot interpret the response.
	StatusUnknown Status = "unknown"
)

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s Status) String() string {
	return string(s)
}

// Hint returns operator-facing remediation advice for a non-ok status,
// or an empty string for [StatusOK] and [StatusUnknown].
func (s Status) Hint() string {
	switch s {
	case StatusMissing:
		return "verify hosting is enabled and the configured branch/folder matches the published location"
	case StatusStale:
		return "deploys can take a few minutes to propagate; wait and hard-refresh, or re-run with --wait"
	case StatusError:
		return "check the URL and network; open the page in a browser and inspect the console for load errors"
	default:
		return ""
	}
}

// Probe is a function type that determines the [Status] of a deployed-site
// target from its HTTP response.
//
// Probe follows functional programming principles: it is a pure function
// where the same inputs always produce the same output. This makes probes
// easy to test, compose, and reason about.
//
// Parameters:
//   - body: The HTTP response body as bytes
//   - statusCode: The HTTP status code (e.g., 200, 404, 500)
//
// Returns the determined [Status] value.
//
// Several built-in probes are provided: [StatusCodeProbe], [PageProbe],
// [HashProbe], [ManifestProbe], [ContainsProbe], and [FirstMatch] for
// composition.
//
// # Panic Safety
//
// Probe functions are called within a panic recovery boundary. If a probe
// panics, the target's status will be set to [StatusError] with an error
// containing a correlation ID. The full stack trace is logged server-side
// for debugging. This ensures that a misbehaving probe cannot crash the
// checker.
type Probe func(body []byte, statusCode int) Status

// CheckResult holds the outcome of checking a single deployed-site target.
//
// CheckResult is immutable after creation and contains all information
// about a check attempt, including the determined status, latency metrics,
// and any error that occurred. The RawResponse field preserves the original
// response body for debugging or custom processing.
type CheckResult struct {
	// TargetName is the display name of the checked target.
	TargetName string

	// URL is the target URL that was fetched.
	URL string

	// Status is the determined verification state of the target.
	Status Status

	// Labels contains the key-value metadata associated with the target.
	Labels map[string]string

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// CheckedAt is the timestamp when the check was performed.
	CheckedAt time.Time

	// Error contains any error that occurred during the check.
	// nil indicates the request completed successfully (though Status may
	// still be missing, stale, or error based on the response content).
	Error error

	// RawResponse contains the HTTP response body, limited to 8MB.
	RawResponse []byte

	// StatusCode is the HTTP status code returned by the host.
	// Zero if the request failed before receiving a response.
	StatusCode int
}
