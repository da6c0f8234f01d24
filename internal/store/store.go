package store

import "time"

// CheckResult represents the current state of a deployed-site target in
// storage.
//
// CheckResult is the storage representation of a target's verification
// state, optimized for JSON serialization (used by the status API and SSE).
// It is decoupled from the probe package's internal types to allow
// independent evolution.
type CheckResult struct {
	// Name is the target's display name.
	Name string `json:"name"`

	// URL is the deployed-site URL that was fetched.
	URL string `json:"url"`

	// Status is the determined verification state
	// (e.g., "ok", "missing", "stale", "error").
	Status string `json:"status"`

	// Labels contains key-value metadata for grouping and filtering.
	Labels map[string]string `json:"labels"`

	// ResponseTimeMs is the request latency in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// CheckedAt is the timestamp of the last check.
	CheckedAt time.Time `json:"checked_at"`

	// Error contains the error message if the check failed.
	// nil indicates no error (though status may still be "error").
	Error *string `json:"error"`
}

// Store defines the interface for storing and subscribing to check results.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a new check result and notifies all subscribers.
	// The result is keyed by Name, so subsequent updates replace previous values.
	Update(result CheckResult)

	// GetAll returns all currently stored check results.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []CheckResult

	// Subscribe returns a channel that receives check results.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan CheckResult

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan CheckResult)
}
