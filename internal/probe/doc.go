// Package probe implements deployed-site verification.
//
// It contains the HTTP client with rate limiting ([Client]), the check
// scheduling logic ([Scheduler]), and the internal target representation
// ([TargetInfo]).
//
// The scheduler uses a worker pool pattern with configurable concurrency,
// checks targets at their respective intervals with a tick-and-check loop,
// and emits results on a channel. An optional outbound rate limit keeps
// verification from hammering the host.
//
// This package is internal to PageDeck and its API may change without
// notice. Users should interact with the public pagedeck package instead.
package probe
