package probe

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CheckResult holds the outcome of checking a single target.
//
// CheckResult contains all information about a check attempt, including
// the determined status, timing information, and any error that occurred.
type CheckResult struct {
	// TargetName is the display name of the checked target.
	TargetName string

	// URL is the target URL that was fetched.
	URL string

	// Status is the determined verification state as a string
	// (e.g., "ok", "missing", "stale", "error").
	Status string

	// Labels contains the key-value metadata associated with the target.
	Labels map[string]string

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// CheckedAt is the timestamp when the check was performed.
	CheckedAt time.Time

	// Error contains any error that occurred during the check.
	Error error

	// RawResponse contains the HTTP response body for debugging.
	RawResponse []byte

	// StatusCode is the HTTP status code returned by the host.
	StatusCode int
}

// Probe is a function that determines status from an HTTP response.
//
// This is the probe-internal version that returns a string rather than
// the pagedeck.Status type, avoiding circular dependencies.
type Probe func(body []byte, statusCode int) string

// TargetInfo contains the configuration needed to check a single target.
//
// This is the probe-internal representation of a target, decoupled from
// the main pagedeck.Target type to avoid circular dependencies.
type TargetInfo struct {
	// Name is the display name of the target.
	Name string

	// URL is the deployed-site URL to fetch.
	URL string

	// Labels contains key-value metadata for the target.
	Labels map[string]string

	// Headers contains custom HTTP headers to send with requests.
	Headers map[string]string

	// Timeout is the per-request timeout duration.
	Timeout time.Duration

	// Probe determines how to interpret the response as a status.
	// If nil, the default HTTP status code mapping is used.
	Probe Probe

	// Method is the HTTP method (GET, HEAD). Empty defaults to GET.
	Method string

	// Interval is the custom check interval for this target.
	// If 0, the scheduler's global interval is used.
	Interval time.Duration
}

// Scheduler manages periodic checking of multiple targets.
//
// Scheduler implements a worker pool pattern, checking configured targets
// at their respective intervals with configurable concurrency. Results are
// emitted to a channel that can be consumed by the caller.
//
// The scheduler checks all targets immediately on start, then uses a
// tick-and-check pattern where it ticks at the GCD of all target intervals
// and checks only targets that are due.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	targets        []TargetInfo
	interval       time.Duration // global default interval
	maxConcurrency int
	client         *Client
	results        chan CheckResult
	logger         *slog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	// per-target timing for tick-and-check pattern
	lastCheckedAt map[string]time.Time
	baseInterval  time.Duration
}

// NewScheduler creates a new checking [Scheduler].
//
// Parameters:
//   - targets: List of targets to check
//   - interval: Time between check cycles
//   - maxConcurrency: Maximum number of concurrent HTTP requests
//   - requestRate: Outbound requests per second across all workers (0 disables)
//   - logger: Logger for scheduler events (panic recovery, etc.)
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(targets []TargetInfo, interval time.Duration, maxConcurrency int, requestRate float64, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		targets:        targets,
		interval:       interval,
		maxConcurrency: maxConcurrency,
		client:         NewClient(requestRate),
		results:        make(chan CheckResult, len(targets)),
		logger:         logger,
	}
}

// Results returns a receive-only channel that emits [CheckResult] values.
//
// The channel is closed when the scheduler stops. Consumers should read from
// this channel until it is closed to receive all check results.
func (s *Scheduler) Results() <-chan CheckResult {
	return s.results
}

// calculateBaseInterval determines the tick interval for the scheduler.
// Uses the GCD of all target intervals to ensure timely checking.
func (s *Scheduler) calculateBaseInterval() time.Duration {
	if len(s.targets) == 0 {
		return s.interval
	}

	intervals := make([]time.Duration, 0, len(s.targets))
	for _, t := range s.targets {
		if t.Interval > 0 {
			intervals = append(intervals, t.Interval)
		} else {
			intervals = append(intervals, s.interval)
		}
	}

	result := intervals[0]
	for _, d := range intervals[1:] {
		result = gcdDuration(result, d)
	}

	// floor at 1 second to prevent CPU thrashing
	if result < time.Second {
		result = time.Second
	}

	return result
}

// gcdDuration calculates the greatest common divisor of two durations.
func gcdDuration(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Start begins the checking loop in a background goroutine.
//
// Start is non-blocking and returns immediately. The scheduler will:
//  1. Check all targets immediately
//  2. Tick at the GCD of all target intervals
//  3. Check only targets that are due on each tick
//  4. Continue until [Scheduler.Stop] is called or the context is cancelled
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastCheckedAt = make(map[string]time.Time, len(s.targets))
	s.baseInterval = s.calculateBaseInterval()

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	checkCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		s.checkDueTargets(checkCtx, true)

		ticker := time.NewTicker(s.baseInterval)
		defer ticker.Stop()

		for {
			select {
			case <-checkCtx.Done():
				return
			case <-ticker.C:
				s.checkDueTargets(checkCtx, false)
			}
		}
	}()
}

// Stop halts the scheduler and waits for all goroutines to complete.
//
// Stop cancels the scheduler's context and blocks until:
//   - The checking loop exits
//   - All in-flight requests complete
//   - The results channel is closed
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// clean up client connections after all goroutines complete
	if s.client != nil {
		s.client.Close()
	}

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// checkDueTargets checks only targets that are due based on their intervals.
// If immediate is true, checks all targets regardless of timing.
//
// TIMING SEMANTIC: lastCheckedAt is updated when a check STARTS, not when it
// completes. This prevents concurrent checks of the same target but means
// effective interval = configured interval + check duration for slow hosts.
func (s *Scheduler) checkDueTargets(ctx context.Context, immediate bool) {
	now := time.Now()
	dueTargets := make([]TargetInfo, 0, len(s.targets))

	s.mu.Lock()
	for _, t := range s.targets {
		if immediate {
			dueTargets = append(dueTargets, t)
			s.lastCheckedAt[t.Name] = now
			continue
		}

		interval := t.Interval
		if interval == 0 {
			interval = s.interval // use global default
		}

		lastChecked, exists := s.lastCheckedAt[t.Name]
		if !exists || now.Sub(lastChecked) >= interval {
			dueTargets = append(dueTargets, t)
			s.lastCheckedAt[t.Name] = now
		}
	}
	s.mu.Unlock()

	if len(dueTargets) == 0 {
		return
	}

	s.checkTargets(ctx, dueTargets)
}

// checkTargets checks a subset of targets concurrently, respecting maxConcurrency.
func (s *Scheduler) checkTargets(ctx context.Context, targets []TargetInfo) {
	jobs := make(chan TargetInfo, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < s.maxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				result := s.checkTarget(ctx, t)
				select {
				case s.results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for _, t := range targets {
		select {
		case jobs <- t:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)

	wg.Wait()
}

// checkTarget checks a single target and returns the result.
func (s *Scheduler) checkTarget(ctx context.Context, t TargetInfo) CheckResult {
	resp := s.client.Fetch(ctx, t.Method, t.URL, t.Headers, t.Timeout)

	result := CheckResult{
		TargetName:  t.Name,
		URL:         t.URL,
		Labels:      t.Labels,
		Latency:     resp.Latency,
		CheckedAt:   time.Now(),
		RawResponse: resp.Body,
		StatusCode:  resp.StatusCode,
		Error:       resp.Error,
	}

	if resp.Error != nil {
		result.Status = "error"
	} else if t.Probe != nil {
		status, err := s.safeProbe(t.Probe, resp.Body, resp.StatusCode)
		result.Status = status
		if err != nil {
			result.Error = err
		}
	} else {
		// default: use HTTP status code
		result.Status = httpStatusToStatus(resp.StatusCode)
	}

	return result
}

// safeProbe calls the probe with panic recovery.
// If the probe panics, it logs the full stack trace with a correlation ID
// and returns "error" status with a user-friendly error containing the ID.
func (s *Scheduler) safeProbe(probe Probe, body []byte, statusCode int) (status string, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			// log full context server-side for debugging
			s.logger.Error("probe panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			status = "error"
			err = fmt.Errorf("probe panic (correlation_id: %s)", correlationID)
		}
	}()
	return probe(body, statusCode), nil
}

// httpStatusToStatus maps HTTP status codes to status strings.
func httpStatusToStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "ok"
	case code == 404:
		return "missing"
	default:
		return "error"
	}
}
