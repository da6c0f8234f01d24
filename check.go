package pagedeck

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pagedeck/pagedeck/internal/probe"
)

// CheckOptions tunes a one-shot [CheckTargets] pass. The zero value is
// usable: default concurrency, no rate limit, the default logger.
type CheckOptions struct {
	// MaxConcurrency limits simultaneous HTTP requests. Zero selects the
	// same default as [New].
	MaxConcurrency int

	// RequestRate caps outbound requests per second. Zero disables the cap.
	RequestRate float64

	// Logger receives probe panic reports. Nil selects [slog.Default].
	Logger *slog.Logger
}

// CheckTargets performs a single check pass over the given targets and
// returns one [CheckResult] per target.
//
// Unlike [Deck.Start], CheckTargets does not serve anything and does not
// loop; it is the building block for one-shot verification after a deploy
// ("did everything land?"). Results are returned in completion order.
//
// The context bounds the whole pass. On cancellation the results collected
// so far are returned alongside the context error.
func CheckTargets(ctx context.Context, targets []Target, opts CheckOptions) ([]CheckResult, error) {
	if len(targets) == 0 {
		return nil, errors.New("at least one target is required")
	}

	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// the interval never fires: the scheduler's immediate pass produces
	// exactly one result per target, then the scheduler is stopped.
	// Per-target intervals are cleared too, or a short one would re-fire
	// its target while a slower check is still in flight and the duplicate
	// would be counted in place of the slow target's result.
	infos := toProbeInfos(targets)
	for i := range infos {
		infos[i].Interval = 0
	}
	scheduler := probe.NewScheduler(infos, time.Hour, maxConcurrency, opts.RequestRate, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	results := make([]CheckResult, 0, len(targets))
	for len(results) < len(targets) {
		select {
		case r, ok := <-scheduler.Results():
			if !ok {
				return results, ctx.Err()
			}
			results = append(results, probeResultToPublicResult(r))
		case <-ctx.Done():
			return results, ctx.Err()
		}
	}
	return results, nil
}

// toProbeInfos converts public targets to the probe package's representation.
func toProbeInfos(targets []Target) []probe.TargetInfo {
	result := make([]probe.TargetInfo, len(targets))

	for i, t := range targets {
		var probeFn probe.Probe
		if t.probe != nil {
			// wrap the pagedeck probe to return string
			pdProbe := t.probe
			probeFn = func(body []byte, statusCode int) string {
				return pdProbe(body, statusCode).String()
			}
		}

		result[i] = probe.TargetInfo{
			Name:     t.name,
			URL:      t.url,
			Labels:   copyMap(t.labels),
			Headers:  copyMap(t.headers),
			Timeout:  t.timeout,
			Probe:    probeFn,
			Method:   t.method,
			Interval: t.interval,
		}
	}

	return result
}
