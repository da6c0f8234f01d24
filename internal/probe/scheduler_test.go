package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collectResults(t *testing.T, s *Scheduler, n int) []CheckResult {
	t.Helper()
	out := make([]CheckResult, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case r, ok := <-s.Results():
			if !ok {
				t.Fatalf("results channel closed after %d of %d results", len(out), n)
			}
			out = append(out, r)
		case <-timeout:
			t.Fatalf("timed out after %d of %d results", len(out), n)
		}
	}
	return out
}

func TestSchedulerImmediatePass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "gone.png") {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	targets := []TargetInfo{
		{Name: "root", URL: srv.URL + "/index.html", Timeout: 5 * time.Second},
		{Name: "plot", URL: srv.URL + "/gone.png", Timeout: 5 * time.Second},
	}
	s := NewScheduler(targets, time.Hour, 4, 0, discardLogger())
	s.Start(context.Background())
	defer s.Stop()

	results := collectResults(t, s, 2)
	byName := make(map[string]CheckResult, len(results))
	for _, r := range results {
		byName[r.TargetName] = r
	}
	if byName["root"].Status != "ok" {
		t.Errorf("root status = %q, want ok", byName["root"].Status)
	}
	if byName["plot"].Status != "missing" {
		t.Errorf("plot status = %q, want missing", byName["plot"].Status)
	}
}

func TestSchedulerUsesProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("old content"))
	}))
	defer srv.Close()

	probe := func(body []byte, statusCode int) string {
		if strings.Contains(string(body), "old") {
			return "stale"
		}
		return "ok"
	}
	targets := []TargetInfo{{Name: "page", URL: srv.URL, Timeout: 5 * time.Second, Probe: probe}}
	s := NewScheduler(targets, time.Hour, 1, 0, discardLogger())
	s.Start(context.Background())
	defer s.Stop()

	r := collectResults(t, s, 1)[0]
	if r.Status != "stale" {
		t.Errorf("status = %q, want stale", r.Status)
	}
	if r.Error != nil {
		t.Errorf("error = %v, want nil", r.Error)
	}
}

func TestSchedulerProbePanicRecovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	probe := func(body []byte, statusCode int) string {
		panic("boom")
	}
	targets := []TargetInfo{{Name: "bad", URL: srv.URL, Timeout: 5 * time.Second, Probe: probe}}
	s := NewScheduler(targets, time.Hour, 1, 0, discardLogger())
	s.Start(context.Background())
	defer s.Stop()

	r := collectResults(t, s, 1)[0]
	if r.Status != "error" {
		t.Errorf("status = %q, want error", r.Status)
	}
	if r.Error == nil || !strings.Contains(r.Error.Error(), "correlation_id") {
		t.Errorf("error = %v, want correlation id in message", r.Error)
	}
}

func TestSchedulerPerTargetInterval(t *testing.T) {
	var fast, slow atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/fast") {
			fast.Add(1)
		} else {
			slow.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	targets := []TargetInfo{
		{Name: "fast", URL: srv.URL + "/fast", Timeout: 5 * time.Second, Interval: time.Second},
		{Name: "slow", URL: srv.URL + "/slow", Timeout: 5 * time.Second, Interval: time.Hour},
	}
	s := NewScheduler(targets, time.Hour, 2, 0, discardLogger())
	s.Start(context.Background())

	// immediate pass plus at least one fast tick
	deadline := time.Now().Add(4 * time.Second)
	for fast.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()

	if fast.Load() < 2 {
		t.Errorf("fast target checked %d times, want >= 2", fast.Load())
	}
	if slow.Load() != 1 {
		t.Errorf("slow target checked %d times, want exactly 1", slow.Load())
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	s := NewScheduler(nil, time.Minute, 1, 0, discardLogger())
	s.Stop()
	s.Stop() // second call must not panic

	// Start after Stop is a no-op; channel stays closed
	s.Start(context.Background())
	if _, ok := <-s.Results(); ok {
		t.Errorf("Results() open after Stop, want closed")
	}
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	s := NewScheduler([]TargetInfo{{Name: "x", URL: "http://example.invalid"}}, time.Minute, 1, 0, discardLogger())
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Stop() before Start() blocked")
	}
}

func TestCalculateBaseInterval(t *testing.T) {
	tests := []struct {
		name      string
		intervals []time.Duration
		global    time.Duration
		want      time.Duration
	}{
		{"no targets", nil, 30 * time.Second, 30 * time.Second},
		{"uniform", []time.Duration{10 * time.Second, 10 * time.Second}, 30 * time.Second, 10 * time.Second},
		{"gcd", []time.Duration{15 * time.Second, 10 * time.Second}, 30 * time.Second, 5 * time.Second},
		{"zero uses global", []time.Duration{0, 20 * time.Second}, 30 * time.Second, 10 * time.Second},
		{"floors at one second", []time.Duration{1500 * time.Millisecond, 1250 * time.Millisecond}, 30 * time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := make([]TargetInfo, len(tt.intervals))
			for i, d := range tt.intervals {
				targets[i] = TargetInfo{Name: string(rune('a' + i)), Interval: d}
			}
			s := NewScheduler(targets, tt.global, 1, 0, discardLogger())
			if got := s.calculateBaseInterval(); got != tt.want {
				t.Errorf("calculateBaseInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatusToStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "ok"},
		{204, "ok"},
		{404, "missing"},
		{301, "error"},
		{500, "error"},
		{503, "error"},
	}
	for _, tt := range tests {
		if got := httpStatusToStatus(tt.code); got != tt.want {
			t.Errorf("httpStatusToStatus(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
