package pagedeck

import (
	"strings"
	"testing"
	"time"
)

func TestNewRequiresSiteDir(t *testing.T) {
	if _, err := New(); err == nil {
		t.Errorf("New() error = nil, want site directory error")
	}

	deck, err := New(WithSiteDir("docs"))
	if err != nil {
		t.Fatalf("New(WithSiteDir) error = %v", err)
	}
	if deck.SiteDir() != "docs" {
		t.Errorf("SiteDir() = %q, want docs", deck.SiteDir())
	}
}

func TestNewDefaults(t *testing.T) {
	deck, err := New(WithSiteDir("docs"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if deck.Port() != defaultPort {
		t.Errorf("Port() = %d, want %d", deck.Port(), defaultPort)
	}
	if deck.CheckInterval() != defaultCheckInterval {
		t.Errorf("CheckInterval() = %v, want %v", deck.CheckInterval(), defaultCheckInterval)
	}
	if len(deck.Targets()) != 0 {
		t.Errorf("Targets() = %v, want empty", deck.Targets())
	}
}

func TestNewRejectsDuplicateTargetNames(t *testing.T) {
	t1, err := NewTarget("Home", "https://example.com/a")
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	t2, err := NewTarget("Home", "https://example.com/b")
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}

	_, err = New(WithSiteDir("docs"), WithTargets(t1, t2))
	if err == nil {
		t.Fatalf("New() error = nil, want duplicate name error")
	}
	if !strings.Contains(err.Error(), "duplicate target name") {
		t.Errorf("error = %v, want duplicate target name", err)
	}
}

func TestNewOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty site dir", WithSiteDir("")},
		{"zero interval", WithCheckInterval(0)},
		{"port too high", WithPort(70000)},
		{"port zero", WithPort(0)},
		{"zero concurrency", WithMaxConcurrency(0)},
		{"negative rate", WithRequestRate(-1)},
		{"nil logger", WithLogger(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(WithSiteDir("docs"), tt.opt); err == nil {
				t.Errorf("New() error = nil, want option error")
			}
		})
	}
}

func TestNewAppliesOptions(t *testing.T) {
	tgt, err := NewTarget("Home", "https://example.com/")
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}

	deck, err := New(
		WithSiteDir("site"),
		WithTarget(tgt),
		WithCheckInterval(time.Minute),
		WithPort(9090),
		WithMaxConcurrency(2),
		WithTitle("SigChain Demo Pages"),
		WithResultCallback(nil), // nil callbacks are ignored
		WithResultCallback(func(CheckResult) {}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if deck.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", deck.Port())
	}
	if deck.CheckInterval() != time.Minute {
		t.Errorf("CheckInterval() = %v, want 1m", deck.CheckInterval())
	}
	targets := deck.Targets()
	if len(targets) != 1 || targets[0].Name() != "Home" {
		t.Errorf("Targets() = %v, want one named Home", targets)
	}
}

func TestTargetsReturnsCopy(t *testing.T) {
	tgt, err := NewTarget("Home", "https://example.com/")
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	deck, err := New(WithSiteDir("docs"), WithTarget(tgt))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := deck.Targets()
	got[0] = Target{}
	if deck.Targets()[0].Name() != "Home" {
		t.Errorf("Targets() slice mutation leaked into deck")
	}
}
