package pagedeck

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestStatusCodeProbe(t *testing.T) {
	tests := []struct {
		code int
		want Status
	}{
		{200, StatusOK},
		{204, StatusOK},
		{404, StatusMissing},
		{301, StatusError},
		{500, StatusError},
	}
	for _, tt := range tests {
		if got := StatusCodeProbe(nil, tt.code); got != tt.want {
			t.Errorf("StatusCodeProbe(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestPageProbe(t *testing.T) {
	htmlBody := []byte("<!DOCTYPE html><html><body>x</body></html>")
	tests := []struct {
		name string
		body []byte
		code int
		want Status
	}{
		{"html ok", htmlBody, 200, StatusOK},
		{"upper html", []byte("<HTML><BODY>x</BODY></HTML>"), 200, StatusOK},
		{"not found", htmlBody, 404, StatusMissing},
		{"json body", []byte(`{"error":"x"}`), 200, StatusError},
		{"server error", htmlBody, 500, StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageProbe(tt.body, tt.code); got != tt.want {
				t.Errorf("PageProbe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashProbe(t *testing.T) {
	body := []byte("console.log(1);")
	sum := sha256.Sum256(body)
	hexSum := hex.EncodeToString(sum[:])

	probe := HashProbe(strings.ToUpper(hexSum)) // case-insensitive sum
	if got := probe(body, 200); got != StatusOK {
		t.Errorf("matching body = %v, want ok", got)
	}
	if got := probe([]byte("// old deploy"), 200); got != StatusStale {
		t.Errorf("mismatched body = %v, want stale", got)
	}
	if got := probe(nil, 404); got != StatusMissing {
		t.Errorf("404 = %v, want missing", got)
	}
	if got := probe(body, 500); got != StatusError {
		t.Errorf("500 = %v, want error", got)
	}
}

func TestManifestProbe(t *testing.T) {
	inv := scanFixtureSite(t)
	fresh, err := BuildSiteManifest(inv, "pub-1").Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	probe := ManifestProbe(inv.Hash)
	if got := probe(fresh, 200); got != StatusOK {
		t.Errorf("fresh manifest = %v, want ok", got)
	}

	stale := ManifestProbe(strings.Repeat("0", 64))
	if got := stale(fresh, 200); got != StatusStale {
		t.Errorf("hash mismatch = %v, want stale", got)
	}

	if got := probe([]byte("<html>404</html>"), 200); got != StatusError {
		t.Errorf("undecodable body = %v, want error", got)
	}
	if got := probe(nil, 404); got != StatusMissing {
		t.Errorf("404 = %v, want missing", got)
	}
}

func TestContainsProbe(t *testing.T) {
	probe := ContainsProbe("Plotly-Graph-Div")
	if got := probe([]byte(`<div class="plotly-graph-div"></div>`), 200); got != StatusOK {
		t.Errorf("case-insensitive match = %v, want ok", got)
	}
	if got := probe([]byte("<div>empty page</div>"), 200); got != StatusError {
		t.Errorf("no match = %v, want error", got)
	}
	if got := probe(nil, 404); got != StatusMissing {
		t.Errorf("404 = %v, want missing", got)
	}
}

func TestFirstMatch(t *testing.T) {
	unknown := Probe(func([]byte, int) Status { return StatusUnknown })
	stale := Probe(func([]byte, int) Status { return StatusStale })

	if got := FirstMatch(unknown, stale, StatusCodeProbe)(nil, 200); got != StatusStale {
		t.Errorf("FirstMatch = %v, want first definitive (stale)", got)
	}
	if got := FirstMatch(unknown, unknown)(nil, 200); got != StatusUnknown {
		t.Errorf("FirstMatch all-unknown = %v, want unknown", got)
	}
}

func TestStatusHint(t *testing.T) {
	for _, s := range []Status{StatusMissing, StatusStale, StatusError} {
		if s.Hint() == "" {
			t.Errorf("%s.Hint() empty, want remediation text", s)
		}
	}
	for _, s := range []Status{StatusOK, StatusUnknown} {
		if s.Hint() != "" {
			t.Errorf("%s.Hint() = %q, want empty", s, s.Hint())
		}
	}
}
