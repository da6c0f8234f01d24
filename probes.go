package pagedeck

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pagedeck/pagedeck/internal/site"
)

// StatusCodeProbe is a [Probe] that determines status from the HTTP status
// code alone, ignoring the response body.
//
// Status mapping:
//   - 2xx (200-299): [StatusOK]
//   - 404: [StatusMissing]
//   - All other codes: [StatusError]
//
// This is the baseline reachability check for any published file.
var StatusCodeProbe Probe = func(body []byte, statusCode int) Status {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return StatusOK
	case statusCode == 404:
		return StatusMissing
	default:
		return StatusError
	}
}

// PageProbe is a [Probe] for HTML pages. It requires a 2xx response whose
// body looks like an HTML document.
//
// Status mapping:
//   - 2xx with an HTML body: [StatusOK]
//   - 404: [StatusMissing]
//   - 2xx with a non-HTML body, or any other code: [StatusError]
//
// A 200 response that is not HTML usually means a proxy or error page is
// answering in place of the site.
var PageProbe Probe = func(body []byte, statusCode int) Status {
	if statusCode == 404 {
		return StatusMissing
	}
	if statusCode < 200 || statusCode >= 300 {
		return StatusError
	}
	if looksLikeHTML(body) {
		return StatusOK
	}
	return StatusError
}

// looksLikeHTML reports whether the leading bytes of body resemble an HTML
// document. Only the first 1KB is inspected.
func looksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	lower := bytes.ToLower(head)
	return bytes.Contains(lower, []byte("<!doctype html")) ||
		bytes.Contains(lower, []byte("<html"))
}

// HashProbe returns a [Probe] that verifies the served body is byte-for-byte
// the locally published version by comparing SHA-256 digests.
//
// Status mapping:
//   - 2xx and digest matches hexSum: [StatusOK]
//   - 2xx and digest differs: [StatusStale]
//   - 404: [StatusMissing]
//   - All other codes: [StatusError]
//
// This detects stale content per file: the host is serving the path, but
// not the version that was last published.
//
// Example:
//
//	asset, _ := inv.Lookup("demo/index.html")
//	probe := pagedeck.HashProbe(asset.SHA256)
func HashProbe(hexSum string) Probe {
	want := strings.ToLower(hexSum)
	return func(body []byte, statusCode int) Status {
		if statusCode == 404 {
			return StatusMissing
		}
		if statusCode < 200 || statusCode >= 300 {
			return StatusError
		}
		sum := sha256.Sum256(body)
		if hex.EncodeToString(sum[:]) == want {
			return StatusOK
		}
		return StatusStale
	}
}

// ManifestProbe returns a [Probe] for the published manifest file. It
// decodes the body as a manifest and compares its site hash against the
// hash of the local tree, detecting whole-site staleness with a single
// request.
//
// Status mapping:
//   - 2xx and manifest site hash equals siteHash: [StatusOK]
//   - 2xx and site hash differs: [StatusStale]
//   - 404: [StatusMissing] (the manifest was never published)
//   - Undecodable body or any other code: [StatusError]
//
// Example:
//
//	probe := pagedeck.ManifestProbe(inv.Hash)
func ManifestProbe(siteHash string) Probe {
	return func(body []byte, statusCode int) Status {
		if statusCode == 404 {
			return StatusMissing
		}
		if statusCode < 200 || statusCode >= 300 {
			return StatusError
		}
		m, err := site.DecodeManifest(body)
		if err != nil {
			return StatusError
		}
		if m.SiteHash == siteHash {
			return StatusOK
		}
		return StatusStale
	}
}

// ContainsProbe returns a [Probe] that checks if the response body contains
// the specified text (case-insensitive).
//
// Status mapping:
//   - 2xx and body contains the text: [StatusOK]
//   - 2xx and body does not contain the text: [StatusError]
//   - 404: [StatusMissing]
//   - All other codes: [StatusError]
//
// This is useful for checking that a page still embeds a marker it cannot
// render without, such as the container div a charting library mounts into.
//
// Example:
//
//	probe := pagedeck.ContainsProbe("plotly-graph-div")
func ContainsProbe(text string) Probe {
	lower := strings.ToLower(text)
	return func(body []byte, statusCode int) Status {
		if statusCode == 404 {
			return StatusMissing
		}
		if statusCode < 200 || statusCode >= 300 {
			return StatusError
		}
		if strings.Contains(strings.ToLower(string(body)), lower) {
			return StatusOK
		}
		return StatusError
	}
}

// FirstMatch returns a [Probe] that tries multiple probes in order,
// returning the first result that is not [StatusUnknown].
//
// This is useful for composing probes with fallback behavior. Each probe
// is tried in sequence until one returns a definitive status.
//
// If all probes return [StatusUnknown], FirstMatch returns [StatusUnknown].
//
// Example:
//
//	probe := pagedeck.FirstMatch(
//	    pagedeck.ContainsProbe("plotly-graph-div"),
//	    pagedeck.StatusCodeProbe,
//	)
func FirstMatch(probes ...Probe) Probe {
	return func(body []byte, statusCode int) Status {
		for _, probe := range probes {
			status := probe(body, statusCode)
			if status != StatusUnknown {
				return status
			}
		}
		return StatusUnknown
	}
}

// DefaultProbe is the [Probe] used when no probe is specified on a [Target].
// It maps the HTTP status code alone via [StatusCodeProbe].
var DefaultProbe = StatusCodeProbe
