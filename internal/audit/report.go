package audit

import "time"

// Severity classifies how seriously a finding should be taken.
type Severity string

const (
	// SeverityError marks findings that will break the deployed site.
	SeverityError Severity = "error"

	// SeverityWarning marks findings that degrade the site or make it
	// fragile, but do not break it outright.
	SeverityWarning Severity = "warning"

	// SeverityInfo marks observations worth knowing about.
	SeverityInfo Severity = "info"
)

// rank orders severities for comparison; higher is worse.
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other or worse.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// Finding is a single audit observation.
type Finding struct {
	// Rule names the audit rule that produced the finding:
	// "required", "vendor", "refs", "case", "jekyll", "external",
	// "markdown", "orphans", or "symlinks".
	Rule string `json:"rule"`

	// Severity is the finding's classification.
	Severity Severity `json:"severity"`

	// Path is the site-relative path the finding concerns, when applicable.
	Path string `json:"path,omitempty"`

	// Detail is the human-readable description.
	Detail string `json:"detail"`
}

// Report is the outcome of auditing a site inventory.
type Report struct {
	// SiteHash is the hash of the audited inventory, tying the report to
	// an exact tree state.
	SiteHash string `json:"site_hash"`

	// GeneratedAt is when the audit ran.
	GeneratedAt time.Time `json:"generated_at"`

	// Findings lists every observation, errors first.
	Findings []Finding `json:"findings"`

	// Errors, Warnings, and Infos count findings per severity.
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Worst returns the most severe level present in the report, or an empty
// severity for a clean report.
func (r *Report) Worst() Severity {
	worst := Severity("")
	for _, f := range r.Findings {
		if f.Severity.rank() > worst.rank() {
			worst = f.Severity
		}
	}
	return worst
}

// HasErrors reports whether any error-level finding is present.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// count tallies the per-severity counters from Findings.
func (r *Report) count() {
	r.Errors, r.Warnings, r.Infos = 0, 0, 0
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityError:
			r.Errors++
		case SeverityWarning:
			r.Warnings++
		case SeverityInfo:
			r.Infos++
		}
	}
}
