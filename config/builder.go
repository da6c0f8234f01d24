package config

import (
	"sort"

	"github.com/pagedeck/pagedeck"
)

// BuildTargets converts parsed configuration into SDK Target objects.
//
// It processes explicit targets and grids, returning a combined slice.
// Grid dimensions are expanded via cartesian product. When the config
// defines no explicit targets or grids but carries a deploy base URL,
// targets are derived from the site inventory: the site root, the
// manifest, and every required and vendored path.
func BuildTargets(cfg *Config, inv *pagedeck.Inventory) ([]pagedeck.Target, error) {
	var targets []pagedeck.Target

	// convert explicit targets
	for _, tc := range cfg.Deploy.Targets {
		t, err := buildTarget(tc, inv)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	// convert grids (cartesian product expansion)
	for _, gc := range cfg.Deploy.Grids {
		gridTargets, err := buildGridTargets(gc, inv)
		if err != nil {
			return nil, err
		}
		targets = append(targets, gridTargets...)
	}

	// derive from the inventory when nothing explicit is configured
	if len(targets) == 0 && cfg.Deploy.BaseURL != "" && inv != nil {
		derived, err := pagedeck.SiteTargets(cfg.Deploy.BaseURL, inv, checkedPaths(cfg)...)
		if err != nil {
			return nil, err
		}
		targets = append(targets, derived...)
	}

	return targets, nil
}

// checkedPaths collects the site-relative paths worth verifying remotely:
// the required pages and every vendored library file.
func checkedPaths(cfg *Config) []string {
	var paths []string
	paths = append(paths, cfg.Site.Required...)
	for _, v := range cfg.Site.Vendors {
		paths = append(paths, v.Paths...)
	}
	return paths
}

// BuildAuditConfig converts the site section into SDK audit rules.
func BuildAuditConfig(cfg *Config) pagedeck.AuditConfig {
	ac := pagedeck.AuditConfig{
		RequiredPaths: cfg.Site.Required,
	}
	for _, v := range cfg.Site.Vendors {
		ac.Vendors = append(ac.Vendors, pagedeck.VendorSpec{Name: v.Name, Paths: v.Paths})
	}
	return ac
}

// BuildOptions converts parsed configuration plus built targets into SDK
// options for [pagedeck.New].
func BuildOptions(cfg *Config, targets []pagedeck.Target) []pagedeck.Option {
	opts := []pagedeck.Option{
		pagedeck.WithSiteDir(cfg.Site.Dir),
		pagedeck.WithPort(cfg.Serve.Port),
		pagedeck.WithCheckInterval(cfg.Deploy.CheckInterval.Duration()),
		pagedeck.WithMaxConcurrency(cfg.Deploy.MaxConcurrency),
		pagedeck.WithLiveReload(cfg.Serve.LiveReload),
		pagedeck.WithMarkdown(cfg.Site.Markdown),
		pagedeck.WithWatch(cfg.WatchEnabled()),
		pagedeck.WithAuditConfig(BuildAuditConfig(cfg)),
	}
	if cfg.Title != "" {
		opts = append(opts, pagedeck.WithTitle(cfg.Title))
	}
	if cfg.Deploy.RequestRate > 0 {
		opts = append(opts, pagedeck.WithRequestRate(cfg.Deploy.RequestRate))
	}
	if len(targets) > 0 {
		opts = append(opts, pagedeck.WithTargets(targets...))
	}
	return opts
}

// buildTarget converts a single TargetConfig to an SDK Target.
func buildTarget(tc TargetConfig, inv *pagedeck.Inventory) (pagedeck.Target, error) {
	var opts []pagedeck.TargetOption

	if tc.Method != "" {
		opts = append(opts, pagedeck.WithMethod(tc.Method))
	}

	if tc.Timeout != 0 {
		opts = append(opts, pagedeck.WithTimeout(tc.Timeout.Duration()))
	}

	if len(tc.Headers) > 0 {
		opts = append(opts, pagedeck.WithHeaders(mapToKeyValuePairs(tc.Headers)...))
	}

	if len(tc.Labels) > 0 {
		opts = append(opts, pagedeck.WithLabels(mapToKeyValuePairs(tc.Labels)...))
	}

	probe := buildProbe(tc.Probe, inv)
	if probe != nil {
		opts = append(opts, pagedeck.WithProbe(probe))
	}

	if tc.Interval != 0 {
		opts = append(opts, pagedeck.WithInterval(tc.Interval.Duration()))
	}

	return pagedeck.NewTarget(tc.Name, tc.URL, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildGridTargets expands a GridConfig into multiple targets via the SDK's
// cartesian product expansion.
func buildGridTargets(gc GridConfig, inv *pagedeck.Inventory) ([]pagedeck.Target, error) {
	opts := []pagedeck.GridOption{
		pagedeck.WithURLTemplate(gc.URLTemplate),
		pagedeck.WithDimensions(gc.Dimensions),
	}

	if gc.Method != "" {
		opts = append(opts, pagedeck.WithGridMethod(gc.Method))
	}
	if gc.Timeout != 0 {
		opts = append(opts, pagedeck.WithGridTimeout(gc.Timeout.Duration()))
	}
	if len(gc.Headers) > 0 {
		opts = append(opts, pagedeck.WithGridHeaders(mapToKeyValuePairs(gc.Headers)...))
	}
	if len(gc.Labels) > 0 {
		opts = append(opts, pagedeck.WithGridLabels(mapToKeyValuePairs(gc.Labels)...))
	}
	if probe := buildProbe(gc.Probe, inv); probe != nil {
		opts = append(opts, pagedeck.WithGridProbe(probe))
	}
	if gc.Interval != 0 {
		opts = append(opts, pagedeck.WithGridInterval(gc.Interval.Duration()))
	}

	return pagedeck.NewTargetGrid(gc.Name, opts...)
}

// buildProbe converts ProbeConfig to a Probe function.
// Returns nil for empty configs (SDK uses DefaultProbe).
func buildProbe(pc ProbeConfig, inv *pagedeck.Inventory) pagedeck.Probe {
	switch pc.Type {
	case "":
		// nil signals SDK to use DefaultProbe
		return nil
	case "status":
		return pagedeck.StatusCodeProbe
	case "page":
		return pagedeck.PageProbe
	case "contains":
		return pagedeck.ContainsProbe(pc.Text)
	case "hash":
		return pagedeck.HashProbe(pc.Sum)
	case "manifest":
		if inv == nil {
			// no local scan to compare against; fall back to reachability
			return pagedeck.StatusCodeProbe
		}
		return pagedeck.ManifestProbe(inv.Hash)
	default:
		// validation should catch this, but return nil as fallback
		return nil
	}
}
