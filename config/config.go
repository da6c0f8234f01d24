// Package config provides YAML configuration parsing for PageDeck.
//
// This package enables running PageDeck as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: SigChain Demo Pages
//
//	site:
//	  dir: docs
//	  required: [index.html, demo/index.html]
//	  vendors:
//	    - name: plotly
//	      paths: [vendor/plotly/plotly.min.js]
//
//	serve:
//	  port: 8080
//	  live_reload: true
//
//	deploy:
//	  base_url: https://user.github.io/project
//	  check_interval: 30s
//
//	publish:
//	  branch: gh-pages
//	  nojekyll: true
package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

// minCheckInterval is the minimum allowed check interval for production
// configs. This prevents accidental hammering of the hosting provider.
const minCheckInterval = 1 * time.Second

// Config is the root configuration structure for PageDeck.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "PageDeck" if not set.
	Title string `yaml:"title"`

	// Site describes the local site tree and its audit rules.
	Site SiteConfig `yaml:"site"`

	// Serve configures the local preview server.
	Serve ServeConfig `yaml:"serve"`

	// Deploy configures deployed-site checking.
	Deploy DeployConfig `yaml:"deploy"`

	// Publish configures how the site ships to its hosting branch/folder.
	Publish PublishConfig `yaml:"publish"`

	// Generator configures the external command that regenerates the site.
	Generator GeneratorConfig `yaml:"generator"`
}

// SiteConfig describes the local site tree.
type SiteConfig struct {
	// Dir is the site directory. Defaults to "docs".
	Dir string `yaml:"dir"`

	// Required lists site-relative paths that must exist and be non-empty.
	Required []string `yaml:"required"`

	// Vendors lists the vendored libraries the site must carry.
	Vendors []VendorConfig `yaml:"vendors"`

	// Markdown enables markdown rendering in the preview.
	Markdown bool `yaml:"markdown"`
}

// VendorConfig names a vendored library and its expected paths.
type VendorConfig struct {
	// Name is the library's display name (e.g. "plotly").
	Name string `yaml:"name"`

	// Paths are the site-relative files the library ships as.
	Paths []string `yaml:"paths"`
}

// ServeConfig configures the preview server.
type ServeConfig struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// LiveReload injects a reload script into served pages.
	LiveReload bool `yaml:"live_reload"`

	// Watch rescans the site on changes. Defaults to true; use a literal
	// false to disable.
	Watch *bool `yaml:"watch"`
}

// DeployConfig configures deployed-site checking.
type DeployConfig struct {
	// BaseURL is the deployed site's base URL
	// (e.g. https://user.github.io/project). When set and no explicit
	// targets are defined, targets are derived from the site inventory.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// CheckInterval is the time between check cycles.
	// Accepts duration strings like "30s", "1m". Defaults to 30s.
	CheckInterval Duration `yaml:"check_interval"`

	// MaxConcurrency limits simultaneous check requests. Defaults to 8.
	MaxConcurrency int `yaml:"max_concurrency"`

	// RequestRate caps outbound requests per second. 0 disables the cap.
	RequestRate float64 `yaml:"request_rate"`

	// Targets defines individual check targets.
	Targets []TargetConfig `yaml:"targets"`

	// Grids defines target grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// PublishConfig configures publishing.
type PublishConfig struct {
	// Remote is the git remote to push to. Defaults to "origin".
	Remote string `yaml:"remote"`

	// RepoDir is the git repository root. Empty means the repository
	// containing the site directory.
	RepoDir string `yaml:"repo_dir"`

	// Branch is the hosting branch. Defaults to "gh-pages".
	Branch string `yaml:"branch"`

	// Folder is the hosting folder: "/" (or empty) selects branch mode;
	// anything else selects folder mode on the current branch.
	Folder string `yaml:"folder"`

	// Message is the commit message. Empty selects a generated one.
	Message string `yaml:"message"`

	// CNAME, when set, publishes a CNAME file for a custom domain.
	CNAME string `yaml:"cname"`

	// NoJekyll publishes a .nojekyll marker. Defaults to true; use a
	// literal false to disable.
	NoJekyll *bool `yaml:"nojekyll"`

	// RenderMarkdown pre-renders markdown files to .html siblings.
	RenderMarkdown bool `yaml:"render_markdown"`
}

// GeneratorConfig configures the external site generator.
type GeneratorConfig struct {
	// Command is the argv to run, e.g. [python, examples/dashboard.py].
	Command []string `yaml:"command"`

	// Dir is the working directory. Empty means the current directory.
	Dir string `yaml:"dir"`

	// Timeout bounds a run. Defaults to 10m.
	Timeout Duration `yaml:"timeout"`

	// Env are extra environment variables for the command.
	// Values support environment variable substitution.
	Env map[string]string `yaml:"env"`
}

// TargetConfig defines a single check target.
type TargetConfig struct {
	// Name is the display name shown in the dashboard.
	Name string `yaml:"name"`

	// URL is the deployed URL to check.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Method is the HTTP method (GET, HEAD). Defaults to GET.
	Method string `yaml:"method"`

	// Timeout is the request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Labels are metadata key-value pairs for grouping/filtering.
	Labels map[string]string `yaml:"labels"`

	// Probe determines how to interpret the response as a status.
	// Can be shorthand ("page", "contains:ok") or structured.
	Probe ProbeConfig `yaml:"probe"`

	// Interval is the custom check interval for this target.
	// If not specified, uses the global check_interval.
	// Must be between 1s and 1h.
	Interval Duration `yaml:"interval"`
}

// GridConfig defines a target grid that expands via cartesian product.
//
// For example, with dimensions {mirror: [pages, staging]}, the grid
// expands to one target per mirror.
type GridConfig struct {
	// Name is the base name for generated targets.
	Name string `yaml:"name"`

	// URLTemplate is a Go template for generating target URLs.
	// Dimension keys are available as template variables: {{.mirror}}
	// Supports environment variable substitution in the template.
	URLTemplate string `yaml:"url_template"`

	// Dimensions maps dimension names to their possible values.
	// The cartesian product of all dimensions generates the targets.
	Dimensions map[string][]string `yaml:"dimensions"`

	// Method is the HTTP method for all generated targets.
	Method string `yaml:"method"`

	// Timeout is the request timeout for all generated targets.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers for all generated targets.
	Headers map[string]string `yaml:"headers"`

	// Labels are additional labels applied to all generated targets.
	// These are merged with auto-generated dimension labels.
	Labels map[string]string `yaml:"labels"`

	// Probe determines how to interpret responses for all targets.
	Probe ProbeConfig `yaml:"probe"`

	// Interval is the custom check interval for all generated targets.
	// If not specified, uses the global check_interval.
	// Must be between 1s and 1h.
	Interval Duration `yaml:"interval"`
}

// ProbeConfig specifies how to determine verification status from a
// response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	probe: page
//	probe: contains:plotly-graph-div
//	probe: hash:4f2d...
//	probe: manifest
//	probe: status
//
// Structured object:
//
//	probe:
//	  type: contains
//	  text: plotly-graph-div
type ProbeConfig struct {
	// Type is the probe type: "status", "page", "contains", "hash",
	// "manifest".
	Type string

	// Text is the substring to search for (for type: contains).
	Text string

	// Sum is the expected SHA-256 hex digest (for type: hash).
	Sum string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ProbeConfig.
func (p *ProbeConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return p.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type string `yaml:"type"`
			Text string `yaml:"text"`
			Sum  string `yaml:"sum"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		p.Type = raw.Type
		p.Text = raw.Text
		p.Sum = raw.Sum
		return nil
	}

	return fmt.Errorf("probe must be a string or object, got %v", node.Kind)
}

// parseShorthand parses probe shorthand syntax.
//
// Supported formats:
//   - "status" → HTTP status code only
//   - "page" → status code plus HTML body check
//   - "manifest" → compare the deployed manifest against the local scan
//   - "contains:text" → check if body contains text
//   - "hash:hexsum" → compare the body's SHA-256 digest
func (p *ProbeConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		p.Type = s[:idx]
		value := s[idx+1:]

		switch p.Type {
		case "contains":
			p.Text = value
		case "hash":
			p.Sum = value
		default:
			return fmt.Errorf("unknown probe type %q", p.Type)
		}
		return nil
	}

	switch s {
	case "status", "page", "manifest":
		p.Type = s
	default:
		return fmt.Errorf("unknown probe %q (expected 'status', 'page', 'manifest', 'contains:text', or 'hash:hexsum')", s)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL, URLTemplate, Header, and
// generator Env values. Defaults are applied for Site.Dir ("docs"),
// Serve.Port (8080), Deploy.CheckInterval (30s), and the publish settings.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Site.Dir == "" {
		cfg.Site.Dir = "docs"
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 8080
	}
	if cfg.Deploy.CheckInterval == 0 {
		cfg.Deploy.CheckInterval = Duration(30 * time.Second)
	}
	if cfg.Deploy.MaxConcurrency == 0 {
		cfg.Deploy.MaxConcurrency = 8
	}
	if cfg.Publish.Remote == "" {
		cfg.Publish.Remote = "origin"
	}
	if cfg.Publish.Branch == "" {
		cfg.Publish.Branch = "gh-pages"
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = Duration(10 * time.Minute)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// WatchEnabled reports the effective serve.watch setting (default true).
func (c *Config) WatchEnabled() bool {
	return c.Serve.Watch == nil || *c.Serve.Watch
}

// NoJekyllEnabled reports the effective publish.nojekyll setting (default true).
func (c *Config) NoJekyllEnabled() bool {
	return c.Publish.NoJekyll == nil || *c.Publish.NoJekyll
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port)
	}
	if c.Deploy.CheckInterval.Duration() < minCheckInterval {
		return fmt.Errorf("deploy.check_interval must be at least %s, got %s", minCheckInterval, c.Deploy.CheckInterval.Duration())
	}
	if c.Deploy.RequestRate < 0 {
		return fmt.Errorf("deploy.request_rate cannot be negative, got %v", c.Deploy.RequestRate)
	}

	for i, v := range c.Site.Vendors {
		if v.Name == "" {
			return fmt.Errorf("site.vendors[%d]: name is required", i)
		}
		if len(v.Paths) == 0 {
			return fmt.Errorf("site.vendors[%d] (%s): at least one path is required", i, v.Name)
		}
	}

	if c.Deploy.BaseURL != "" {
		expanded, err := expandEnvVars(c.Deploy.BaseURL)
		if err != nil {
			return fmt.Errorf("deploy.base_url: %w", err)
		}
		c.Deploy.BaseURL = expanded

		parsed, err := url.Parse(c.Deploy.BaseURL)
		if err != nil {
			return fmt.Errorf("deploy.base_url: invalid url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("deploy.base_url: scheme must be http or https, got %q", parsed.Scheme)
		}
	}

	for i := range c.Deploy.Targets {
		t := &c.Deploy.Targets[i]

		if t.Name == "" {
			return fmt.Errorf("deploy.targets[%d]: name is required", i)
		}

		if t.URL == "" {
			return fmt.Errorf("deploy.targets[%d] (%s): url is required", i, t.Name)
		}
		expanded, err := expandEnvVars(t.URL)
		if err != nil {
			return fmt.Errorf("deploy.targets[%d] (%s): url: %w", i, t.Name, err)
		}
		t.URL = expanded

		parsedURL, err := url.Parse(t.URL)
		if err != nil {
			return fmt.Errorf("deploy.targets[%d] (%s): invalid url: %w", i, t.Name, err)
		}
		if parsedURL.Scheme == "" {
			return fmt.Errorf("deploy.targets[%d] (%s): url must have a scheme (http:// or https://)", i, t.Name)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("deploy.targets[%d] (%s): url scheme must be http or https, got %q", i, t.Name, parsedURL.Scheme)
		}

		for k, v := range t.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("deploy.targets[%d] (%s): headers[%s]: %w", i, t.Name, k, err)
			}
			t.Headers[k] = expanded
		}

		if t.Method != "" && t.Method != "GET" && t.Method != "HEAD" {
			return fmt.Errorf("deploy.targets[%d] (%s): method must be GET or HEAD", i, t.Name)
		}

		if t.Timeout != 0 {
			if t.Timeout.Duration() < 0 {
				return fmt.Errorf("deploy.targets[%d] (%s): timeout cannot be negative, got %s",
					i, t.Name, t.Timeout.Duration())
			}
			if t.Timeout.Duration() < time.Second {
				return fmt.Errorf("deploy.targets[%d] (%s): timeout must be at least 1s if specified, got %s",
					i, t.Name, t.Timeout.Duration())
			}
		}

		if t.Interval != 0 {
			if t.Interval.Duration() < time.Second {
				return fmt.Errorf("deploy.targets[%d] (%s): interval must be at least 1s, got %s",
					i, t.Name, t.Interval.Duration())
			}
			if t.Interval.Duration() > time.Hour {
				return fmt.Errorf("deploy.targets[%d] (%s): interval must not exceed 1h, got %s",
					i, t.Name, t.Interval.Duration())
			}
		}

		if err := validateProbe(&t.Probe, fmt.Sprintf("deploy.targets[%d] (%s)", i, t.Name)); err != nil {
			return err
		}
	}

	for i := range c.Deploy.Grids {
		g := &c.Deploy.Grids[i]

		if g.Name == "" {
			return fmt.Errorf("deploy.grids[%d]: name is required", i)
		}

		if g.URLTemplate == "" {
			return fmt.Errorf("deploy.grids[%d] (%s): url_template is required", i, g.Name)
		}
		expanded, err := expandEnvVars(g.URLTemplate)
		if err != nil {
			return fmt.Errorf("deploy.grids[%d] (%s): url_template: %w", i, g.Name, err)
		}
		g.URLTemplate = expanded

		// fail fast before SDK tries to use invalid template
		if _, err := template.New("").Parse(g.URLTemplate); err != nil {
			return fmt.Errorf("deploy.grids[%d] (%s): invalid url_template: %w", i, g.Name, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("deploy.grids[%d] (%s): at least one dimension is required", i, g.Name)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("deploy.grids[%d] (%s): dimension %q has no values", i, g.Name, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := seen[v]; exists {
					return fmt.Errorf("deploy.grids[%d] (%s): dimension %q has duplicate value %q", i, g.Name, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}

		for k, v := range g.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("deploy.grids[%d] (%s): headers[%s]: %w", i, g.Name, k, err)
			}
			g.Headers[k] = expanded
		}

		if g.Method != "" && g.Method != "GET" && g.Method != "HEAD" {
			return fmt.Errorf("deploy.grids[%d] (%s): method must be GET or HEAD", i, g.Name)
		}

		if g.Timeout != 0 {
			if g.Timeout.Duration() < 0 {
				return fmt.Errorf("deploy.grids[%d] (%s): timeout cannot be negative, got %s",
					i, g.Name, g.Timeout.Duration())
			}
			if g.Timeout.Duration() < time.Second {
				return fmt.Errorf("deploy.grids[%d] (%s): timeout must be at least 1s if specified, got %s",
					i, g.Name, g.Timeout.Duration())
			}
		}

		if g.Interval != 0 {
			if g.Interval.Duration() < time.Second {
				return fmt.Errorf("deploy.grids[%d] (%s): interval must be at least 1s, got %s",
					i, g.Name, g.Interval.Duration())
			}
			if g.Interval.Duration() > time.Hour {
				return fmt.Errorf("deploy.grids[%d] (%s): interval must not exceed 1h, got %s",
					i, g.Name, g.Interval.Duration())
			}
		}

		if err := validateProbe(&g.Probe, fmt.Sprintf("deploy.grids[%d] (%s)", i, g.Name)); err != nil {
			return err
		}
	}

	if c.Publish.Folder != "" && c.Publish.Folder != "/" {
		folder := strings.Trim(c.Publish.Folder, "/")
		if folder == "" || strings.Contains(folder, "..") {
			return fmt.Errorf("publish.folder %q is invalid", c.Publish.Folder)
		}
	}

	for k, v := range c.Generator.Env {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("generator.env[%s]: %w", k, err)
		}
		c.Generator.Env[k] = expanded
	}

	return nil
}

// validateProbe validates a probe configuration.
func validateProbe(p *ProbeConfig, context string) error {
	if p.Type == "" {
		return nil // empty means the status-code default, which is valid
	}

	switch p.Type {
	case "status", "page", "manifest":
		// no additional validation needed
	case "contains":
		if p.Text == "" {
			return fmt.Errorf("%s: probe type 'contains' requires text", context)
		}
	case "hash":
		if p.Sum == "" {
			return fmt.Errorf("%s: probe type 'hash' requires a sum", context)
		}
		if len(p.Sum) != 64 {
			return fmt.Errorf("%s: probe type 'hash' requires a 64-character SHA-256 hex digest", context)
		}
		if _, err := hex.DecodeString(p.Sum); err != nil {
			return fmt.Errorf("%s: probe sum is not valid hex", context)
		}
	default:
		return fmt.Errorf("%s: unknown probe type %q", context, p.Type)
	}

	return nil
}
