// Package config provides configuration loading and management for reqtrace.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete reqtrace configuration.
type Config struct {
	Repo         RepoConfig         `yaml:"repo"`
	Requirements RequirementsConfig `yaml:"requirements"`
	Scan         ScanConfig         `yaml:"scan"`
	Git          GitConfig          `yaml:"git"`
	Report       ReportConfig       `yaml:"report"`
	Watch        WatchConfig        `yaml:"watch"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	NATS         NATSConfig         `yaml:"nats"`
}

// RepoConfig configures the repository settings.
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty).
	Path string `yaml:"path"`
}

// RequirementsConfig configures where requirement documents live.
type RequirementsConfig struct {
	// Dir is the requirements directory, relative to the repo root.
	Dir string `yaml:"dir"`
	// Include and Exclude are doublestar globs relative to Dir.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// ScanConfig configures source annotation scanning.
type ScanConfig struct {
	// Enabled controls whether source files are scanned for annotations.
	Enabled bool `yaml:"enabled"`
	// Include and Exclude are doublestar globs relative to the repo root.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// GitConfig configures change-fact collection.
type GitConfig struct {
	// Enabled controls whether git change facts are collected.
	Enabled bool `yaml:"enabled"`
	// BaseBranch is diffed against for branch-change detection.
	BaseBranch string `yaml:"base_branch"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	// Title is the report heading.
	Title string `yaml:"title"`
	// OutDir is where report files are written, relative to the repo root.
	OutDir string `yaml:"out_dir"`
	// Formats lists the outputs to produce: html, markdown, json.
	Formats []string `yaml:"formats"`
	// MaxDepth caps graph traversal depth.
	MaxDepth int `yaml:"max_depth"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is how long to wait for more changes before regenerating,
	// as a duration string like "500ms".
	Debounce string `yaml:"debounce"`
	// Extensions lists file extensions that trigger a rebuild.
	Extensions []string `yaml:"extensions"`
	// ExcludeDirs lists directory names to skip while watching.
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// GetDebounce returns the debounce delay as a duration.
func (c *WatchConfig) GetDebounce() time.Duration {
	if c.Debounce == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// MetricsConfig configures the Prometheus endpoint served in watch mode.
type MetricsConfig struct {
	// Listen is the metrics listen address (empty = disabled).
	Listen string `yaml:"listen"`
}

// NATSConfig configures optional report publishing.
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled).
	URL string `yaml:"url"`
	// Subject is the subject reports are published to.
	Subject string `yaml:"subject"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		Requirements: RequirementsConfig{
			Dir:     "requirements",
			Include: []string{"**/*.md"},
			Exclude: []string{".git/**", "node_modules/**", "vendor/**"},
		},
		Scan: ScanConfig{
			Enabled: true,
			Include: []string{"**/*.go", "**/*.py"},
			Exclude: []string{".git/**", "node_modules/**", "vendor/**", "**/testdata/**"},
		},
		Git: GitConfig{
			Enabled:    true,
			BaseBranch: "origin/main",
		},
		Report: ReportConfig{
			Title:    "Requirement Traceability Report",
			OutDir:   "reports",
			Formats:  []string{"html", "markdown", "json"},
			MaxDepth: 50,
		},
		Watch: WatchConfig{
			Debounce:    "500ms",
			Extensions:  []string{".md", ".go", ".py"},
			ExcludeDirs: []string{".git", "node_modules", "vendor", "reports"},
		},
		Metrics: MetricsConfig{
			Listen: "",
		},
		NATS: NATSConfig{
			URL:     "",
			Subject: "reqtrace.report",
		},
	}
}

// validFormats enumerates the supported report formats.
var validFormats = map[string]bool{
	"html":     true,
	"markdown": true,
	"json":     true,
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Requirements.Dir == "" {
		return fmt.Errorf("requirements.dir is required")
	}
	if len(c.Report.Formats) == 0 {
		return fmt.Errorf("report.formats must list at least one format")
	}
	for _, f := range c.Report.Formats {
		if !validFormats[f] {
			return fmt.Errorf("report.formats: unknown format %q", f)
		}
	}
	if c.Report.MaxDepth <= 0 {
		return fmt.Errorf("report.max_depth must be positive")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}

	if other.Requirements.Dir != "" {
		c.Requirements.Dir = other.Requirements.Dir
	}
	if len(other.Requirements.Include) > 0 {
		c.Requirements.Include = other.Requirements.Include
	}
	if len(other.Requirements.Exclude) > 0 {
		c.Requirements.Exclude = other.Requirements.Exclude
	}

	// Enabled flags carry over as-is: loaded configs start from defaults,
	// so an untouched flag keeps its default and an explicit false wins.
	c.Scan.Enabled = other.Scan.Enabled
	c.Git.Enabled = other.Git.Enabled

	if len(other.Scan.Include) > 0 {
		c.Scan.Include = other.Scan.Include
	}
	if len(other.Scan.Exclude) > 0 {
		c.Scan.Exclude = other.Scan.Exclude
	}

	if other.Git.BaseBranch != "" {
		c.Git.BaseBranch = other.Git.BaseBranch
	}

	if other.Report.Title != "" {
		c.Report.Title = other.Report.Title
	}
	if other.Report.OutDir != "" {
		c.Report.OutDir = other.Report.OutDir
	}
	if len(other.Report.Formats) > 0 {
		c.Report.Formats = other.Report.Formats
	}
	if other.Report.MaxDepth != 0 {
		c.Report.MaxDepth = other.Report.MaxDepth
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}

	if other.Metrics.Listen != "" {
		c.Metrics.Listen = other.Metrics.Listen
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
}
