// Package config provides configuration loading for pipeforge.
//
// Configuration describes the pipeline to generate: the branch flow, the
// path domains watched for changes, versioning, and how generation itself
// behaves (gate recomputation, validation, watch mode, logging, metrics).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	FlavorStandard = "standard"
	FlavorMonorepo = "monorepo"
)

var jobNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Config holds the complete pipeforge configuration.
type Config struct {
	Name       string           `koanf:"name"`
	Output     string           `koanf:"output"`
	Flavor     string           `koanf:"flavor"`
	RunsOn     string           `koanf:"runs_on"`
	BranchFlow BranchFlowConfig `koanf:"branch_flow"`
	Domains    []DomainConfig   `koanf:"domains"`
	Versioning VersioningConfig `koanf:"versioning"`
	Gate       GateConfig       `koanf:"gate"`
	Validation ValidationConfig `koanf:"validation"`
	Watch      WatchConfig      `koanf:"watch"`
	Logging    LoggingConfig    `koanf:"logging"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// BranchFlowConfig describes the trunk-based branch model.
type BranchFlowConfig struct {
	Trunk string `koanf:"trunk"`
	// Develop is the integration branch promoted into Trunk. Empty disables
	// the promote job.
	Develop  string   `koanf:"develop"`
	Branches []string `koanf:"branches"` // extra push branches
}

// DomainConfig is one path group detected by the changes job.
type DomainConfig struct {
	Name  string   `koanf:"name"`
	Paths []string `koanf:"paths"`
	Test  string   `koanf:"test"` // command run for the domain in monorepo pipelines
}

// VersioningConfig controls the version and tag jobs.
type VersioningConfig struct {
	TagPrefix string `koanf:"tag_prefix"`
	Initial   string `koanf:"initial"`
}

// GateConfig controls the gate job.
type GateConfig struct {
	Force  bool   `koanf:"force"`
	RunsOn string `koanf:"runs_on"`
}

// ValidationConfig controls what happens with the generated output.
type ValidationConfig struct {
	BlockOnError bool   `koanf:"block_on_error"`
	SecretScan   bool   `koanf:"secret_scan"`
	Allowlist    string `koanf:"allowlist"` // directory holding .gitleaks.toml
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce Duration `koanf:"debounce"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// Monorepo reports whether the monorepo flavor is selected.
func (c *Config) Monorepo() bool {
	return c.Flavor == FlavorMonorepo
}

// PushBranches returns trunk, develop and extra branches without duplicates.
func (c *Config) PushBranches() []string {
	var out []string
	seen := map[string]bool{}
	for _, b := range append([]string{c.BranchFlow.Trunk, c.BranchFlow.Develop}, c.BranchFlow.Branches...) {
		if b != "" && !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// Returns an error if:
//   - Flavor is not standard or monorepo
//   - Output is empty or not a .yml/.yaml file
//   - Trunk branch is empty
//   - A domain name is empty, duplicated or not a valid output name
//   - A domain has no paths, or a monorepo domain has no test command
//   - Logging format or level is unknown
func (c *Config) Validate() error {
	if c.Flavor != FlavorStandard && c.Flavor != FlavorMonorepo {
		return fmt.Errorf("%w: flavor must be %q or %q, got %q", ErrInvalidConfig, FlavorStandard, FlavorMonorepo, c.Flavor)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}
	if ext := strings.ToLower(filepath.Ext(c.Output)); ext != ".yml" && ext != ".yaml" {
		return fmt.Errorf("%w: output must be a .yml or .yaml file, got %q", ErrInvalidConfig, c.Output)
	}
	if c.BranchFlow.Trunk == "" {
		return fmt.Errorf("%w: branch_flow.trunk is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Domains))
	for i, d := range c.Domains {
		if !jobNamePattern.MatchString(d.Name) {
			return fmt.Errorf("%w: domains[%d]: invalid name %q", ErrInvalidConfig, i, d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: domains[%d]: duplicate name %q", ErrInvalidConfig, i, d.Name)
		}
		seen[d.Name] = true
		if len(d.Paths) == 0 {
			return fmt.Errorf("%w: domain %q has no paths", ErrInvalidConfig, d.Name)
		}
		if c.Monorepo() && d.Test == "" {
			return fmt.Errorf("%w: domain %q needs a test command in a monorepo pipeline", ErrInvalidConfig, d.Name)
		}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("%w: logging format must be 'json' or 'console', got %q", ErrInvalidConfig, c.Logging.Format)
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging level %q", ErrInvalidConfig, c.Logging.Level)
	}
	if c.Watch.Debounce.Duration() > time.Minute {
		return fmt.Errorf("%w: watch debounce must be at most 1m, got %s", ErrInvalidConfig, c.Watch.Debounce.Duration())
	}
	return nil
}

// Duration is a time.Duration read from text such as "500ms" in YAML or
// environment variables.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
