package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// FileName is the config file looked up in the project root.
	FileName = ".pipeforge.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PIPEFORGE_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// defaults is the lowest configuration layer.
const defaults = `
name: CI
output: .github/workflows/ci.yml
flavor: standard
runs_on: ubuntu-latest
branch_flow:
  trunk: main
  develop: develop
versioning:
  tag_prefix: v
  initial: 0.1.0
gate:
  force: false
validation:
  block_on_error: true
  secret_scan: true
watch:
  debounce: 300ms
logging:
  level: info
  format: console
`

// topLevelKeys maps environment key prefixes back to config sections whose
// names contain underscores.
var topLevelKeys = []string{
	"name", "output", "flavor", "runs_on", "branch_flow", "domains",
	"versioning", "gate", "validation", "watch", "logging", "metrics",
}

// Load reads FileName from dir. See LoadWithFile.
func Load(dir string) (*Config, error) {
	return LoadWithFile(filepath.Join(dir, FileName))
}

// LoadWithFile loads configuration from a YAML file, then overrides it with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PIPEFORGE_GATE_FORCE, PIPEFORGE_RUNS_ON, etc.)
//  2. YAML config file (.pipeforge.yaml in the project root)
//  3. Built-in defaults
//
// A missing file is not an error; the defaults and environment still apply.
// Files larger than 1MB are rejected.
//
// # Environment Variable Mapping
//
// The prefix is removed and the first known section name is split off:
//
//	PIPEFORGE_GATE_FORCE                -> gate.force
//	PIPEFORGE_VALIDATION_BLOCK_ON_ERROR -> validation.block_on_error
//	PIPEFORGE_RUNS_ON                   -> runs_on
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidConfig, path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrInvalidConfig, info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// envKey maps PIPEFORGE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	// Longest section names first so runs_on wins over a shorter prefix.
	keys := append([]string(nil), topLevelKeys...)
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, key := range keys {
		if lower == key {
			return key
		}
		if rest, ok := strings.CutPrefix(lower, key+"_"); ok {
			return key + "." + rest
		}
	}
	return lower
}

// applyDefaults fills values derived from other settings.
func applyDefaults(cfg *Config) {
	if cfg.Gate.RunsOn == "" {
		cfg.Gate.RunsOn = cfg.RunsOn
	}
	if len(cfg.Domains) == 0 {
		cfg.Domains = []DomainConfig{{Name: "app", Paths: []string{"**"}, Test: "make test"}}
	}
	for i := range cfg.Domains {
		if cfg.Domains[i].Test == "" && !cfg.Monorepo() {
			cfg.Domains[i].Test = "make test"
		}
	}
}
