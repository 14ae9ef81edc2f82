// Package config loads and validates the watchf YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "watchf.yaml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ArtifactMode controls how a successful build updates the artifact map.
type ArtifactMode string

const (
	// ArtifactsUpsert overwrites reported paths and keeps stale ones.
	ArtifactsUpsert ArtifactMode = "upsert"
	// ArtifactsReplace replaces the map with the latest reported set.
	ArtifactsReplace ArtifactMode = "replace"
)

// BuildFailurePolicy decides what a failed build does to the session.
type BuildFailurePolicy string

const (
	BuildFailureAbort BuildFailurePolicy = "abort"
	BuildFailureWait  BuildFailurePolicy = "wait"
)

// RestartFailurePolicy decides what a failed kill or respawn does to the session.
type RestartFailurePolicy string

const (
	RestartFailureAbort    RestartFailurePolicy = "abort"
	RestartFailureContinue RestartFailurePolicy = "continue"
)

// Config is the decoded watchf.yaml.
type Config struct {
	BuildCmd         []string             `yaml:"build_cmd"`
	RunCmd           []string             `yaml:"run_cmd"`
	Watch            []string             `yaml:"watch"`
	Ignore           []string             `yaml:"ignore"`
	IgnoreHidden     bool                 `yaml:"ignore_hidden"`
	MessageFormat    []string             `yaml:"message_format"`
	Artifacts        ArtifactMode         `yaml:"artifacts"`
	OnBuildFailure   BuildFailurePolicy   `yaml:"on_build_failure"`
	OnRestartFailure RestartFailurePolicy `yaml:"on_restart_failure"`
	StopSignal       string               `yaml:"stop_signal"`
	StopTimeout      time.Duration        `yaml:"stop_timeout"`
	Vars             map[string]string    `yaml:"vars"`
	Includes         []string             `yaml:"include"`
	Prologue         []string             `yaml:"prologue"`
	Epilogue         []string             `yaml:"epilogue"`

	// Path is the file the configuration was loaded from.
	Path string `yaml:"-"`
	// Warnings collects non-fatal problems found while loading.
	Warnings []string `yaml:"-"`
}

// Load reads path, merges its includes on top, expands variables, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := &Config{Path: path}
	if err := decode(f, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// Includes are layered in order; a later file overrides keys set by an
	// earlier one. Only the top-level file may declare includes.
	includes := cfg.Includes
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		incF, err := os.Open(filepath.Clean(inc))
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("cannot load include %s: %v", inc, err))
			continue
		}
		err = decode(incF, cfg)
		_ = incF.Close()
		if err != nil {
			return nil, fmt.Errorf("decode include %s: %w", inc, err)
		}
	}
	cfg.Includes = includes

	cfg.expandAll()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Watch) == 0 {
		cfg.Warnings = append(cfg.Warnings, "no watch targets configured; only the initial build will run")
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// SetDefaults fills every optional field left empty.
func (c *Config) SetDefaults() {
	if c.MessageFormat == nil {
		c.MessageFormat = []string{"--message-format", "json"}
	}
	if c.Artifacts == "" {
		c.Artifacts = ArtifactsUpsert
	}
	if c.OnBuildFailure == "" {
		c.OnBuildFailure = BuildFailureAbort
	}
	if c.OnRestartFailure == "" {
		c.OnRestartFailure = RestartFailureContinue
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = 5 * time.Second
	}
}

// Validate reports the first structural problem in c.
func (c *Config) Validate() error {
	if len(c.BuildCmd) == 0 || c.BuildCmd[0] == "" {
		return fmt.Errorf("%w: build_cmd must name a program", ErrInvalid)
	}
	if len(c.RunCmd) == 0 || c.RunCmd[0] == "" {
		return fmt.Errorf("%w: run_cmd must name a program", ErrInvalid)
	}
	switch c.Artifacts {
	case ArtifactsUpsert, ArtifactsReplace:
	default:
		return fmt.Errorf("%w: artifacts must be %q or %q, got %q", ErrInvalid, ArtifactsUpsert, ArtifactsReplace, c.Artifacts)
	}
	switch c.OnBuildFailure {
	case BuildFailureAbort, BuildFailureWait:
	default:
		return fmt.Errorf("%w: on_build_failure must be %q or %q, got %q", ErrInvalid, BuildFailureAbort, BuildFailureWait, c.OnBuildFailure)
	}
	switch c.OnRestartFailure {
	case RestartFailureAbort, RestartFailureContinue:
	default:
		return fmt.Errorf("%w: on_restart_failure must be %q or %q, got %q", ErrInvalid, RestartFailureAbort, RestartFailureContinue, c.OnRestartFailure)
	}
	if c.StopTimeout < 0 {
		return fmt.Errorf("%w: stop_timeout must not be negative", ErrInvalid)
	}
	for i, w := range c.Watch {
		if w == "" {
			return fmt.Errorf("%w: watch[%d] is empty", ErrInvalid, i)
		}
	}
	return nil
}
