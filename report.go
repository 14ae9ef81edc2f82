package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"watchf/internal/config"
)

// resolved is the printable form of a loaded configuration.
type resolved struct {
	Path             string            `json:"path" yaml:"path"`
	BuildCmd         []string          `json:"build_cmd" yaml:"build_cmd"`
	RunCmd           []string          `json:"run_cmd" yaml:"run_cmd"`
	Watch            []string          `json:"watch" yaml:"watch"`
	Ignore           []string          `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	IgnoreHidden     bool              `json:"ignore_hidden" yaml:"ignore_hidden"`
	MessageFormat    []string          `json:"message_format" yaml:"message_format"`
	Artifacts        string            `json:"artifacts" yaml:"artifacts"`
	OnBuildFailure   string            `json:"on_build_failure" yaml:"on_build_failure"`
	OnRestartFailure string            `json:"on_restart_failure" yaml:"on_restart_failure"`
	StopSignal       string            `json:"stop_signal" yaml:"stop_signal"`
	StopTimeout      string            `json:"stop_timeout" yaml:"stop_timeout"`
	Vars             map[string]string `json:"vars,omitempty" yaml:"vars,omitempty"`
	Includes         []string          `json:"include,omitempty" yaml:"include,omitempty"`
	Prologue         []string          `json:"prologue,omitempty" yaml:"prologue,omitempty"`
	Epilogue         []string          `json:"epilogue,omitempty" yaml:"epilogue,omitempty"`
	Warnings         []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func newResolved(cfg *config.Config) resolved {
	signal := cfg.StopSignal
	if signal == "" {
		signal = "SIGKILL"
	}
	return resolved{
		Path:             cfg.Path,
		BuildCmd:         cfg.BuildCmd,
		RunCmd:           cfg.RunCmd,
		Watch:            cfg.Watch,
		Ignore:           cfg.Ignore,
		IgnoreHidden:     cfg.IgnoreHidden,
		MessageFormat:    cfg.MessageFormat,
		Artifacts:        string(cfg.Artifacts),
		OnBuildFailure:   string(cfg.OnBuildFailure),
		OnRestartFailure: string(cfg.OnRestartFailure),
		StopSignal:       signal,
		StopTimeout:      cfg.StopTimeout.String(),
		Vars:             cfg.Vars,
		Includes:         cfg.Includes,
		Prologue:         cfg.Prologue,
		Epilogue:         cfg.Epilogue,
		Warnings:         cfg.Warnings,
	}
}

func printConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "json":
		return printConfigJSON(w, cfg)
	case "yaml":
		return printConfigYAML(w, cfg)
	case "", "table":
		return printConfigTable(w, cfg)
	default:
		return fmt.Errorf("%w: unknown format %q (table, json or yaml)", errConfig, format)
	}
}

func printConfigTable(w io.Writer, cfg *config.Config) error {
	r := newResolved(cfg)
	rows := [][2]string{
		{"config", r.Path},
		{"build_cmd", strings.Join(r.BuildCmd, " ")},
		{"run_cmd", strings.Join(r.RunCmd, " ")},
		{"watch", strings.Join(r.Watch, ", ")},
		{"ignore", strings.Join(r.Ignore, ", ")},
		{"ignore_hidden", fmt.Sprint(r.IgnoreHidden)},
		{"message_format", strings.Join(r.MessageFormat, " ")},
		{"artifacts", r.Artifacts},
		{"on_build_failure", r.OnBuildFailure},
		{"on_restart_failure", r.OnRestartFailure},
		{"stop_signal", r.StopSignal},
		{"stop_timeout", r.StopTimeout},
		{"prologue", fmt.Sprintf("%d commands", len(r.Prologue))},
		{"epilogue", fmt.Sprintf("%d commands", len(r.Epilogue))},
	}

	// Find max key length for formatting
	maxKeyLen := 0
	for _, row := range rows {
		if len(row[0]) > maxKeyLen {
			maxKeyLen = len(row[0])
		}
	}

	var b strings.Builder
	b.WriteString("Resolved configuration:\n")
	b.WriteString("-----------------------\n")
	for _, row := range rows {
		padding := strings.Repeat(" ", maxKeyLen-len(row[0])+2)
		fmt.Fprintf(&b, "  %s%s%s\n", row[0], padding, row[1])
	}

	if len(r.Vars) > 0 {
		names := make([]string, 0, len(r.Vars))
		for name := range r.Vars {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\nVariables:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "  %s=%s\n", name, r.Vars[name])
		}
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s", warning)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func printConfigJSON(w io.Writer, cfg *config.Config) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newResolved(cfg))
}

func printConfigYAML(w io.Writer, cfg *config.Config) error {
	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(newResolved(cfg))
}
