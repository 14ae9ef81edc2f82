package main

import (
	"errors"
	"fmt"
	"io"

	"watchf/internal/config"
	"watchf/internal/coordinator"
	"watchf/internal/hook"
)

// Exit codes
const (
	ExitOK = iota
	ExitFailure
	ExitConfig
	ExitWatch
	ExitBuild
	ExitSupervisor
	ExitHook
)

var (
	errConfig     = errors.New("configuration error")
	errWatchSetup = errors.New("cannot watch")
	errSupervisor = errors.New("run command supervision failed")
)

// Exps maps exit codes to the prefix printed before the error.
var Exps = map[int]string{
	ExitFailure:    "Error",
	ExitConfig:     "ConfigError",
	ExitWatch:      "WatchError",
	ExitBuild:      "BuildError",
	ExitSupervisor: "RunError",
	ExitHook:       "HookError",
}

// exitCode classifies err.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errConfig), errors.Is(err, config.ErrInvalid):
		return ExitConfig
	case errors.Is(err, errWatchSetup):
		return ExitWatch
	case errors.Is(err, coordinator.ErrBuild):
		return ExitBuild
	case errors.Is(err, errSupervisor):
		return ExitSupervisor
	case errors.Is(err, hook.ErrHook):
		return ExitHook
	default:
		return ExitFailure
	}
}

// RaiseException prints err to w and returns the exit code for it.
func RaiseException(w io.Writer, err error) int {
	code := exitCode(err)
	if code != ExitOK {
		_, _ = fmt.Fprintf(w, "%s: %v\n", Exps[code], err)
	}
	return code
}
