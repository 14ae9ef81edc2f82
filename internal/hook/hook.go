// Package hook runs the prologue and epilogue shell commands.
package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrHook is wrapped by every failing hook command.
var ErrHook = errors.New("hook failed")

// Runner executes a list of shell commands in order and stops at the
// first failure.
type Runner struct {
	// Name appears in logs and errors, e.g. "prologue".
	Name     string
	Commands []string

	Stdout io.Writer
	Stderr io.Writer
	Dir    string
	Logger *zap.Logger
}

// Shell returns the program and flag used to run a command line on this
// platform.
func Shell() (string, string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	return "/bin/sh", "-c"
}

// Command builds the exec.Cmd for one command line.
func Command(ctx context.Context, line string) *exec.Cmd {
	shell, flag := Shell()
	// #nosec G204 - hooks are user-defined commands from the configuration
	cmd := exec.CommandContext(ctx, shell, flag, line)
	cmd.WaitDelay = time.Second
	return cmd
}

// Run executes the commands. Blank entries are skipped.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("hook").With(zap.String("hook", r.Name))

	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	for i, line := range r.Commands {
		if strings.TrimSpace(line) == "" {
			continue
		}
		logger.Info("running", zap.String("command", line))

		cmd := Command(ctx, line)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		cmd.Dir = r.Dir
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%w: %s[%d] %q: %w", ErrHook, r.Name, i, line, err)
		}
	}
	return nil
}
