package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrSpawn is wrapped when the build command cannot be started.
var ErrSpawn = errors.New("cannot start build command")

// ExitError reports a build command that exited unsuccessfully.
type ExitError struct {
	Command string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("build command %q failed with exit status %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Extractor runs a build command and extracts its executables.
type Extractor struct {
	// Command is the program and its arguments.
	Command []string
	// FormatArgs are appended to Command to request structured output.
	FormatArgs []string
	// Stderr receives the build tool's diagnostics. Defaults to os.Stderr.
	Stderr io.Writer
	// Dir is the working directory; empty means the current one.
	Dir    string
	Logger *zap.Logger
}

// Build runs the command to completion and returns the reported
// executables. A failed build returns no artifacts. The command is only
// interrupted when ctx is cancelled, which happens on shutdown.
func (e *Extractor) Build(ctx context.Context) ([]Artifact, error) {
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrSpawn)
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stderr := e.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	args := append(append([]string{}, e.Command[1:]...), e.FormatArgs...)
	// #nosec G204 - the build command comes from the user's own configuration
	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	cmd.Dir = e.Dir
	cmd.WaitDelay = time.Second
	cmd.Stderr = stderr
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	display := strings.Join(append([]string{e.Command[0]}, args...), " ")
	logger.Debug("running build", zap.String("command", display))
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrSpawn, e.Command[0], err)
	}
	if err := cmd.Wait(); errors.Is(err, exec.ErrWaitDelay) {
		// The build succeeded but something it started still holds stdout.
		logger.Warn("build command left its output open", zap.String("command", display))
	} else if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Command: display, Code: exitErr.ExitCode(), Err: err}
		}
		return nil, fmt.Errorf("wait for build command: %w", err)
	}

	artifacts, err := Parse(&stdout)
	if err != nil {
		return nil, fmt.Errorf("read build output: %w", err)
	}
	logger.Debug("build output parsed",
		zap.Int("artifacts", len(artifacts)),
		zap.Duration("elapsed", time.Since(start)))
	return artifacts, nil
}
