package hook

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("hook tests use /bin/sh")
	}
}

func newRunner(commands ...string) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Runner{
		Name:     "prologue",
		Commands: commands,
		Stdout:   &stdout,
		Stderr:   &stderr,
	}, &stdout, &stderr
}

func TestShell(t *testing.T) {
	shell, flag := Shell()
	if runtime.GOOS == "windows" {
		assert.Equal(t, "cmd", shell)
		assert.Equal(t, "/C", flag)
		return
	}
	assert.Equal(t, "/bin/sh", shell)
	assert.Equal(t, "-c", flag)
}

func TestRunner_Run(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name       string
		commands   []string
		wantStdout string
		wantStderr string
	}{
		{"single", []string{"echo hello"}, "hello\n", ""},
		{"in order", []string{"echo one", "echo two"}, "one\ntwo\n", ""},
		{"stderr", []string{"echo oops >&2"}, "", "oops\n"},
		{"blank skipped", []string{"", "   ", "echo ok"}, "ok\n", ""},
		{"shell features", []string{"X=3; echo $((X + 1)) | tr 4 5"}, "5\n", ""},
		{"none", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, stdout, stderr := newRunner(tt.commands...)
			require.NoError(t, r.Run(context.Background()))
			assert.Equal(t, tt.wantStdout, stdout.String())
			assert.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	skipOnWindows(t)

	r, stdout, _ := newRunner("echo before", "exit 7", "echo after")
	err := r.Run(context.Background())

	require.ErrorIs(t, err, ErrHook)
	assert.Contains(t, err.Error(), `prologue[1] "exit 7"`)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 7, exitErr.ExitCode())
	assert.Equal(t, "before\n", stdout.String())
}

func TestRunner_Dir(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	r, stdout, _ := newRunner("pwd -P")
	r.Dir = dir
	require.NoError(t, r.Run(context.Background()))

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want+"\n", stdout.String())
}

func TestRunner_Cancel(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	r, _, _ := newRunner("sleep 30")
	start := time.Now()
	err := r.Run(ctx)

	assert.ErrorIs(t, err, ErrHook)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunner_LogsCommands(t *testing.T) {
	skipOnWindows(t)

	core, logs := observer.New(zapcore.InfoLevel)
	r, _, _ := newRunner("true", "true")
	r.Name = "epilogue"
	r.Logger = zap.New(core)
	require.NoError(t, r.Run(context.Background()))

	entries := logs.FilterMessage("running").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "epilogue", entries[0].ContextMap()["hook"])
	assert.Equal(t, "true", entries[0].ContextMap()["command"])
}

func BenchmarkRunner_Run(b *testing.B) {
	if runtime.GOOS == "windows" {
		b.Skip("hook benchmarks use /bin/sh")
	}
	r, _, _ := newRunner("true")
	for i := 0; i < b.N; i++ {
		_ = r.Run(context.Background())
	}
}
