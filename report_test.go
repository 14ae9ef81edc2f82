package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"watchf/internal/config"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "watchf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func sampleConfig(t *testing.T) *config.Config {
	t.Helper()
	path := writeConfig(t, t.TempDir(), `
build_cmd: ["cargo", "build"]
run_cmd: ["./target/debug/$APP"]
watch: ["src"]
vars:
  APP: server
stop_signal: SIGTERM
epilogue: ["echo $NOPE"]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

// row renders one table line; keys are padded to the longest key plus two.
func row(key, value string) string {
	return fmt.Sprintf("  %-20s%s\n", key, value)
}

// ===== REPORT TESTS =====

func TestPrintConfigTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printConfig(&buf, sampleConfig(t), "table"))

	out := buf.String()
	assert.Contains(t, out, "Resolved configuration:")
	assert.Contains(t, out, row("build_cmd", "cargo build"))
	assert.Contains(t, out, row("run_cmd", "./target/debug/server"))
	assert.Contains(t, out, row("message_format", "--message-format json"))
	assert.Contains(t, out, row("stop_timeout", "5s"))
	assert.Contains(t, out, row("epilogue", "1 commands"))
	assert.Contains(t, out, "APP=server")
	assert.Contains(t, out, "Warning: undefined variable $NOPE")
}

func TestPrintConfigTableIsDefault(t *testing.T) {
	cfg := sampleConfig(t)
	var table, empty bytes.Buffer
	require.NoError(t, printConfig(&table, cfg, "table"))
	require.NoError(t, printConfig(&empty, cfg, ""))
	assert.Equal(t, table.String(), empty.String())
}

func TestPrintConfigJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printConfig(&buf, sampleConfig(t), "json"))

	var got resolved
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"cargo", "build"}, got.BuildCmd)
	assert.Equal(t, "upsert", got.Artifacts)
	assert.Equal(t, "abort", got.OnBuildFailure)
	assert.Equal(t, "continue", got.OnRestartFailure)
	assert.Equal(t, "SIGTERM", got.StopSignal)
	assert.Len(t, got.Warnings, 1)
}

func TestPrintConfigYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printConfig(&buf, sampleConfig(t), "yaml"))

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "5s", got["stop_timeout"])
	assert.Equal(t, []interface{}{"src"}, got["watch"])
}

func TestPrintConfigDefaultSignal(t *testing.T) {
	cfg := sampleConfig(t)
	cfg.StopSignal = ""
	assert.Equal(t, "SIGKILL", newResolved(cfg).StopSignal)
}

func TestPrintConfigUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := printConfig(&buf, sampleConfig(t), "xml")
	assert.ErrorIs(t, err, errConfig)
	assert.Equal(t, ExitConfig, exitCode(err))
}
