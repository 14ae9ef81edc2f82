package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== LOAD CONFIG TESTS =====

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode int
	}{
		{
			name:     "valid",
			content:  "build_cmd: [cargo, build]\nrun_cmd: [./app]\nwatch: [src]\n",
			wantCode: ExitOK,
		},
		{
			name:     "missing build_cmd",
			content:  "run_cmd: [./app]\n",
			wantCode: ExitConfig,
		},
		{
			name:     "unknown key",
			content:  "build_cmd: [cargo]\nrun_cmd: [./app]\nwatchh: [src]\n",
			wantCode: ExitConfig,
		},
		{
			name:     "bad yaml",
			content:  "build_cmd: [cargo\n",
			wantCode: ExitConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := loadConfig(path)
			assert.Equal(t, tt.wantCode, exitCode(err))
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "watchf.yaml"))
	require.ErrorIs(t, err, errConfig)
	assert.Contains(t, err.Error(), "open config")
}

// ===== VALIDATE COMMAND TESTS =====

func TestValidateCommandLogic(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
build_cmd: [cargo, build]
run_cmd: ["./target/debug/$BIN"]
watch: [src, Cargo.toml]
vars:
  BIN: api
`)
	var stdout, stderr bytes.Buffer
	c := &cli{stdout: &stdout, stderr: &stderr}

	require.NoError(t, c.validate(path, "table"))
	assert.Contains(t, stdout.String(), "./target/debug/api")
	assert.Contains(t, stdout.String(), "src, Cargo.toml")
	assert.Empty(t, stderr.String())
}

func TestValidateCommandLogic_Errors(t *testing.T) {
	dir := t.TempDir()
	c := &cli{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}

	err := c.validate(filepath.Join(dir, "nope.yaml"), "table")
	assert.Equal(t, ExitConfig, exitCode(err))

	path := writeConfig(t, dir, "build_cmd: [cargo]\nrun_cmd: [./app]\nstop_signal: SIGWHAT\n")
	err = c.validate(path, "table")
	assert.Equal(t, ExitConfig, exitCode(err))
	assert.Contains(t, err.Error(), "stop_signal")

	path = writeConfig(t, dir, "build_cmd: [cargo]\nrun_cmd: [./app]\n")
	err = c.validate(path, "toml")
	assert.Equal(t, ExitConfig, exitCode(err))
}

func TestApp_RegistersCommands(t *testing.T) {
	c := &cli{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	assert.NotNil(t, c.app())
}
