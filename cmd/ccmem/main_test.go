package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adestefa/ccmem/internal/config"
	"github.com/adestefa/ccmem/internal/store"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvDBFile, "")
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ccmem v")
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := run(t, "frobnicate")
	assert.Error(t, err)
}

func TestExport_ToFile(t *testing.T) {
	dir := t.TempDir()

	s, err := store.Open(filepath.Join(dir, "ccmem.db"), store.DefaultOptions())
	require.NoError(t, err)
	storyID, err := s.CreateStory(context.Background(), "Export me")
	require.NoError(t, err)
	_, err = s.CreateTask(context.Background(), storyID, "First task")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out := filepath.Join(dir, "snapshot.json")
	_, stderr, err := run(t, "export", "--data-dir", dir, "--log-level", "error", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Exported 1 stories, 1 tasks and 0 landmines")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var snap store.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.NotEmpty(t, snap.ID)
	require.Len(t, snap.Stories, 1)
	assert.Equal(t, "Export me", snap.Stories[0].Message)
	assert.Len(t, snap.Tasks, 1)
}

func TestExport_Stdout(t *testing.T) {
	dir := t.TempDir()
	out, _, err := run(t, "export", "--data-dir", dir, "--log-level", "error")
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Contains(t, snap, "metrics")
	assert.FileExists(t, filepath.Join(dir, "ccmem.db"))
}

func TestConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv(config.EnvDataDir, "/nowhere")
	t.Setenv(config.EnvLogLevel, "debug")
	opts := &RootOptions{DataDir: t.TempDir(), LogLevel: "warn"}

	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, opts.DataDir, cfg.DataDir)
	assert.Equal(t, "warn", cfg.LogLevel)
}
