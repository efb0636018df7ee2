package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[security]
max_tokens = 5
refill_rate = 2.0
max_idle_seconds = 120
max_message_length = 50000

[[skills]]
name = "file_read"
type = "native"
description = "reads files"

[[skills.capabilities]]
tag = "file_read"
entries = ["/data"]

[[tool_groups]]
name = "default"
skills = ["file_read"]

[[webhooks]]
name = "github"
secret = "s3cr3t"
prompt_template = "Saw: {{payload}}"
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleTOML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Security.MaxTokens)
	require.Len(t, cfg.Skills, 1)
	assert.Equal(t, "file_read", cfg.Skills[0].Name)
	require.Len(t, cfg.Skills[0].Capabilities, 1)
	assert.Equal(t, []string{"/data"}, cfg.Skills[0].Capabilities[0].Entries)
	require.Len(t, cfg.ToolGroups, 1)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, "s3cr3t", cfg.Webhooks[0].Secret)
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `[security]
max_tokens = 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), cfg.Security.FuelBudget)
	assert.Equal(t, 30, cfg.Security.HTTPTimeoutSeconds)
}

func TestLoadParseFailureReturnsError(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "not = [valid toml")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestWatcherDebouncesAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)
	snap := NewSnapshot(cfg)

	results := make(chan ReloadResult, 4)
	w, err := NewWatcher(path, snap, 50*time.Millisecond, func(r ReloadResult) { results <- r })
	require.NoError(t, err)
	defer w.Close()

	updated := strings.Replace(sampleTOML, "max_tokens = 5", "max_tokens = 99", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case r := <-results:
		require.True(t, r.Applied)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.Equal(t, 99.0, snap.Get().Security.MaxTokens)
}

func TestWatcherKeepsOldConfigOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)
	snap := NewSnapshot(cfg)

	results := make(chan ReloadResult, 4)
	w, err := NewWatcher(path, snap, 50*time.Millisecond, func(r ReloadResult) { results <- r })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	select {
	case r := <-results:
		require.False(t, r.Applied)
		require.Error(t, r.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload attempt")
	}
	assert.Equal(t, 5.0, snap.Get().Security.MaxTokens)
}
