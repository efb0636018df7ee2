package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerWritesEventsAndErrorsSeparately(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info(CategoryDispatch, "dispatch_start", "starting", map[string]any{"session_id": "abc"})
	logger.Error(CategorySandbox, "trap", "guest trapped", nil)

	events := readLines(t, filepath.Join(dir, "events.jsonl"))
	require.Len(t, events, 2)

	errs := readLines(t, filepath.Join(dir, "errors.jsonl"))
	require.Len(t, errs, 1)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(errs[0]), &ev))
	require.Equal(t, LevelError, ev.Level)
	require.Equal(t, CategorySandbox, ev.Category)
}

func TestLoggerRespectsMinLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	require.NoError(t, err)
	defer logger.Close()

	logger.SetMinLevel(LevelWarn)
	logger.Debug(CategoryDispatch, "noisy", "should be dropped", nil)
	logger.Warn(CategoryDispatch, "kept", "should be kept", nil)

	events := readLines(t, filepath.Join(dir, "events.jsonl"))
	require.Len(t, events, 1)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}
