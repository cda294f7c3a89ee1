package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chainguard-dev/clog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	ctx, closeFn, err := Setup(t.Context(), Options{Dir: dir, Console: &console})
	require.NoError(t, err)

	Debug(ctx, "hidden")
	Info(ctx, "launched", "id", "i-123")
	Error(With(ctx, "bucket", "b1"), "delete failed")
	require.NoError(t, closeFn())

	infos := readLines(t, filepath.Join(dir, InfoFile))
	require.Len(t, infos, 2)
	assert.Equal(t, "launched", infos[0]["msg"])
	assert.Equal(t, "INFO", infos[0]["level"])
	assert.Equal(t, "i-123", infos[0]["id"])
	assert.Contains(t, infos[0], "time")

	errors := readLines(t, filepath.Join(dir, ErrorFile))
	require.Len(t, errors, 1)
	assert.Equal(t, "delete failed", errors[0]["msg"])
	assert.Equal(t, "b1", errors[0]["bucket"])

	assert.Contains(t, console.String(), "launched")
	assert.Contains(t, console.String(), "delete failed")
	assert.NotContains(t, console.String(), "hidden")
}

func TestSetupVerbose(t *testing.T) {
	var console bytes.Buffer
	ctx, closeFn, err := Setup(t.Context(), Options{Verbose: true, Console: &console})
	require.NoError(t, err)
	defer closeFn()

	clog.FromContext(ctx).Debug("transition", "from", "checking")
	assert.Contains(t, console.String(), "transition")
}

func TestWithRunFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	ctx, closeFn, err := Setup(t.Context(), Options{Console: &console})
	require.NoError(t, err)
	defer closeFn()

	runCtx, done := WithRunFile(ctx, dir, "Web Server 1")
	Info(runCtx, "checking host")
	Info(ctx, "not in the run file")
	done()

	data, err := os.ReadFile(filepath.Join(dir, RunDir, "web-server-1.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "checking host")
	assert.NotContains(t, string(data), "not in the run file")
	assert.Contains(t, console.String(), "checking host")

	// No directory, no file.
	same, done := WithRunFile(ctx, "", "x")
	done()
	assert.Equal(t, ctx, same)
}
