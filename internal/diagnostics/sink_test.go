package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"innerbloom-server/internal/candidates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSink_PicksFirstWritableDir(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file cannot be used as a directory.
	dirs := candidates.List{filepath.Join(blocker, "exports"), filepath.Join(root, "exports")}
	sink := NewSink(zap.NewNop(), dirs)

	assert.Equal(t, filepath.Join(root, "exports", ErrorLogName), sink.Path())
}

func TestAppendError_WritesLine(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zap.DebugLevel)
	sink := NewSink(zap.New(core), candidates.List{dir})
	sink.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	sink.AppendError("generate", errors.New("upstream timeout\nsecond line"), Meta{"user_id": "u1", "mode": "flow"})
	sink.AppendError("validate", nil, nil)

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `2025-01-02T03:04:05Z [generate] mode=flow user_id=u1 upstream timeout\nsecond line`, lines[0])

	entries := logs.FilterMessage("Generation stage failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "generate", entries[0].ContextMap()["stage"])
}

func TestAppendError_SwallowsWriteFailures(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zap.DebugLevel)
	sink := NewSink(zap.New(core), candidates.List{dir})
	// Point the log at a path whose parent does not exist.
	sink.path = filepath.Join(dir, "missing", "nested", ErrorLogName)

	assert.NotPanics(t, func() {
		sink.AppendError("resolve", errors.New("boom"), nil)
	})
	assert.Equal(t, 1, logs.FilterMessage("Failed to open diagnostics log").Len())
}

func TestLeveledLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewSink(zap.New(core), candidates.List{t.TempDir()})

	sink.Debug("debug", nil)
	sink.Info("info", Meta{"k": 1})
	sink.Warn("warn", nil)
	sink.Error("error", Meta{"k": "v"})

	assert.Equal(t, 4, logs.Len())
	assert.Equal(t, int64(1), logs.FilterMessage("info").All()[0].ContextMap()["k"])
}

func TestNop_LogsWithoutFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	core, logs := observer.New(zap.DebugLevel)
	sink := Nop(zap.New(core))

	sink.AppendError("resolve", errors.New("boom"), Meta{"user_id": "u1"})

	assert.Empty(t, sink.Path())
	assert.Equal(t, 1, logs.FilterMessage("Generation stage failed").Len())
	entries, err := os.ReadDir(".")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
