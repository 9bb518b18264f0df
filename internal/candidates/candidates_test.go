package candidates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	abs := filepath.Join(string(filepath.Separator), "etc", "snap.json")
	got := Paths("/app", "", "data/a.json", abs, "./data/a.json", "../b.json")

	assert.Equal(t, List{"/app/data/a.json", abs, "/b.json"}, got)
}

func TestFirstExisting_StopsAtFirstHit(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "second.json")
	third := filepath.Join(dir, "third.json")
	require.NoError(t, os.WriteFile(second, []byte("2"), 0o644))
	require.NoError(t, os.WriteFile(third, []byte("3"), 0o644))

	var probed []string
	load := func(p string) ([]byte, error) {
		probed = append(probed, p)
		return ReadFile(p)
	}

	hit, err := FirstExisting(List{filepath.Join(dir, "first.json"), second, third}, load)
	require.NoError(t, err)
	assert.Equal(t, second, hit.Path)
	assert.Equal(t, "2", string(hit.Value))
	assert.Len(t, probed, 2, "third candidate must not be probed")
}

func TestFirstExisting_AllMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := FirstExisting(List{filepath.Join(dir, "a"), filepath.Join(dir, "b")}, ReadFile)
	assert.True(t, errors.Is(err, ErrNoCandidate))
}

func TestFirstExisting_OtherErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte("{}"), 0o644))

	boom := fmt.Errorf("parse failure")
	calls := 0
	load := func(p string) (int, error) {
		calls++
		return 0, boom
	}

	_, err := FirstExisting(List{good, good + ".other"}, load)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, ErrNoCandidate))
	assert.Equal(t, 1, calls)
}

func TestReadFile_DirectoryCountsAsMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadFile(dir)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFirstDir(t *testing.T) {
	dir, ok := FirstDir(List{"a", "b", "c"}, func(d string) bool { return d == "b" })
	assert.True(t, ok)
	assert.Equal(t, "b", dir)

	_, ok = FirstDir(List{"a"}, func(string) bool { return false })
	assert.False(t, ok)
}
