package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"innerbloom-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const liveSnapshotJSON = `{"samples": {
  "users": [{"user_id": 101, "first_name": "Live", "game_mode_id": 3, "tasks_group_id": "g-101"}],
  "cat_game_mode": [{"game_mode_id": 3, "code": "FLOW", "name": "Flow"}],
  "cat_pillar": [{"pillar_id": 1, "code": "BODY", "name": "Body"}],
  "cat_trait": [{"trait_id": 1, "pillar_id": 1, "code": "ENERGY", "name": "Energy"}],
  "cat_difficulty": [{"difficulty_id": 1, "code": "EASY", "name": "Easy"}],
  "onboarding_session": []
}}`

const fixtureJSON = `{
  "snapshot": {"samples": {
    "users": [{"user_id": "fx-1", "tasks_group_id": "g-fx"}],
    "cat_pillar": [{"pillar_id": 1, "code": "BODY"}],
    "cat_trait": [{"trait_id": 1, "pillar_id": 1, "code": "ENERGY"}],
    "cat_difficulty": [{"difficulty_id": 1, "code": "EASY"}]
  }},
  "payload": {"user_id": "fx-1", "tasks_group_id": "g-fx", "tasks": [
    {"task": "Stretch", "pillar_code": "BODY", "trait_code": "ENERGY", "stat_code": "ENERGY", "difficulty_code": "EASY", "friction_score": 0.2, "friction_tier": "low"}
  ]}
}`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// newRoot returns an app root two levels below a fresh temp dir so that the
// ../ candidates stay inside the test sandbox.
func newRoot(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "app", "server")
	require.NoError(t, os.MkdirAll(root, 0o755))
	return root
}

func TestResolve_Mock(t *testing.T) {
	r := NewResolver(Options{AppRoot: newRoot(t)}, nil)

	res, err := r.Resolve(context.Background(), model.SourceMock, "user-7")
	require.NoError(t, err)
	assert.Equal(t, model.SourceMock, res.Source)
	assert.Empty(t, res.Path)
	_, ok := res.Snapshot.FindUser("user-7")
	assert.True(t, ok)
}

func TestResolve_LivePrefersOverride(t *testing.T) {
	root := newRoot(t)
	writeFile(t, filepath.Join(root, "data", "snapshot.json"), `{"samples":{"users":[{"user_id":"default"}]}}`)
	override := filepath.Join(t.TempDir(), "override.json")
	writeFile(t, override, liveSnapshotJSON)

	r := NewResolver(Options{AppRoot: root, SnapshotPath: override}, nil)
	res, err := r.Resolve(context.Background(), model.SourceLive, "101")
	require.NoError(t, err)

	assert.Equal(t, model.SourceLive, res.Source)
	assert.Equal(t, override, res.Path)
	u, ok := res.Snapshot.FindUser("101")
	require.True(t, ok)
	assert.Equal(t, model.ID("3"), u.GameModeID)
}

func TestResolve_LiveFirstExistingCandidateWins(t *testing.T) {
	root := newRoot(t)
	writeFile(t, filepath.Join(root, "data", "live_snapshot.json"), liveSnapshotJSON)
	writeFile(t, filepath.Join(root, "..", "data", "snapshot.json"), `not even json`)

	r := NewResolver(Options{AppRoot: root}, nil)
	res, err := r.Resolve(context.Background(), model.SourceLive, "101")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "data", "live_snapshot.json"), res.Path)
}

func TestResolve_LiveFallsBackToSample(t *testing.T) {
	root := newRoot(t)
	writeFile(t, filepath.Join(root, "..", "data", "snapshot.sample.json"), liveSnapshotJSON)

	r := NewResolver(Options{AppRoot: root}, nil)
	res, err := r.Resolve(context.Background(), model.SourceLive, "101")
	require.NoError(t, err)
	assert.Equal(t, model.SourceLive, res.Source)
	assert.Equal(t, filepath.Clean(filepath.Join(root, "..", "data", "snapshot.sample.json")), res.Path)
}

func TestResolve_LiveFallsBackToMock(t *testing.T) {
	r := NewResolver(Options{AppRoot: newRoot(t)}, nil)
	res, err := r.Resolve(context.Background(), model.Source("unknown"), "u-1")
	require.NoError(t, err)
	assert.Equal(t, model.SourceMock, res.Source)
	assert.Equal(t, model.Source("unknown"), res.Requested)
}

func TestResolve_ParseErrorIsFatal(t *testing.T) {
	root := newRoot(t)
	writeFile(t, filepath.Join(root, "data", "snapshot.json"), `{"samples": [`)

	r := NewResolver(Options{AppRoot: root}, nil)
	_, err := r.Resolve(context.Background(), model.SourceLive, "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot.json")
}

func TestResolve_Static(t *testing.T) {
	root := newRoot(t)
	writeFile(t, filepath.Join(root, "fixtures", "static_bundle.json"), fixtureJSON)

	r := NewResolver(Options{AppRoot: root}, nil)
	res, err := r.Resolve(context.Background(), model.SourceStatic, "fx-1")
	require.NoError(t, err)

	assert.Equal(t, model.SourceStatic, res.Source)
	require.NotNil(t, res.FixturePayload)
	assert.Len(t, res.FixturePayload.Tasks, 1)
	_, ok := res.Snapshot.FindUser("fx-1")
	assert.True(t, ok)
}

func TestResolve_StaticFallsBackToMock(t *testing.T) {
	r := NewResolver(Options{AppRoot: newRoot(t)}, nil)
	res, err := r.Resolve(context.Background(), model.SourceStatic, "u-1")
	require.NoError(t, err)
	assert.Equal(t, model.SourceMock, res.Source)
	assert.Equal(t, model.SourceStatic, res.Requested)
	assert.Nil(t, res.FixturePayload)
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver(Options{}, nil).Resolve(ctx, model.SourceMock, "u")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_ShippedDataFiles(t *testing.T) {
	// The repository root is two levels up from this package.
	r := NewResolver(Options{AppRoot: filepath.Join("..", "..")}, nil)

	res, err := r.Resolve(context.Background(), model.SourceLive, "1")
	require.NoError(t, err)
	assert.Equal(t, model.SourceLive, res.Source)
	assert.NotEmpty(t, res.Snapshot.Users)

	res, err = r.Resolve(context.Background(), model.SourceStatic, "1")
	require.NoError(t, err)
	assert.Equal(t, model.SourceStatic, res.Source)
	assert.NotNil(t, res.FixturePayload)
}
