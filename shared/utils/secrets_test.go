package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSecretsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := SecretsDir
	SecretsDir = dir
	t.Cleanup(func() { SecretsDir = prev })
	return dir
}

func TestReadSecret(t *testing.T) {
	dir := withSecretsDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ai_api_key"), []byte("  sk-test \n"), 0o600))

	v, err := ReadSecret("ai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", v)
}

func TestReadSecret_Missing(t *testing.T) {
	withSecretsDir(t)

	_, err := ReadSecret("nope")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestReadSecret_Empty(t *testing.T) {
	dir := withSecretsDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("   "), 0o600))

	_, err := ReadSecret("empty")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSecretNotFound))
}

func TestReadSecretOrEnv_PrefersEnv(t *testing.T) {
	dir := withSecretsDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ai_api_key"), []byte("from-file"), 0o600))
	t.Setenv("TEST_AI_API_KEY", "from-env")

	v, err := ReadSecretOrEnv("ai_api_key", "TEST_AI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestDecodeStrict_RejectsUnknownFields(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	err := DecodeStrict([]byte(`{"name":"a","extra":1}`), &out)
	assert.Error(t, err)

	require.NoError(t, DecodeStrict([]byte(`{"name":"a"}`), &out))
	assert.Equal(t, "a", out.Name)
}
