package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTemplate_EscapesSystemBlock(t *testing.T) {
	raw := []byte(`{"messages":[{"role":"system","system": <<<
  Say "hello" to {{USER_NAME}}.
  Use a \ backslash and a <tag>.
>>>}]}`)

	out, err := SanitizeTemplate(raw)
	require.NoError(t, err)

	var decoded struct {
		Messages []struct {
			System string `json:"system"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded.Messages, 1)
	assert.Equal(t, "Say \"hello\" to {{USER_NAME}}.\n  Use a \\ backslash and a <tag>.", decoded.Messages[0].System)
}

func TestSanitizeTemplate_MultipleBlocks(t *testing.T) {
	raw := []byte(`{"a": <<< one >>>, "b": <<<two
lines>>>}`)

	out, err := SanitizeTemplate(raw)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "one", decoded["a"])
	assert.Equal(t, "two\nlines", decoded["b"])
}

func TestSanitizeTemplate_NoMarkersUnchanged(t *testing.T) {
	raw := []byte(`{"messages":[{"role":"user","content":"hi"}]}`)

	out, err := SanitizeTemplate(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestSanitizeTemplate_Unterminated(t *testing.T) {
	_, err := SanitizeTemplate([]byte(`{"system": <<< never closed }`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnterminatedBlock)
}

func TestSanitizeTemplate_SecondBlockUnterminated(t *testing.T) {
	_, err := SanitizeTemplate([]byte(`{"a": <<<ok>>>, "b": <<<open}`))
	assert.ErrorIs(t, err, ErrUnterminatedBlock)
}
