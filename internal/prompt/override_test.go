package prompt

import (
	"testing"

	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseTemplate() *Template {
	return &Template{
		Mode:     model.ModeFlow,
		Messages: []Message{{Role: RoleSystem, Content: "base"}},
		ResponseFormat: &ResponseFormat{
			Type:       FormatJSONSchema,
			JSONSchema: &JSONSchemaFormat{Name: "base", Schema: []byte(`{"type":"object"}`)},
		},
	}
}

func TestParseOverride_Blank(t *testing.T) {
	base := baseTemplate()
	tpl, err := ParseOverride("   \n", base)
	require.NoError(t, err)
	assert.Same(t, base, tpl)
}

func TestParseOverride_PlainText(t *testing.T) {
	base := baseTemplate()
	tpl, err := ParseOverride("  Give {{USER_NAME}} three easy tasks  ", base)
	require.NoError(t, err)

	assert.Equal(t, []Message{{Role: RoleUser, Content: "Give {{USER_NAME}} three easy tasks"}}, tpl.Messages)
	assert.Same(t, base.ResponseFormat, tpl.ResponseFormat)
	assert.Equal(t, model.ModeFlow, tpl.Mode)
}

func TestParseOverride_StructuredKeepsOwnFormat(t *testing.T) {
	tpl, err := ParseOverride(`{
		"response_format": {"type": "text"},
		"messages": [{"role": "user", "content": "hi"}, {"role": "system", "system": <<<be brief>>>}]
	}`, baseTemplate())
	require.NoError(t, err)

	require.Len(t, tpl.Messages, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "be brief"}, tpl.Messages[0])
	assert.Equal(t, FormatText, tpl.ResponseFormat.Type)
}

func TestParseOverride_StructuredInheritsFormat(t *testing.T) {
	base := baseTemplate()
	tpl, err := ParseOverride(`{"messages": [{"role": "user", "content": "hi"}]}`, base)
	require.NoError(t, err)
	assert.Same(t, base.ResponseFormat, tpl.ResponseFormat)
}

func TestParseOverride_InvalidStructured(t *testing.T) {
	_, err := ParseOverride(`{"messages": [`, baseTemplate())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.GetCode(err))
}
