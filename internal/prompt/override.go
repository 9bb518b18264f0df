package prompt

import (
	"strings"

	apperrors "innerbloom-server/internal/errors"
)

// ParseOverride builds the template for an ad-hoc prompt. Text starting with
// "{" is a full template in the on-disk format and keeps its own response
// format when it declares one. Any other text becomes a single user message.
// Both inherit base's response format otherwise. Blank text returns base.
func ParseOverride(text string, base *Template) (*Template, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return base, nil
	}

	var baseFormat *ResponseFormat
	if base != nil {
		baseFormat = base.ResponseFormat
	}

	var tpl *Template
	if strings.HasPrefix(trimmed, "{") {
		parsed, err := ParseTemplate([]byte(trimmed))
		if err != nil {
			return nil, apperrors.WrapWithCode(err, apperrors.CodeInvalidArgument, "invalid prompt override")
		}
		tpl = parsed
		if tpl.ResponseFormat == nil {
			tpl.ResponseFormat = baseFormat
		}
	} else {
		tpl = &Template{
			Messages:       []Message{{Role: RoleUser, Content: trimmed}},
			ResponseFormat: baseFormat,
		}
	}

	if base != nil {
		tpl.Mode = base.Mode
	}
	tpl.Path = "override"
	return tpl, nil
}
