package prompt

import (
	"errors"
	"regexp"
	"strings"

	apperrors "innerbloom-server/internal/errors"
)

// ErrMissingPlaceholder is returned when a template references a key that has no value.
var ErrMissingPlaceholder = errors.New("missing placeholder value")

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// RenderText substitutes {{KEY}} tokens in text. An unknown key fails the
// whole render; nothing is ever replaced with a blank.
func RenderText(text string, ph Placeholders) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		key := strings.TrimSpace(placeholderPattern.FindStringSubmatch(token)[1])
		v, ok := ph[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return token
		}
		return v
	})
	if missing != "" {
		return "", apperrors.WrapWithCodef(ErrMissingPlaceholder, apperrors.CodeConfiguration, "placeholder {{%s}} has no value", missing)
	}
	return out, nil
}

// Render substitutes placeholders in every message of tpl.
func Render(tpl *Template, ph Placeholders) ([]Message, error) {
	if tpl == nil {
		return nil, apperrors.Configurationf("no template to render")
	}
	out := make([]Message, 0, len(tpl.Messages))
	for i, m := range tpl.Messages {
		content, err := RenderText(m.Content, ph)
		if err != nil {
			return nil, apperrors.Wrapf(err, "render message #%d (%s)", i, m.Role)
		}
		out = append(out, Message{Role: m.Role, Content: content})
	}
	return out, nil
}
