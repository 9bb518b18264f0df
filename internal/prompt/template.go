// Package prompt loads mode templates and turns them into the message list
// sent to the model.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"innerbloom-server/internal/candidates"
	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/model"

	"go.uber.org/zap"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Response format types.
const (
	FormatJSONSchema = "json_schema"
	FormatText       = "text"
	FormatJSONObject = "json_object"
)

// Message is one entry of the rendered conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// JSONSchemaFormat describes a schema-constrained response.
type JSONSchemaFormat struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Strict      bool            `json:"strict,omitempty"`
}

// ResponseFormat is carried through from the template to the model call.
type ResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

// Schema returns the JSON schema of a json_schema format, or nil.
func (f *ResponseFormat) Schema() json.RawMessage {
	if f == nil || f.JSONSchema == nil || len(f.JSONSchema.Schema) == 0 {
		return nil
	}
	return f.JSONSchema.Schema
}

// Template is immutable after it is parsed.
type Template struct {
	Mode           model.Mode
	Path           string
	Messages       []Message
	ResponseFormat *ResponseFormat
}

type rawTemplate struct {
	ResponseFormat *ResponseFormat `json:"response_format"`
	Messages       []rawMessage    `json:"messages"`
}

type rawMessage struct {
	Role    string  `json:"role"`
	System  *string `json:"system"`
	Content *string `json:"content"`
}

// ParseTemplate sanitizes and decodes a template. Entries carrying a system
// field come first, followed by entries carrying a content field, each group
// in file order. An entry with both fields contributes to both groups.
func ParseTemplate(raw []byte) (*Template, error) {
	clean, err := SanitizeTemplate(raw)
	if err != nil {
		return nil, err
	}

	var rt rawTemplate
	if err := json.Unmarshal(clean, &rt); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}

	var system, content []Message
	for i, m := range rt.Messages {
		if m.System == nil && m.Content == nil {
			return nil, fmt.Errorf("template message #%d has neither system nor content", i)
		}
		if m.System != nil {
			system = append(system, Message{Role: RoleSystem, Content: *m.System})
		}
		if m.Content != nil {
			role := strings.ToLower(strings.TrimSpace(m.Role))
			if role == "" || (m.System != nil && role == RoleSystem) {
				role = RoleUser
			}
			content = append(content, Message{Role: role, Content: *m.Content})
		}
	}

	messages := append(system, content...)
	if len(messages) == 0 {
		return nil, errors.New("template has no messages")
	}
	return &Template{Messages: messages, ResponseFormat: rt.ResponseFormat}, nil
}

// Loader finds mode templates on disk.
type Loader struct {
	appRoot string
	dir     string
	log     *zap.Logger
}

// NewLoader creates a Loader. dir overrides the default prompts directories.
func NewLoader(appRoot, dir string, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{appRoot: appRoot, dir: dir, log: log.Named("TemplateLoader")}
}

// Candidates lists the template paths probed for mode, in order.
func (l *Loader) Candidates(mode model.Mode) candidates.List {
	file := string(mode) + ".json"
	var dirs []string
	if l.dir != "" {
		dirs = append(dirs, filepath.Join(l.dir, file))
	}
	dirs = append(dirs,
		filepath.Join("prompts", file),
		filepath.Join("..", "prompts", file),
		filepath.Join("..", "..", "prompts", file),
	)
	return candidates.Paths(l.appRoot, dirs...)
}

// Load returns the template for mode. A template missing from every candidate
// path is a configuration error; there is no further fallback.
func (l *Loader) Load(mode model.Mode) (*Template, error) {
	if _, ok := model.ParseMode(string(mode)); !ok {
		return nil, apperrors.InvalidArgumentf("unknown mode %q", mode)
	}

	hit, err := candidates.FirstExisting(l.Candidates(mode), func(path string) (*Template, error) {
		data, err := candidates.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ParseTemplate(data)
	})
	if err != nil {
		if errors.Is(err, candidates.ErrNoCandidate) {
			return nil, apperrors.WrapWithCodef(err, apperrors.CodeConfiguration, "no template for mode %s", mode)
		}
		return nil, apperrors.WrapWithCodef(err, apperrors.CodeConfiguration, "invalid template for mode %s", mode)
	}

	tpl := hit.Value
	tpl.Mode = mode
	tpl.Path = hit.Path
	l.log.Debug("Template loaded",
		zap.String("mode", string(mode)),
		zap.String("path", hit.Path),
		zap.Int("messages", len(tpl.Messages)))
	return tpl, nil
}
