package runner

import (
	"context"
	"encoding/json"
	"strings"

	"innerbloom-server/internal/catalog"
	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/messaging"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"
	"innerbloom-server/internal/repository"
	"innerbloom-server/internal/service"
	"innerbloom-server/internal/snapshot"
)

// SnapshotResolver loads the snapshot for one call.
type SnapshotResolver interface {
	Resolve(ctx context.Context, source model.Source, userID string) (*snapshot.Resolution, error)
}

// TemplateLoader loads the prompt template of a mode.
type TemplateLoader interface {
	Load(mode model.Mode) (*prompt.Template, error)
}

// PayloadValidator checks a payload against the response schema and the catalog.
type PayloadValidator interface {
	Validate(payload any, schema json.RawMessage, cat *catalog.Catalog, ph prompt.Placeholders) model.ValidationResult
}

// TaskWriter stores a validated batch atomically.
type TaskWriter interface {
	InsertTasks(ctx context.Context, batch repository.TaskBatch) (*repository.InsertResult, error)
}

// ModeInferer picks a mode from the user's current game mode row.
type ModeInferer func(snap *model.Snapshot, user *model.User) (model.Mode, bool)

// OverrideParser turns an ad-hoc prompt into a template based on base.
type OverrideParser func(text string, base *prompt.Template) (*prompt.Template, error)

// PlaceholderBuilder builds the substitution table of one call.
type PlaceholderBuilder func(user *model.User, snap *model.Snapshot, cat *catalog.Catalog, mode model.Mode, taskCount int) prompt.Placeholders

// MessageBuilder renders the template into the messages sent to the model.
type MessageBuilder func(tpl *prompt.Template, ph prompt.Placeholders) ([]prompt.Message, error)

// PreviewBuilder summarizes rendered messages.
type PreviewBuilder func(messages []prompt.Message, counter prompt.TokenCounter) prompt.Preview

// Stages are the replaceable parts of the pipeline. Function stages left nil
// get the package defaults; Writer and Notifier are optional.
type Stages struct {
	Resolver  SnapshotResolver
	Templates TemplateLoader
	Invoker   service.ModelInvoker
	Validator PayloadValidator
	Writer    TaskWriter
	Notifier  messaging.Notifier

	InferMode         ModeInferer
	ParseOverride     OverrideParser
	BuildPlaceholders PlaceholderBuilder
	BuildMessages     MessageBuilder
	BuildPreview      PreviewBuilder
}

// Validate reports missing required stages.
func (s *Stages) Validate() error {
	if s == nil {
		return apperrors.InvalidArgumentf("stages are required")
	}
	vb := apperrors.NewValidationBuilder()
	if s.Resolver == nil {
		vb.RequiredField("Resolver")
	}
	if s.Templates == nil {
		vb.RequiredField("Templates")
	}
	if s.Invoker == nil {
		vb.RequiredField("Invoker")
	}
	if s.Validator == nil {
		vb.RequiredField("Validator")
	}
	return vb.Build()
}

func (s Stages) withDefaults() Stages {
	if s.InferMode == nil {
		s.InferMode = InferMode
	}
	if s.ParseOverride == nil {
		s.ParseOverride = prompt.ParseOverride
	}
	if s.BuildPlaceholders == nil {
		s.BuildPlaceholders = prompt.BuildPlaceholders
	}
	if s.BuildMessages == nil {
		s.BuildMessages = prompt.Render
	}
	if s.BuildPreview == nil {
		s.BuildPreview = prompt.BuildPreview
	}
	return s
}

// InferMode maps the user's game mode row to a mode key.
func InferMode(snap *model.Snapshot, user *model.User) (model.Mode, bool) {
	if snap == nil || user == nil {
		return "", false
	}
	gm, ok := snap.GameModeByID(user.GameModeID)
	if !ok {
		return "", false
	}
	if m, ok := model.ParseMode(gm.Code); ok {
		return m, true
	}
	return model.ParseMode(strings.TrimSpace(gm.Name))
}
