// Package validation checks a generated payload against its JSON schema and
// against the active catalog.
package validation

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"innerbloom-server/internal/catalog"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// MsgNoTasks is reported for a payload with an empty task list.
const MsgNoTasks = "Expected at least one task in payload"

// Validator is safe for concurrent use. Compiled schemas are cached by content.
type Validator struct {
	log *zap.Logger

	mu      sync.Mutex
	schemas map[[sha256.Size]byte]*jsonschema.Schema
}

// New creates a Validator.
func New(log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{
		log:     log.Named("Validator"),
		schemas: make(map[[sha256.Size]byte]*jsonschema.Schema),
	}
}

// Validate checks payload. Schema violations are all reported together and
// stop validation. The remaining checks run in order and stop at the first
// failure: user_id, tasks_group_id (skipped when the expected value is N/A),
// a non-empty task list, then each task in turn.
//
// payload may be raw JSON ([]byte, json.RawMessage), an already decoded JSON
// value or a *model.TaskPayload. schema may be empty.
func (v *Validator) Validate(payload any, schema json.RawMessage, cat *catalog.Catalog, ph prompt.Placeholders) model.ValidationResult {
	doc, err := toDocument(payload)
	if err != nil {
		return model.Failed(fmt.Sprintf("Payload is not valid JSON: %v", err))
	}
	doc = withTaskList(doc)

	if len(bytes.TrimSpace(schema)) > 0 {
		errs, err := v.checkSchema(doc, schema)
		if err != nil {
			v.log.Error("Failed to compile response schema", zap.Error(err))
			return model.Failed(fmt.Sprintf("Invalid response schema: %v", err))
		}
		if len(errs) > 0 {
			return model.Failed(errs...)
		}
	}

	var p model.TaskPayload
	if err := redecode(doc, &p); err != nil {
		return model.Failed(fmt.Sprintf("Payload does not match the task shape: %v", err))
	}

	if msg := checkBusinessRules(&p, cat, ph); msg != "" {
		return model.Failed(msg)
	}
	return model.Passed()
}

func (v *Validator) checkSchema(doc any, schema json.RawMessage) ([]string, error) {
	sch, err := v.compile(schema)
	if err != nil {
		return nil, err
	}
	err = sch.Validate(doc)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}, nil
	}
	return flatten(ve), nil
}

func (v *Validator) compile(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := sha256.Sum256(schema)

	v.mu.Lock()
	defer v.mu.Unlock()
	if sch, ok := v.schemas[key]; ok {
		return sch, nil
	}

	const url = "innerbloom://response-schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, err
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	v.schemas[key] = sch
	return sch, nil
}

// flatten returns one "location: message" line per leaf cause, sorted for
// stable output.
func flatten(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "(root)"
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}

func checkBusinessRules(p *model.TaskPayload, cat *catalog.Catalog, ph prompt.Placeholders) string {
	if want := ph.UserID(); p.UserID != want {
		return fmt.Sprintf("user_id mismatch: expected %q, got %q", want, p.UserID)
	}
	if want := ph.TasksGroupID(); want != prompt.NotApplicable && p.TasksGroupID != want {
		return fmt.Sprintf("tasks_group_id mismatch: expected %q, got %q", want, p.TasksGroupID)
	}
	if len(p.Tasks) == 0 {
		return MsgNoTasks
	}

	seen := make(map[string]struct{}, len(p.Tasks))
	for i, t := range p.Tasks {
		n := i + 1
		title := strings.ToLower(strings.TrimSpace(t.Task))
		if _, dup := seen[title]; dup {
			return fmt.Sprintf("Duplicate task title detected: %q", t.Task)
		}
		seen[title] = struct{}{}

		if _, ok := cat.PillarsByCode[t.PillarCode]; !ok {
			return fmt.Sprintf("Unknown pillar_code %q in task #%d", t.PillarCode, n)
		}
		trait, ok := cat.TraitsByCode[t.TraitCode]
		if !ok {
			return fmt.Sprintf("Unknown trait_code %q in task #%d", t.TraitCode, n)
		}
		if trait.PillarCode != t.PillarCode {
			return fmt.Sprintf("Trait %s belongs to pillar %s but task declares pillar %s", trait.Code, trait.PillarCode, t.PillarCode)
		}
		if _, ok := cat.StatsByCode[t.StatCode]; !ok {
			return fmt.Sprintf("Unknown stat_code %q in task #%d", t.StatCode, n)
		}
		if _, ok := cat.DifficultiesByCode[t.DifficultyCode]; !ok {
			return fmt.Sprintf("Unknown difficulty_code %q in task #%d", t.DifficultyCode, n)
		}
	}
	return ""
}

func toDocument(payload any) (any, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		return nil, errors.New("payload is empty")
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	case string:
		raw = []byte(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// withTaskList gives an object without a task list an empty one, so a
// missing "tasks" is reported as MsgNoTasks whether or not a schema is set.
func withTaskList(doc any) any {
	obj, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	if tasks, present := obj["tasks"]; present && tasks != nil {
		return doc
	}
	out := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	out["tasks"] = []any{}
	return out
}

func redecode(doc any, out any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
