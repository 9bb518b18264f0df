// Package runner composes the pipeline stages into generation calls: the
// batch Generate operation and the interactive variant with prompt override
// and persistence.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"innerbloom-server/internal/catalog"
	"innerbloom-server/internal/diagnostics"
	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"
	"innerbloom-server/internal/service"
	"innerbloom-server/internal/snapshot"

	"go.uber.org/zap"
)

// Options tune a Runner.
type Options struct {
	DefaultMode  model.Mode
	TaskCount    int // tasks per dry run and TASK_COUNT placeholder
	Diagnostics  *diagnostics.Sink
	Logger       *zap.Logger
	TokenCounter prompt.TokenCounter // optional, used by previews
}

// Request is one Generate call.
type Request struct {
	UserID string
	Mode   model.Mode // empty uses Options.DefaultMode
	Source model.Source
	DryRun bool
	Seed   int64
}

// Runner runs generation calls. It holds no per-call state and is safe for
// concurrent use when its stages are.
type Runner struct {
	stages Stages
	opts   Options
	diag   *diagnostics.Sink
	log    *zap.Logger
}

// New validates stages and fills in defaults.
func New(stages Stages, opts Options) (*Runner, error) {
	if err := stages.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stages: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = model.ModeFlow
	}
	if _, ok := model.ParseMode(string(opts.DefaultMode)); !ok {
		return nil, apperrors.Configurationf("invalid default mode %q", opts.DefaultMode)
	}
	if opts.TaskCount <= 0 {
		opts.TaskCount = prompt.DefaultTaskCount
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = diagnostics.Nop(opts.Logger)
	}

	return &Runner{
		stages: stages.withDefaults(),
		opts:   opts,
		diag:   opts.Diagnostics,
		log:    opts.Logger.Named("Runner"),
	}, nil
}

// Generate runs the pipeline once. It never returns an error and never
// panics: every failure is reported through the result.
func (r *Runner) Generate(ctx context.Context, req Request) *model.GenerationResult {
	res, _ := r.execute(ctx, call{
		userID: req.UserID,
		mode:   req.Mode,
		source: req.Source,
		dryRun: req.DryRun,
		seed:   req.Seed,
	})
	return res
}

type call struct {
	userID    string
	mode      model.Mode
	inferMode bool
	source    model.Source
	override  string
	dryRun    bool
	seed      int64
}

// trace keeps the intermediate values of one call for the interactive variant.
type trace struct {
	resolution   *snapshot.Resolution
	user         *model.User
	catalog      *catalog.Catalog
	template     *prompt.Template
	placeholders prompt.Placeholders
	messages     []prompt.Message
	modeInferred bool
}

func (r *Runner) execute(ctx context.Context, c call) (res *model.GenerationResult, tr *trace) {
	start := time.Now()
	if strings.TrimSpace(c.userID) == "" {
		c.userID = snapshot.MockUserID
	}
	c.source = model.ParseSource(string(c.source))

	res = &model.GenerationResult{
		Status:     model.StatusOK,
		Source:     c.source,
		Mode:       c.mode,
		UserID:     c.userID,
		Validation: model.ValidationResult{Errors: []string{}},
		Timings:    model.Timings{},
	}
	tr = &trace{}
	branch := branchNone
	log := r.log.With(zap.String("user_id", c.userID), zap.String("requested_source", string(c.source)))

	defer func() {
		if p := recover(); p != nil {
			r.diag.AppendError("panic", fmt.Errorf("%v", p), diagnostics.Meta{
				"user_id": c.userID,
				"stack":   string(debug.Stack()),
			})
			res.Status = model.StatusError
			res.Errors = append(res.Errors, "internal error during generation")
		}
		elapsed := time.Since(start)
		res.Timings["total"] = elapsed.Milliseconds()
		generationsTotal.WithLabelValues(string(res.Mode), string(res.Source), branch, string(res.Status)).Inc()
		generationDuration.WithLabelValues(branch).Observe(elapsed.Seconds())
		log.Info("Generation finished",
			zap.String("status", string(res.Status)),
			zap.String("source", string(res.Source)),
			zap.String("mode", string(res.Mode)),
			zap.String("branch", branch),
			zap.Int("task_count", len(res.Tasks)),
			zap.Duration("duration", elapsed))
	}()

	if err := r.timed(res, "resolve", func() error { return r.resolve(ctx, c, res, tr) }); err != nil {
		return r.fail(res, "resolve", err), tr
	}
	snap, user := tr.resolution.Snapshot, tr.user

	_ = r.timed(res, "catalog", func() error {
		tr.catalog = catalog.Build(snap)
		return nil
	})

	mode, err := r.pickMode(c, tr)
	if err != nil {
		return r.fail(res, "template", err), tr
	}
	res.Mode = mode

	if err := r.timed(res, "template", func() error {
		tpl, err := r.stages.Templates.Load(mode)
		if err != nil {
			return err
		}
		if strings.TrimSpace(c.override) != "" {
			if tpl, err = r.stages.ParseOverride(c.override, tpl); err != nil {
				return err
			}
		}
		tr.template = tpl
		return nil
	}); err != nil {
		return r.fail(res, "template", err), tr
	}

	if err := r.timed(res, "render", func() error {
		tr.placeholders = r.stages.BuildPlaceholders(user, snap, tr.catalog, mode, r.opts.TaskCount)
		msgs, err := r.stages.BuildMessages(tr.template, tr.placeholders)
		if err != nil {
			return err
		}
		tr.messages = msgs
		return nil
	}); err != nil {
		return r.fail(res, "render", err), tr
	}
	if g := tr.placeholders.TasksGroupID(); g != prompt.NotApplicable {
		res.TasksGroupID = g
	}

	var (
		payload  any
		rawText  string
		parseErr error
	)
	switch {
	case c.dryRun:
		branch = branchDryRun
		_ = r.timed(res, "generate", func() error {
			payload = SynthesizeDryRun(tr.catalog, tr.placeholders, c.seed, r.opts.TaskCount)
			return nil
		})
	case res.Source == model.SourceStatic && tr.resolution.FixturePayload != nil:
		branch = branchFixture
		_ = r.timed(res, "generate", func() error {
			payload = ReplayFixture(tr.resolution.FixturePayload, tr.placeholders)
			return nil
		})
	default:
		branch = branchLive
		if err := r.timed(res, "generate", func() error {
			out, err := r.stages.Invoker.Invoke(ctx, service.InvokeRequest{
				UserID:         c.userID,
				Mode:           mode,
				Messages:       tr.messages,
				ResponseFormat: tr.template.ResponseFormat,
			})
			if err != nil {
				return err
			}
			res.Model = out.Model
			rawText = out.Text
			var doc json.RawMessage
			if err := json.Unmarshal([]byte(out.Text), &doc); err != nil {
				parseErr = err
				return nil
			}
			payload = doc
			return nil
		}); err != nil {
			return r.fail(res, "generate", err), tr
		}
	}

	if parseErr != nil {
		res.Validation = model.Failed("Model output is not valid JSON: " + parseErr.Error())
	} else {
		_ = r.timed(res, "validate", func() error {
			res.Validation = r.stages.Validator.Validate(payload, tr.template.ResponseFormat.Schema(), tr.catalog, tr.placeholders)
			return nil
		})
	}
	if res.Validation.Errors == nil {
		res.Validation.Errors = []string{}
	}

	if !res.Validation.Valid {
		validationFailuresTotal.WithLabelValues(string(mode)).Inc()
		res.Status = model.StatusError
		res.Errors = append(res.Errors, res.Validation.Errors...)
		res.RawOutput = rawText
		r.diag.AppendError("validate", errors.New(strings.Join(res.Validation.Errors, "; ")), r.meta(res))
		return res, tr
	}

	tasks, err := decodeTasks(payload)
	if err != nil {
		return r.fail(res, "validate", err), tr
	}
	res.Tasks = tasks
	return res, tr
}

// resolve loads the snapshot and the user row. A user missing from a
// non-mock snapshot demotes the call to the mock source.
func (r *Runner) resolve(ctx context.Context, c call, res *model.GenerationResult, tr *trace) error {
	resolution, err := r.stages.Resolver.Resolve(ctx, c.source, c.userID)
	if err != nil {
		return err
	}
	if resolution == nil || resolution.Snapshot == nil {
		return apperrors.NotFoundf("no snapshot resolved for source %s", c.source)
	}

	user, ok := resolution.Snapshot.FindUser(c.userID)
	if !ok && resolution.Source != model.SourceMock {
		r.diag.Warn("User not found in snapshot, demoting to mock", diagnostics.Meta{
			"user_id": c.userID,
			"source":  string(resolution.Source),
			"path":    resolution.Path,
		})
		if resolution, err = r.stages.Resolver.Resolve(ctx, model.SourceMock, c.userID); err != nil {
			return err
		}
		if resolution == nil || resolution.Snapshot == nil {
			return apperrors.NotFoundf("no mock snapshot resolved")
		}
		user, ok = resolution.Snapshot.FindUser(c.userID)
	}
	if !ok {
		return apperrors.NotFoundf("user %s not found in %s snapshot", c.userID, resolution.Source)
	}

	tr.resolution, tr.user = resolution, user
	res.Source = resolution.Source
	return nil
}

// pickMode returns the explicit mode, the inferred one when allowed, or the default.
func (r *Runner) pickMode(c call, tr *trace) (model.Mode, error) {
	if c.mode != "" {
		m, ok := model.ParseMode(string(c.mode))
		if !ok {
			return "", apperrors.InvalidArgumentf("unknown mode %q", c.mode)
		}
		return m, nil
	}
	if c.inferMode {
		if m, ok := r.stages.InferMode(tr.resolution.Snapshot, tr.user); ok {
			tr.modeInferred = true
			return m, nil
		}
		r.diag.Warn("Could not infer mode from game mode, using default", diagnostics.Meta{
			"user_id":      c.userID,
			"game_mode_id": string(tr.user.GameModeID),
			"default_mode": string(r.opts.DefaultMode),
		})
	}
	return r.opts.DefaultMode, nil
}

func (r *Runner) timed(res *model.GenerationResult, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	res.Timings[stage] = time.Since(start).Milliseconds()
	return err
}

func (r *Runner) fail(res *model.GenerationResult, stage string, err error) *model.GenerationResult {
	res.Status = model.StatusError
	res.Errors = append(res.Errors, err.Error())
	r.diag.AppendError(stage, err, r.meta(res))
	return res
}

func (r *Runner) meta(res *model.GenerationResult) diagnostics.Meta {
	return diagnostics.Meta{
		"user_id": res.UserID,
		"mode":    string(res.Mode),
		"source":  string(res.Source),
	}
}

func decodeTasks(payload any) ([]model.Task, error) {
	switch p := payload.(type) {
	case *model.TaskPayload:
		return p.Tasks, nil
	case json.RawMessage:
		var decoded model.TaskPayload
		if err := json.Unmarshal(p, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode validated payload: %w", err)
		}
		return decoded.Tasks, nil
	default:
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}
}
