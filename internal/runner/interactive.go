package runner

import (
	"context"
	"fmt"
	"strings"

	"innerbloom-server/internal/diagnostics"
	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/messaging"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"
	"innerbloom-server/internal/repository"

	"go.uber.org/zap"
)

// InteractiveRequest is one interactive call.
type InteractiveRequest struct {
	UserID         string
	Mode           string // empty infers the mode from the user's game mode
	Source         model.Source
	PromptOverride string // structured template or plain text, empty keeps the mode template
	Persist        bool
	DryRun         bool
	Seed           int64
}

// InteractiveResult is the generation result plus what the interactive
// caller needs to inspect it.
type InteractiveResult struct {
	Result       *model.GenerationResult `json:"result"`
	Preview      *prompt.Preview         `json:"preview,omitempty"`
	ModeInferred bool                    `json:"mode_inferred"`
	Persisted    bool                    `json:"persisted"`
	BatchID      string                  `json:"batch_id,omitempty"`
	TaskIDs      []string                `json:"task_ids,omitempty"`
}

// Interactive is the variant of Runner with prompt override, mode inference
// and persistence of validated tasks.
type Interactive struct {
	runner *Runner
	log    *zap.Logger
}

// NewInteractive builds an Interactive over stages.
func NewInteractive(stages Stages, opts Options) (*Interactive, error) {
	r, err := New(stages, opts)
	if err != nil {
		return nil, err
	}
	return &Interactive{runner: r, log: r.log.Named("Interactive")}, nil
}

// Run generates and, when req.Persist is set and validation passed, stores
// the tasks in one transaction. The returned error is only set for
// persistence failures; everything else is reported in the result.
func (i *Interactive) Run(ctx context.Context, req InteractiveRequest) (out *InteractiveResult, err error) {
	c := call{
		userID:    req.UserID,
		inferMode: true,
		source:    req.Source,
		override:  req.PromptOverride,
		dryRun:    req.DryRun,
		seed:      req.Seed,
	}
	if m := strings.TrimSpace(req.Mode); m != "" {
		c.mode = model.Mode(strings.ToLower(m))
		c.inferMode = false
	}

	res, tr := i.runner.execute(ctx, c)
	out = &InteractiveResult{Result: res, ModeInferred: tr.modeInferred}
	if tr.messages != nil {
		pv := i.runner.stages.BuildPreview(tr.messages, i.runner.opts.TokenCounter)
		out.Preview = &pv
	}

	if !req.Persist || !res.OK() {
		return out, nil
	}

	defer func() {
		if p := recover(); p != nil {
			err = apperrors.Persistence(fmt.Errorf("%v", p), "task writer panicked")
			i.runner.diag.AppendError("persist", err, i.runner.meta(res))
			out.Persisted = false
		}
	}()
	return out, i.persist(ctx, out)
}

func (i *Interactive) persist(ctx context.Context, out *InteractiveResult) error {
	res := out.Result
	writer := i.runner.stages.Writer
	if writer == nil {
		err := apperrors.Configurationf("persistence requested but no task writer is configured")
		i.runner.diag.AppendError("persist", err, i.runner.meta(res))
		return err
	}

	inserted, err := writer.InsertTasks(ctx, repository.TaskBatch{
		UserID:       res.UserID,
		TasksGroupID: res.TasksGroupID,
		Mode:         res.Mode,
		Source:       res.Source,
		Model:        res.Model,
		Tasks:        res.Tasks,
	})
	if err != nil {
		persistFailuresTotal.Inc()
		perr := apperrors.Persistence(err, "failed to persist generated tasks")
		i.runner.diag.AppendError("persist", perr, i.runner.meta(res))
		return perr
	}

	tasksPersistedTotal.Add(float64(len(inserted.TaskIDs)))
	out.Persisted = true
	out.BatchID = inserted.BatchID.String()
	out.TaskIDs = make([]string, 0, len(inserted.TaskIDs))
	for _, id := range inserted.TaskIDs {
		out.TaskIDs = append(out.TaskIDs, id.String())
	}
	i.log.Info("Tasks persisted",
		zap.String("user_id", res.UserID),
		zap.String("batch_id", out.BatchID),
		zap.Int("task_count", len(out.TaskIDs)))

	i.notify(ctx, out)
	return nil
}

// notify publishes the stored batch. Failures are only logged: the tasks are
// already committed.
func (i *Interactive) notify(ctx context.Context, out *InteractiveResult) {
	n := i.runner.stages.Notifier
	if n == nil {
		return
	}
	res := out.Result
	err := n.NotifyTasksGenerated(ctx, messaging.TasksGeneratedEvent{
		BatchID:      out.BatchID,
		UserID:       res.UserID,
		TasksGroupID: res.TasksGroupID,
		Mode:         string(res.Mode),
		Source:       string(res.Source),
		Model:        res.Model,
		TaskCount:    len(out.TaskIDs),
		TaskIDs:      out.TaskIDs,
	})
	if err != nil {
		i.runner.diag.Warn("Failed to publish tasks generated event", diagnostics.Meta{
			"user_id":  res.UserID,
			"batch_id": out.BatchID,
			"error":    err.Error(),
		})
	}
}
