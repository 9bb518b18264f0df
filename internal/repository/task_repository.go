// Package repository stores generated tasks in PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"time"

	"innerbloom-server/internal/database"
	"innerbloom-server/internal/model"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskBatch is one validated payload ready to be stored.
type TaskBatch struct {
	UserID       string
	TasksGroupID string
	Mode         model.Mode
	Source       model.Source
	Model        string
	Tasks        []model.Task
}

// StoredTask is a row of generated_tasks.
type StoredTask struct {
	ID           uuid.UUID
	BatchID      uuid.UUID
	UserID       string
	TasksGroupID string
	Mode         string
	Source       string
	Model        string
	Position     int
	Task         model.Task
	CreatedAt    time.Time
}

// InsertResult identifies the rows written by InsertTasks.
type InsertResult struct {
	BatchID uuid.UUID
	TaskIDs []uuid.UUID
}

// TaskRepository writes task batches, one transaction per batch.
type TaskRepository struct {
	query  database.DBTX
	tx     *database.TransactionHelper
	logger *zap.Logger
}

// Pool is what TaskRepository needs from *pgxpool.Pool.
type Pool interface {
	database.TxBeginner
	database.DBTX
}

// NewTaskRepository creates a TaskRepository over pool.
func NewTaskRepository(pool Pool, logger *zap.Logger) *TaskRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("TaskRepository")
	return &TaskRepository{
		query:  pool,
		tx:     database.NewTransactionHelper(pool, logger),
		logger: logger,
	}
}

const insertTaskQuery = `
	INSERT INTO generated_tasks (
		id, batch_id, user_id, tasks_group_id, mode, source, model, position,
		task, pillar_code, trait_code, stat_code, difficulty_code, friction_score, friction_tier
	) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// InsertTasks stores every task of batch in a single transaction. Either all
// rows are written or none are.
func (r *TaskRepository) InsertTasks(ctx context.Context, batch TaskBatch) (*InsertResult, error) {
	if batch.UserID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}
	if len(batch.Tasks) == 0 {
		return nil, fmt.Errorf("batch has no tasks")
	}

	result := &InsertResult{BatchID: uuid.New(), TaskIDs: make([]uuid.UUID, 0, len(batch.Tasks))}
	err := r.tx.WithTransaction(ctx, func(ctx context.Context, tx database.DBTX) error {
		for i, t := range batch.Tasks {
			id := uuid.New()
			_, err := tx.Exec(ctx, insertTaskQuery,
				id, result.BatchID, batch.UserID, batch.TasksGroupID, string(batch.Mode), string(batch.Source), batch.Model, i,
				t.Task, t.PillarCode, t.TraitCode, t.StatCode, t.DifficultyCode, t.FrictionScore, t.FrictionTier,
			)
			if err != nil {
				return fmt.Errorf("failed to insert task #%d: %w", i+1, err)
			}
			result.TaskIDs = append(result.TaskIDs, id)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Task batch insert failed",
			zap.String("user_id", batch.UserID),
			zap.Int("task_count", len(batch.Tasks)),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Task batch stored",
		zap.String("batch_id", result.BatchID.String()),
		zap.String("user_id", batch.UserID),
		zap.Int("task_count", len(result.TaskIDs)))
	return result, nil
}

const listBatchQuery = `
	SELECT id, batch_id, user_id, COALESCE(tasks_group_id, '') AS tasks_group_id, mode, source, model, position,
	       task, pillar_code, trait_code, stat_code, difficulty_code, friction_score, friction_tier, created_at
	FROM generated_tasks
	WHERE batch_id = $1
	ORDER BY position`

// taskRow mirrors a generated_tasks row for scanning.
type taskRow struct {
	ID             uuid.UUID `db:"id"`
	BatchID        uuid.UUID `db:"batch_id"`
	UserID         string    `db:"user_id"`
	TasksGroupID   string    `db:"tasks_group_id"`
	Mode           string    `db:"mode"`
	Source         string    `db:"source"`
	Model          string    `db:"model"`
	Position       int       `db:"position"`
	Task           string    `db:"task"`
	PillarCode     string    `db:"pillar_code"`
	TraitCode      string    `db:"trait_code"`
	StatCode       string    `db:"stat_code"`
	DifficultyCode string    `db:"difficulty_code"`
	FrictionScore  float64   `db:"friction_score"`
	FrictionTier   string    `db:"friction_tier"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r taskRow) stored() StoredTask {
	return StoredTask{
		ID:           r.ID,
		BatchID:      r.BatchID,
		UserID:       r.UserID,
		TasksGroupID: r.TasksGroupID,
		Mode:         r.Mode,
		Source:       r.Source,
		Model:        r.Model,
		Position:     r.Position,
		Task: model.Task{
			Task:           r.Task,
			PillarCode:     r.PillarCode,
			TraitCode:      r.TraitCode,
			StatCode:       r.StatCode,
			DifficultyCode: r.DifficultyCode,
			FrictionScore:  r.FrictionScore,
			FrictionTier:   r.FrictionTier,
		},
		CreatedAt: r.CreatedAt,
	}
}

// ListBatch returns the rows of one batch in insertion order.
func (r *TaskRepository) ListBatch(ctx context.Context, batchID uuid.UUID) ([]StoredTask, error) {
	var rows []taskRow
	if err := pgxscan.Select(ctx, r.query, &rows, listBatchQuery, batchID); err != nil {
		return nil, fmt.Errorf("failed to list batch %s: %w", batchID, err)
	}
	out := make([]StoredTask, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.stored())
	}
	return out, nil
}

// CountByUser returns how many tasks are stored for a user.
func (r *TaskRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.query.QueryRow(ctx, `SELECT COUNT(*) FROM generated_tasks WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}
