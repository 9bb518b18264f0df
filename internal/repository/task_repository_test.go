package repository

import (
	"context"
	"errors"
	"testing"

	"innerbloom-server/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingTx struct {
	pgx.Tx
	failAt     int
	execs      int
	committed  bool
	rolledBack bool
}

func (r *recordingTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	r.execs++
	if r.failAt > 0 && r.execs == r.failAt {
		return pgconn.CommandTag{}, errors.New("check constraint violated")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *recordingTx) Commit(context.Context) error {
	r.committed = true
	return nil
}

func (r *recordingTx) Rollback(context.Context) error {
	r.rolledBack = true
	return nil
}

type fakePool struct {
	tx *recordingTx
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) { return p.tx, nil }

func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.tx.Exec(ctx, sql, args...)
}

func (p *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (p *fakePool) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func sampleBatch(n int) TaskBatch {
	b := TaskBatch{UserID: "user-1", TasksGroupID: "group-1", Mode: model.ModeFlow, Source: model.SourceMock, Model: "gpt-4o-mini"}
	for i := 0; i < n; i++ {
		b.Tasks = append(b.Tasks, model.Task{Task: "t", PillarCode: "BODY", TraitCode: "ENERGY", StatCode: "ENERGY", DifficultyCode: "EASY"})
	}
	return b
}

func TestInsertTasks_OneRowPerTaskInOneTransaction(t *testing.T) {
	tx := &recordingTx{}
	repo := NewTaskRepository(&fakePool{tx: tx}, zap.NewNop())

	res, err := repo.InsertTasks(context.Background(), sampleBatch(3))

	require.NoError(t, err)
	assert.Len(t, res.TaskIDs, 3)
	assert.Equal(t, 3, tx.execs)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestInsertTasks_RollsBackWholeBatch(t *testing.T) {
	tx := &recordingTx{failAt: 2}
	repo := NewTaskRepository(&fakePool{tx: tx}, zap.NewNop())

	res, err := repo.InsertTasks(context.Background(), sampleBatch(3))

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "task #2")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Equal(t, 2, tx.execs)
}

func TestInsertTasks_RejectsEmptyInput(t *testing.T) {
	repo := NewTaskRepository(&fakePool{tx: &recordingTx{}}, nil)

	_, err := repo.InsertTasks(context.Background(), sampleBatch(0))
	assert.Error(t, err)

	b := sampleBatch(1)
	b.UserID = ""
	_, err = repo.InsertTasks(context.Background(), b)
	assert.Error(t, err)
}
