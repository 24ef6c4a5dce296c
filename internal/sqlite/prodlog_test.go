package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lineside/mes/internal/domain/prodlog"
	"github.com/lineside/mes/internal/repository"
)

// seedInstruction creates a product and a two-step instruction so
// production logs have something to reference.
func seedInstruction(t *testing.T, db *DB) {
	t.Helper()
	seedProduct(t, db, "prod1")

	wi := bracketInstruction()
	wi.Nodes = wi.Nodes[:1]
	wi.Nodes = append(wi.Nodes, bracketInstruction().Nodes[2])
	require.NoError(t, NewInstructionRepository(db).Create(context.Background(), wi))
}

func bracketLog() *prodlog.ProductionLog {
	now := time.Now().UTC().Truncate(time.Second)
	return &prodlog.ProductionLog{
		ID:                "log1",
		WorkInstructionID: "wi1",
		ProductID:         "prod1",
		Operator:          "sam",
		BatchSize:         5,
		ProductSerial:     "SN-001",
		CreatedAt:         now,
		UpdatedAt:         now,
		Steps: []prodlog.LogStep{
			{StepID: "n1", Attempts: []prodlog.Attempt{
				{Outcome: prodlog.OutcomeSuccess, SubmittedAt: now},
			}},
			{StepID: "n3", Attempts: []prodlog.Attempt{}},
		},
	}
}

func TestProductionLogRepository_CreateAssignsIDs(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)
	ctx := context.Background()

	seedInstruction(t, db)

	log := bracketLog()
	require.NoError(t, repo.Create(ctx, log))

	// New steps and attempts get ids written back into the aggregate
	require.NotEmpty(t, log.Steps[0].ID)
	require.NotEmpty(t, log.Steps[1].ID)
	require.NotZero(t, log.Steps[0].Attempts[0].ID)
}

func TestProductionLogRepository_Get(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)
	ctx := context.Background()

	seedInstruction(t, db)
	require.NoError(t, repo.Create(ctx, bracketLog()))

	got, err := repo.Get(ctx, "log1")
	require.NoError(t, err)
	require.Equal(t, "wi1", got.WorkInstructionID)
	require.Equal(t, "sam", got.Operator)
	require.Equal(t, 5, got.BatchSize)
	require.Equal(t, "SN-001", got.ProductSerial)
	require.Len(t, got.Steps, 2)
	require.Equal(t, "n1", got.Steps[0].StepID)
	require.Len(t, got.Steps[0].Attempts, 1)
	require.Equal(t, prodlog.OutcomeSuccess, got.Steps[0].Attempts[0].Outcome)
	require.Empty(t, got.Steps[1].Attempts)
	require.NotNil(t, got.Steps[1].Attempts)
}

func TestProductionLogRepository_GetNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductionLogRepository_CreateUnknownInstruction(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)

	log := bracketLog()
	log.Steps = nil
	err := repo.Create(context.Background(), log)
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestProductionLogRepository_UpdateAttempts(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)
	ctx := context.Background()

	seedInstruction(t, db)

	log := bracketLog()
	require.NoError(t, repo.Create(ctx, log))

	// Flip the stored attempt and record a new one
	log.Steps[0].Attempts[0].Outcome = prodlog.OutcomeFailure
	log.Steps[0].Attempts[0].FailureNote = "thread stripped"
	log.Steps[0].Attempts = append(log.Steps[0].Attempts, prodlog.Attempt{
		Outcome: prodlog.OutcomeSuccess, SubmittedAt: time.Now(),
	})
	log.BatchSize = 6
	require.NoError(t, repo.Update(ctx, log))

	got, err := repo.Get(ctx, "log1")
	require.NoError(t, err)
	require.Equal(t, 6, got.BatchSize)
	require.Len(t, got.Steps[0].Attempts, 2)
	require.Equal(t, prodlog.OutcomeFailure, got.Steps[0].Attempts[0].Outcome)
	require.Equal(t, "thread stripped", got.Steps[0].Attempts[0].FailureNote)
	require.Equal(t, prodlog.OutcomeSuccess, got.Steps[0].Attempts[1].Outcome)
}

func TestProductionLogRepository_UpdatePrunesSteps(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)
	ctx := context.Background()

	seedInstruction(t, db)

	log := bracketLog()
	require.NoError(t, repo.Create(ctx, log))

	// Drop the second step; its row and attempts go with it
	log.Steps = log.Steps[:1]
	require.NoError(t, repo.Update(ctx, log))

	got, err := repo.Get(ctx, "log1")
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	require.Equal(t, "n1", got.Steps[0].StepID)
}

func TestProductionLogRepository_UpdateNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)

	log := bracketLog()
	log.ID = "missing"
	log.Steps = nil
	require.ErrorIs(t, repo.Update(context.Background(), log), repository.ErrNotFound)
}

func TestProductionLogRepository_List(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)
	ctx := context.Background()

	seedInstruction(t, db)
	seedProduct(t, db, "prod2")

	first := bracketLog()
	require.NoError(t, repo.Create(ctx, first))

	second := bracketLog()
	second.ID = "log2"
	second.ProductID = "prod2"
	second.Operator = "alex"
	second.Steps = nil
	require.NoError(t, repo.Create(ctx, second))

	all, err := repo.List(ctx, prodlog.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	byProduct, err := repo.List(ctx, prodlog.ListOptions{ProductID: "prod2"})
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	require.Equal(t, "log2", byProduct[0].ID)
	require.Equal(t, 0, byProduct[0].StepCount)

	byOperator, err := repo.List(ctx, prodlog.ListOptions{Operator: "sam"})
	require.NoError(t, err)
	require.Len(t, byOperator, 1)
	require.Equal(t, 2, byOperator[0].StepCount)

	limited, err := repo.List(ctx, prodlog.ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestProductionLogRepository_Delete(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProductionLogRepository(db)
	ctx := context.Background()

	seedInstruction(t, db)
	require.NoError(t, repo.Create(ctx, bracketLog()))

	require.NoError(t, repo.Delete(ctx, "log1"))
	_, err := repo.Get(ctx, "log1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, repo.Delete(ctx, "log1"), repository.ErrNotFound)
}
