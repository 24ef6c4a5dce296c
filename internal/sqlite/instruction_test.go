package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lineside/mes/internal/domain/instruction"
	"github.com/lineside/mes/internal/domain/product"
	"github.com/lineside/mes/internal/repository"
)

func seedProduct(t *testing.T, db *DB, id string) {
	t.Helper()
	repo := NewProductRepository(db)
	err := repo.Create(context.Background(), &product.Product{
		ID: id, Name: id, IsActive: true, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

func seedPart(t *testing.T, db *DB, id string) {
	t.Helper()
	repo := NewPartRepository(db)
	err := repo.Create(context.Background(), &product.PartDefinition{
		ID: id, PartNumber: "BLT-M6-20", PartName: "M6 bolt",
	})
	require.NoError(t, err)
}

func bracketInstruction() *instruction.WorkInstruction {
	return &instruction.WorkInstruction{
		ID:                    "wi1",
		OriginalID:            "wi1",
		Title:                 "Assemble bracket",
		Version:               "1.0",
		IsLatest:              true,
		IsActive:              true,
		CollectsProductSerial: true,
		CreatedAt:             time.Now().UTC().Truncate(time.Second),
		ProductIDs:            []string{"prod1"},
		Nodes: []instruction.Node{
			&instruction.StepNode{
				ID:             "n1",
				Position:       1,
				Name:           "Torque bolts",
				Body:           "Torque to 12 Nm",
				DetailedBody:   "Use the calibrated wrench",
				PrimaryMedia:   []string{"a.png", "b.png"},
				SecondaryMedia: []string{"c.mp4"},
			},
			&instruction.PartNode{ID: "n2", Position: 2, PartID: "part1"},
			&instruction.StepNode{ID: "n3", Position: 3, Name: "Inspect"},
		},
	}
}

func TestInstructionRepository_CreateAndGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")
	seedPart(t, db, "part1")

	require.NoError(t, repo.Create(ctx, bracketInstruction()))

	got, err := repo.Get(ctx, "wi1")
	require.NoError(t, err)
	require.Equal(t, "Assemble bracket", got.Title)
	require.Equal(t, "wi1", got.OriginalID)
	require.True(t, got.CollectsProductSerial)
	require.Equal(t, []string{"prod1"}, got.ProductIDs)
	require.Len(t, got.Nodes, 3)

	step, ok := got.Nodes[0].(*instruction.StepNode)
	require.True(t, ok)
	require.Equal(t, "Torque bolts", step.Name)
	require.Equal(t, "Use the calibrated wrench", step.DetailedBody)
	require.Equal(t, []string{"a.png", "b.png"}, step.PrimaryMedia)
	require.Equal(t, []string{"c.mp4"}, step.SecondaryMedia)

	part, ok := got.Nodes[1].(*instruction.PartNode)
	require.True(t, ok)
	require.Equal(t, "part1", part.PartID)
	require.Equal(t, 2, part.Position)
}

func TestInstructionRepository_GetNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInstructionRepository_CreateUnknownProduct(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)

	wi := bracketInstruction()
	wi.Nodes = nil
	err := repo.Create(context.Background(), wi)
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestInstructionRepository_Update(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")
	seedProduct(t, db, "prod2")

	wi := bracketInstruction()
	wi.Nodes = wi.Nodes[:1]
	require.NoError(t, repo.Create(ctx, wi))

	step := wi.Nodes[0].(*instruction.StepNode)
	step.Name = "Torque bolts to spec"
	step.PrimaryMedia = []string{"d.png"}
	wi.Title = "Assemble bracket rev B"
	wi.ProductIDs = []string{"prod2"}
	wi.Nodes = append(wi.Nodes, &instruction.StepNode{ID: "n9", Position: 2, Name: "Label"})
	require.NoError(t, repo.Update(ctx, wi))

	got, err := repo.Get(ctx, "wi1")
	require.NoError(t, err)
	require.Equal(t, "Assemble bracket rev B", got.Title)
	require.Equal(t, []string{"prod2"}, got.ProductIDs)
	require.Len(t, got.Nodes, 2)

	updated := got.Nodes[0].(*instruction.StepNode)
	require.Equal(t, "Torque bolts to spec", updated.Name)
	require.Equal(t, []string{"d.png"}, updated.PrimaryMedia)
	require.Equal(t, "Label", got.Nodes[1].(*instruction.StepNode).Name)
}

func TestInstructionRepository_UpdateNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)

	wi := bracketInstruction()
	wi.ID = "missing"
	wi.ProductIDs = nil
	wi.Nodes = nil
	require.ErrorIs(t, repo.Update(context.Background(), wi), repository.ErrNotFound)
}

func TestInstructionRepository_GetLatestInChain(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")

	v1 := bracketInstruction()
	v1.IsLatest = false
	v1.Nodes = nil
	require.NoError(t, repo.Create(ctx, v1))

	v2 := bracketInstruction()
	v2.ID = "wi2"
	v2.Version = "1.1"
	v2.Nodes = nil
	require.NoError(t, repo.Create(ctx, v2))

	latest, err := repo.GetLatestInChain(ctx, "wi1")
	require.NoError(t, err)
	require.Equal(t, "wi2", latest.ID)
	require.Equal(t, "1.1", latest.Version)

	_, err = repo.GetLatestInChain(ctx, "unknown")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInstructionRepository_ListAndListChain(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")
	seedPart(t, db, "part1")

	v1 := bracketInstruction()
	v1.IsLatest = false
	require.NoError(t, repo.Create(ctx, v1))

	other := bracketInstruction()
	other.ID = "wi9"
	other.OriginalID = "wi9"
	other.Title = "Pack kit"
	other.Nodes = nil
	require.NoError(t, repo.Create(ctx, other))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	chain, err := repo.ListChain(ctx, "wi1")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.Equal(t, "wi1", chain[0].ID)
	require.Equal(t, 3, chain[0].NodeCount)
}

func TestInstructionRepository_MarkChainFlags(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")

	v1 := bracketInstruction()
	v1.Nodes = nil
	require.NoError(t, repo.Create(ctx, v1))

	v2 := bracketInstruction()
	v2.ID = "wi2"
	v2.Version = "1.1"
	v2.Nodes = nil
	require.NoError(t, repo.Create(ctx, v2))

	require.NoError(t, repo.MarkChainNotLatest(ctx, "wi1", "wi2"))
	require.NoError(t, repo.MarkChainInactive(ctx, "wi1", "wi2"))

	old, err := repo.Get(ctx, "wi1")
	require.NoError(t, err)
	require.False(t, old.IsLatest)
	require.False(t, old.IsActive)

	kept, err := repo.Get(ctx, "wi2")
	require.NoError(t, err)
	require.True(t, kept.IsLatest)
	require.True(t, kept.IsActive)
}

func TestInstructionRepository_DeleteNodes(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")
	seedPart(t, db, "part1")
	require.NoError(t, repo.Create(ctx, bracketInstruction()))

	require.NoError(t, repo.DeleteNodes(ctx, []string{"n1", "n2"}))

	got, err := repo.Get(ctx, "wi1")
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	require.Equal(t, "n3", got.Nodes[0].NodeID())

	// Empty batch is a no-op
	require.NoError(t, repo.DeleteNodes(ctx, nil))
}

func TestInstructionRepository_DeleteNodesReferencedByLog(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")
	seedPart(t, db, "part1")
	require.NoError(t, repo.Create(ctx, bracketInstruction()))

	_, err := db.ExecContext(ctx,
		`INSERT INTO production_logs (id, work_instruction_id, product_id, operator, batch_size)
		 VALUES (?, ?, ?, ?, ?)`,
		"log1", "wi1", "prod1", "sam", 1)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO log_steps (id, production_log_id, work_instruction_step_id, position)
		 VALUES (?, ?, ?, ?)`,
		"ls1", "log1", "n1", 0)
	require.NoError(t, err)

	require.ErrorIs(t, repo.DeleteNodes(ctx, []string{"n1"}), repository.ErrForeignKeyViolation)
}

func TestInstructionRepository_Delete(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")
	seedPart(t, db, "part1")
	require.NoError(t, repo.Create(ctx, bracketInstruction()))

	require.NoError(t, repo.Delete(ctx, "wi1"))
	_, err := repo.Get(ctx, "wi1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, repo.Delete(ctx, "wi1"), repository.ErrNotFound)
}

func TestInstructionRepository_DeleteInUse(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstructionRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "prod1")
	seedPart(t, db, "part1")
	require.NoError(t, repo.Create(ctx, bracketInstruction()))

	_, err := db.ExecContext(ctx,
		`INSERT INTO production_logs (id, work_instruction_id, product_id, operator, batch_size)
		 VALUES (?, ?, ?, ?, ?)`,
		"log1", "wi1", "prod1", "sam", 1)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO log_steps (id, production_log_id, work_instruction_step_id, position)
		 VALUES (?, ?, ?, ?)`,
		"ls1", "log1", "n1", 0)
	require.NoError(t, err)

	require.ErrorIs(t, repo.Delete(ctx, "wi1"), repository.ErrForeignKeyViolation)
}
