// Command seed populates a development database with an admin user, an
// operator, a demo product and a small work instruction.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/lineside/mes/internal/config"
	"github.com/lineside/mes/internal/domain/editor"
	"github.com/lineside/mes/internal/domain/instruction"
	"github.com/lineside/mes/internal/domain/product"
	"github.com/lineside/mes/internal/domain/user"
	"github.com/lineside/mes/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := context.Background()

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	userSvc := user.NewService(sqlite.NewUserRepository(db), sqlite.NewPreferenceRepository(db), logger)
	if _, err := userSvc.Create(ctx, "admin", "admin-dev-pass", user.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}
	if _, err := userSvc.Create(ctx, "operator", "operator-dev-pass", user.RoleOperator); err != nil {
		return fmt.Errorf("creating operator: %w", err)
	}

	productRepo := sqlite.NewProductRepository(db)
	partRepo := sqlite.NewPartRepository(db)
	productSvc := product.NewService(productRepo, partRepo, logger)

	p, err := productSvc.Create(ctx, product.CreateRequest{Name: "Bracket assembly", IsActive: true})
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	part, err := productSvc.CreatePart(ctx, product.PartCreateRequest{
		PartNumber: "BLT-M6-20",
		PartName:   "M6 hex bolt, 20mm",
	})
	if err != nil {
		return fmt.Errorf("creating part: %w", err)
	}

	ed := editor.New(sqlite.NewInstructionRepository(db), nil, logger)
	ed.StartNew("Assemble bracket", []string{p.ID})
	ed.Document().CollectsProductSerial = true

	steps := []instruction.Node{
		&instruction.StepNode{
			ID:   uuid.NewString(),
			Name: "Deburr edges",
			Body: "Remove sharp edges from both flanges.",
		},
		&instruction.PartNode{ID: uuid.NewString(), PartID: part.ID},
		&instruction.StepNode{
			ID:           uuid.NewString(),
			Name:         "Torque bolts",
			Body:         "Torque all four bolts to 12 Nm.",
			DetailedBody: "Use the calibrated wrench; recheck after 30 seconds.",
		},
	}
	for _, node := range steps {
		if err := ed.AddNode(node); err != nil {
			return fmt.Errorf("adding node: %w", err)
		}
	}

	if err := ed.Save(ctx); err != nil {
		return fmt.Errorf("saving work instruction: %w", err)
	}

	logger.Info("seeded development data",
		"product", p.ID,
		"work_instruction", ed.Document().ID,
	)
	return nil
}
