package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lineside/mes/internal/domain/instruction"
	"github.com/lineside/mes/internal/repository"
)

// InstructionRepository implements instruction.Repository for SQLite
type InstructionRepository struct {
	db *DB
}

// NewInstructionRepository creates a new InstructionRepository
func NewInstructionRepository(db *DB) *InstructionRepository {
	return &InstructionRepository{db: db}
}

// Create inserts a work instruction with its nodes in one transaction
func (r *InstructionRepository) Create(ctx context.Context, wi *instruction.WorkInstruction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO work_instructions (
			id, original_id, title, version, is_latest, is_active,
			collects_product_serial, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		wi.ID,
		wi.OriginalID,
		wi.Title,
		wi.Version,
		wi.IsLatest,
		wi.IsActive,
		wi.CollectsProductSerial,
		wi.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create work instruction: %w", err)
	}

	if err := insertProductLinks(ctx, tx, wi); err != nil {
		return err
	}
	for _, node := range wi.Nodes {
		if err := upsertNode(ctx, tx, wi.ID, node); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a work instruction with its ordered nodes
func (r *InstructionRepository) Get(ctx context.Context, id string) (*instruction.WorkInstruction, error) {
	query := `
		SELECT id, original_id, title, version, is_latest, is_active,
		       collects_product_serial, created_at
		FROM work_instructions
		WHERE id = ?
	`

	var wi instruction.WorkInstruction
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&wi.ID,
		&wi.OriginalID,
		&wi.Title,
		&wi.Version,
		&wi.IsLatest,
		&wi.IsActive,
		&wi.CollectsProductSerial,
		&wi.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work instruction: %w", err)
	}

	if wi.ProductIDs, err = r.loadProductIDs(ctx, id); err != nil {
		return nil, err
	}
	if wi.Nodes, err = r.loadNodes(ctx, id); err != nil {
		return nil, err
	}

	return &wi, nil
}

// GetLatestInChain retrieves the chain member flagged as latest
func (r *InstructionRepository) GetLatestInChain(ctx context.Context, originalID string) (*instruction.WorkInstruction, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM work_instructions WHERE original_id = ? AND is_latest = 1`,
		originalID,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest in chain: %w", err)
	}

	return r.Get(ctx, id)
}

// List returns summaries of all work instructions
func (r *InstructionRepository) List(ctx context.Context) ([]instruction.Summary, error) {
	return r.listWhere(ctx, "", nil)
}

// ListChain returns summaries of every member of a version chain
func (r *InstructionRepository) ListChain(ctx context.Context, originalID string) ([]instruction.Summary, error) {
	return r.listWhere(ctx, "WHERE wi.original_id = ?", []any{originalID})
}

func (r *InstructionRepository) listWhere(ctx context.Context, where string, args []any) ([]instruction.Summary, error) {
	query := fmt.Sprintf(`
		SELECT
			wi.id, wi.original_id, wi.title, wi.version,
			wi.is_latest, wi.is_active, wi.created_at,
			COUNT(n.id) as node_count
		FROM work_instructions wi
		LEFT JOIN instruction_nodes n ON n.work_instruction_id = wi.id
		%s
		GROUP BY wi.id
		ORDER BY wi.created_at DESC
	`, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list work instructions: %w", err)
	}
	defer rows.Close()

	var summaries []instruction.Summary
	for rows.Next() {
		var s instruction.Summary
		err := rows.Scan(
			&s.ID,
			&s.OriginalID,
			&s.Title,
			&s.Version,
			&s.IsLatest,
			&s.IsActive,
			&s.CreatedAt,
			&s.NodeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruction rows: %w", err)
	}

	return summaries, nil
}

// Update rewrites a work instruction and upserts its nodes. Nodes
// removed from the document are not touched here; they are deleted
// explicitly through DeleteNodes when the editor flushes its queue.
func (r *InstructionRepository) Update(ctx context.Context, wi *instruction.WorkInstruction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE work_instructions
		SET original_id = ?, title = ?, version = ?, is_latest = ?,
		    is_active = ?, collects_product_serial = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		wi.OriginalID,
		wi.Title,
		wi.Version,
		wi.IsLatest,
		wi.IsActive,
		wi.CollectsProductSerial,
		wi.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update work instruction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM work_instruction_products WHERE work_instruction_id = ?`, wi.ID); err != nil {
		return fmt.Errorf("failed to clear product links: %w", err)
	}
	if err := insertProductLinks(ctx, tx, wi); err != nil {
		return err
	}

	for _, node := range wi.Nodes {
		if err := upsertNode(ctx, tx, wi.ID, node); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a work instruction with its nodes and media links
func (r *InstructionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM node_media
		WHERE node_id IN (SELECT id FROM instruction_nodes WHERE work_instruction_id = ?)`,
		id); err != nil {
		return fmt.Errorf("failed to delete node media: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM instruction_nodes WHERE work_instruction_id = ?`, id); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete nodes: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM work_instruction_products WHERE work_instruction_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete product links: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM work_instructions WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete work instruction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkChainNotLatest clears the latest flag on every other chain member
func (r *InstructionRepository) MarkChainNotLatest(ctx context.Context, originalID, exceptID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE work_instructions SET is_latest = 0 WHERE original_id = ? AND id <> ?`,
		originalID, exceptID)
	if err != nil {
		return fmt.Errorf("failed to mark chain not latest: %w", err)
	}
	return nil
}

// MarkChainInactive clears the active flag on every other chain member
func (r *InstructionRepository) MarkChainInactive(ctx context.Context, originalID, exceptID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE work_instructions SET is_active = 0 WHERE original_id = ? AND id <> ?`,
		originalID, exceptID)
	if err != nil {
		return fmt.Errorf("failed to mark chain inactive: %w", err)
	}
	return nil
}

// DeleteNodes removes a batch of nodes and their media links
func (r *InstructionRepository) DeleteNodes(ctx context.Context, nodeIDs []string) error {
	if len(nodeIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range nodeIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM node_media WHERE node_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete node media: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM instruction_nodes WHERE id = ?`, id); err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to delete node: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *InstructionRepository) loadProductIDs(ctx context.Context, instructionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id FROM work_instruction_products WHERE work_instruction_id = ?`,
		instructionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product links: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product link: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *InstructionRepository) loadNodes(ctx context.Context, instructionID string) ([]instruction.Node, error) {
	query := `
		SELECT id, position, kind, name, body, detailed_body, part_id
		FROM instruction_nodes
		WHERE work_instruction_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, instructionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []instruction.Node
	for rows.Next() {
		var (
			id, kind                 string
			position                 int
			name, body, detail, part sql.NullString
		)
		if err := rows.Scan(&id, &position, &kind, &name, &body, &detail, &part); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		switch instruction.NodeKind(kind) {
		case instruction.KindStep:
			step := &instruction.StepNode{
				ID:           id,
				Position:     position,
				Name:         name.String,
				Body:         body.String,
				DetailedBody: detail.String,
			}
			if step.PrimaryMedia, err = r.loadMedia(ctx, id, "primary"); err != nil {
				return nil, err
			}
			if step.SecondaryMedia, err = r.loadMedia(ctx, id, "secondary"); err != nil {
				return nil, err
			}
			nodes = append(nodes, step)
		case instruction.KindPart:
			nodes = append(nodes, &instruction.PartNode{
				ID:       id,
				Position: position,
				PartID:   part.String,
			})
		default:
			return nil, fmt.Errorf("unknown node kind %q for node %s", kind, id)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node rows: %w", err)
	}

	return nodes, nil
}

func (r *InstructionRepository) loadMedia(ctx context.Context, nodeID, role string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path FROM node_media WHERE node_id = ? AND role = ? ORDER BY position ASC`,
		nodeID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to load node media: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan media path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

func insertProductLinks(ctx context.Context, tx *sql.Tx, wi *instruction.WorkInstruction) error {
	for _, productID := range wi.ProductIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO work_instruction_products (work_instruction_id, product_id) VALUES (?, ?)`,
			wi.ID, productID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to link product: %w", err)
		}
	}
	return nil
}

// upsertNode writes one node and rewrites its media rows. The kind
// switch is exhaustive over the node variants.
func upsertNode(ctx context.Context, tx *sql.Tx, instructionID string, node instruction.Node) error {
	var (
		name, body, detail, part sql.NullString
		primary, secondary       []string
	)

	switch n := node.(type) {
	case *instruction.StepNode:
		name = sql.NullString{String: n.Name, Valid: true}
		body = sql.NullString{String: n.Body, Valid: true}
		detail = sql.NullString{String: n.DetailedBody, Valid: true}
		primary = n.PrimaryMedia
		secondary = n.SecondaryMedia
	case *instruction.PartNode:
		part = sql.NullString{String: n.PartID, Valid: true}
	default:
		return fmt.Errorf("unknown node kind %q", node.Kind())
	}

	query := `
		INSERT INTO instruction_nodes (
			id, work_instruction_id, position, kind, name, body, detailed_body, part_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			name = excluded.name,
			body = excluded.body,
			detailed_body = excluded.detailed_body,
			part_id = excluded.part_id
	`
	_, err := tx.ExecContext(ctx, query,
		node.NodeID(),
		instructionID,
		node.NodePosition(),
		string(node.Kind()),
		name,
		body,
		detail,
		part,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to upsert node: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM node_media WHERE node_id = ?`, node.NodeID()); err != nil {
		return fmt.Errorf("failed to clear node media: %w", err)
	}
	for role, paths := range map[string][]string{"primary": primary, "secondary": secondary} {
		for i, path := range paths {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO node_media (node_id, role, position, path) VALUES (?, ?, ?, ?)`,
				node.NodeID(), role, i, path)
			if err != nil {
				return fmt.Errorf("failed to insert node media: %w", err)
			}
		}
	}

	return nil
}
