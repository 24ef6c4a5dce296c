package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lineside/mes/internal/domain/prodlog"
	"github.com/lineside/mes/internal/repository"
)

// ProductionLogRepository implements prodlog.Repository
// for SQLite
type ProductionLogRepository struct {
	db *DB
}

// NewProductionLogRepository creates a new ProductionLogRepository
func NewProductionLogRepository(db *DB) *ProductionLogRepository {
	return &ProductionLogRepository{db: db}
}

// Create inserts a production log with its steps and attempts. New
// steps get generated ids and new attempts get their database ids
// written back into the aggregate.
func (r *ProductionLogRepository) Create(ctx context.Context, log *prodlog.ProductionLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO production_logs (
			id, work_instruction_id, product_id, operator,
			batch_size, product_serial, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		log.ID,
		log.WorkInstructionID,
		log.ProductID,
		log.Operator,
		log.BatchSize,
		log.ProductSerial,
		log.CreatedAt,
		log.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create production log: %w", err)
	}

	if err := writeSteps(ctx, tx, log); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a production log with its steps and attempt history
func (r *ProductionLogRepository) Get(ctx context.Context, id string) (*prodlog.ProductionLog, error) {
	query := `
		SELECT id, work_instruction_id, product_id, operator,
		       batch_size, product_serial, created_at, updated_at
		FROM production_logs
		WHERE id = ?
	`

	var log prodlog.ProductionLog
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&log.ID,
		&log.WorkInstructionID,
		&log.ProductID,
		&log.Operator,
		&log.BatchSize,
		&log.ProductSerial,
		&log.CreatedAt,
		&log.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get production log: %w", err)
	}

	if log.Steps, err = r.loadSteps(ctx, id); err != nil {
		return nil, err
	}

	return &log, nil
}

// List returns production-log summaries matching the given filters
func (r *ProductionLogRepository) List(ctx context.Context, opts prodlog.ListOptions) ([]prodlog.Summary, error) {
	var (
		conds []string
		args  []any
	)
	if opts.WorkInstructionID != "" {
		conds = append(conds, "pl.work_instruction_id = ?")
		args = append(args, opts.WorkInstructionID)
	}
	if opts.ProductID != "" {
		conds = append(conds, "pl.product_id = ?")
		args = append(args, opts.ProductID)
	}
	if opts.Operator != "" {
		conds = append(conds, "pl.operator = ?")
		args = append(args, opts.Operator)
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT
			pl.id, pl.work_instruction_id, pl.product_id, pl.operator,
			pl.batch_size, pl.created_at, pl.updated_at,
			COUNT(ls.id) AS step_count
		FROM production_logs pl
		LEFT JOIN log_steps ls ON ls.production_log_id = pl.id
		%s
		GROUP BY pl.id
		ORDER BY pl.created_at DESC
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list production logs: %w", err)
	}
	defer rows.Close()

	var summaries []prodlog.Summary
	for rows.Next() {
		var s prodlog.Summary
		err := rows.Scan(
			&s.ID,
			&s.WorkInstructionID,
			&s.ProductID,
			&s.Operator,
			&s.BatchSize,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.StepCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log rows: %w", err)
	}

	return summaries, nil
}

// Update rewrites a production log. Steps absent from the aggregate
// are pruned along with their attempts; attempt rows themselves are
// never pruned for surviving steps, matching the reconciliation rules.
func (r *ProductionLogRepository) Update(ctx context.Context, log *prodlog.ProductionLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE production_logs
		SET batch_size = ?, product_serial = ?, operator = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		log.BatchSize,
		log.ProductSerial,
		log.Operator,
		log.UpdatedAt,
		log.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update production log: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if err := pruneSteps(ctx, tx, log); err != nil {
		return err
	}
	if err := writeSteps(ctx, tx, log); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a production log with its steps and attempts
func (r *ProductionLogRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM step_attempts
		WHERE log_step_id IN (SELECT id FROM log_steps WHERE production_log_id = ?)`,
		id); err != nil {
		return fmt.Errorf("failed to delete attempts: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM log_steps WHERE production_log_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete log steps: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM production_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete production log: %w", err)
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

func (r *ProductionLogRepository) loadSteps(ctx context.Context, logID string) ([]prodlog.LogStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, work_instruction_step_id
		FROM log_steps
		WHERE production_log_id = ?
		ORDER BY position ASC`,
		logID)
	if err != nil {
		return nil, fmt.Errorf("failed to load log steps: %w", err)
	}
	defer rows.Close()

	var steps []prodlog.LogStep
	for rows.Next() {
		var s prodlog.LogStep
		if err := rows.Scan(&s.ID, &s.StepID); err != nil {
			return nil, fmt.Errorf("failed to scan log step: %w", err)
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step rows: %w", err)
	}

	for i := range steps {
		if steps[i].Attempts, err = r.loadAttempts(ctx, steps[i].ID); err != nil {
			return nil, err
		}
	}

	return steps, nil
}

func (r *ProductionLogRepository) loadAttempts(ctx context.Context, stepID string) ([]prodlog.Attempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, outcome, failure_note, submitted_at
		FROM step_attempts
		WHERE log_step_id = ?
		ORDER BY id ASC`,
		stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}
	defer rows.Close()

	attempts := []prodlog.Attempt{}
	for rows.Next() {
		var a prodlog.Attempt
		if err := rows.Scan(&a.ID, &a.Outcome, &a.FailureNote, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// pruneSteps removes persisted steps no longer present in the aggregate
func pruneSteps(ctx context.Context, tx *sql.Tx, log *prodlog.ProductionLog) error {
	keep := make(map[string]bool, len(log.Steps))
	for _, s := range log.Steps {
		if s.ID != "" {
			keep[s.ID] = true
		}
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM log_steps WHERE production_log_id = ?`, log.ID)
	if err != nil {
		return fmt.Errorf("failed to load step ids: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan step id: %w", err)
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating step ids: %w", err)
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM step_attempts WHERE log_step_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete stale attempts: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM log_steps WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete stale step: %w", err)
		}
	}

	return nil
}

// writeSteps upserts every step and attempt in the aggregate, assigning
// ids to new rows in place.
func writeSteps(ctx context.Context, tx *sql.Tx, log *prodlog.ProductionLog) error {
	for i := range log.Steps {
		step := &log.Steps[i]
		if step.ID == "" {
			step.ID = uuid.NewString()
		}

		query := `
			INSERT INTO log_steps (id, production_log_id, work_instruction_step_id, position)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET position = excluded.position
		`
		_, err := tx.ExecContext(ctx, query, step.ID, log.ID, step.StepID, i)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to upsert log step: %w", err)
		}

		for j := range step.Attempts {
			if err := writeAttempt(ctx, tx, step.ID, &step.Attempts[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeAttempt(ctx context.Context, tx *sql.Tx, stepID string, a *prodlog.Attempt) error {
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now().UTC()
	}

	if a.ID == 0 {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO step_attempts (log_step_id, outcome, failure_note, submitted_at)
			VALUES (?, ?, ?, ?)`,
			stepID, a.Outcome, a.FailureNote, a.SubmittedAt)
		if err != nil {
			return fmt.Errorf("failed to insert attempt: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get attempt id: %w", err)
		}
		a.ID = id
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE step_attempts
		SET outcome = ?, failure_note = ?, submitted_at = ?
		WHERE id = ? AND log_step_id = ?`,
		a.Outcome, a.FailureNote, a.SubmittedAt, a.ID, stepID)
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}
