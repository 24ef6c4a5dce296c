package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lineside/mes/internal/domain/product"
	"github.com/lineside/mes/internal/repository"
)

// ProductRepository implements product.Repository for SQLite
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	query := `
		INSERT INTO products (id, name, is_active, created_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.IsActive, p.CreatedAt); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Get retrieves a product by ID
func (r *ProductRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	query := `
		SELECT id, name, is_active, created_at
		FROM products
		WHERE id = ?
	`

	var p product.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.IsActive, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}

// List returns all products
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	query := `
		SELECT id, name, is_active, created_at
		FROM products
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	return products, nil
}

// Update modifies an existing product
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	query := `
		UPDATE products
		SET name = ?, is_active = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, p.Name, p.IsActive, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireRowAffected(result)
}

// Delete removes a product
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return requireRowAffected(result)
}

// PartRepository implements product.PartRepository for SQLite
type PartRepository struct {
	db *DB
}

// NewPartRepository creates a new PartRepository
func NewPartRepository(db *DB) *PartRepository {
	return &PartRepository{db: db}
}

// Create inserts a new part definition
func (r *PartRepository) Create(ctx context.Context, part *product.PartDefinition) error {
	query := `
		INSERT INTO part_definitions (id, part_number, part_name)
		VALUES (?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, part.ID, part.PartNumber, part.PartName); err != nil {
		return fmt.Errorf("failed to create part definition: %w", err)
	}
	return nil
}

// Get retrieves a part definition by ID
func (r *PartRepository) Get(ctx context.Context, id string) (*product.PartDefinition, error) {
	query := `
		SELECT id, part_number, part_name
		FROM part_definitions
		WHERE id = ?
	`

	var part product.PartDefinition
	err := r.db.QueryRowContext(ctx, query, id).Scan(&part.ID, &part.PartNumber, &part.PartName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get part definition: %w", err)
	}

	return &part, nil
}

// List returns all part definitions
func (r *PartRepository) List(ctx context.Context) ([]product.PartDefinition, error) {
	query := `
		SELECT id, part_number, part_name
		FROM part_definitions
		ORDER BY part_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list part definitions: %w", err)
	}
	defer rows.Close()

	var parts []product.PartDefinition
	for rows.Next() {
		var part product.PartDefinition
		if err := rows.Scan(&part.ID, &part.PartNumber, &part.PartName); err != nil {
			return nil, fmt.Errorf("failed to scan part definition: %w", err)
		}
		parts = append(parts, part)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating part rows: %w", err)
	}

	return parts, nil
}

// Update modifies an existing part definition
func (r *PartRepository) Update(ctx context.Context, part *product.PartDefinition) error {
	query := `
		UPDATE part_definitions
		SET part_number = ?, part_name = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, part.PartNumber, part.PartName, part.ID)
	if err != nil {
		return fmt.Errorf("failed to update part definition: %w", err)
	}
	return requireRowAffected(result)
}

// Delete removes a part definition
func (r *PartRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM part_definitions WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete part definition: %w", err)
	}
	return requireRowAffected(result)
}

// requireRowAffected converts a zero-row write into ErrNotFound.
func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
