package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. Kept as a single statement batch;
// the server applies it on startup and tests apply it to in-memory
// databases.
func (db *DB) RunMigrations() error {
	migration := `
-- User accounts
CREATE TABLE users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL CHECK(role IN ('operator', 'admin')),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Per-user UI preferences (active product, batch size, dark mode)
CREATE TABLE preferences (
    user_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (user_id, key),
    FOREIGN KEY (user_id) REFERENCES users(id)
);

-- Products
CREATE TABLE products (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Part definitions referenced by part nodes
CREATE TABLE part_definitions (
    id TEXT PRIMARY KEY,
    part_number TEXT NOT NULL,
    part_name TEXT NOT NULL
);

-- Work instructions; original_id groups a version chain
CREATE TABLE work_instructions (
    id TEXT PRIMARY KEY,
    original_id TEXT NOT NULL,
    title TEXT NOT NULL,
    version TEXT NOT NULL,
    is_latest INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 0,
    collects_product_serial INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_instruction_chain ON work_instructions(original_id);

-- Products a work instruction applies to
CREATE TABLE work_instruction_products (
    work_instruction_id TEXT NOT NULL,
    product_id TEXT NOT NULL,
    PRIMARY KEY (work_instruction_id, product_id),
    FOREIGN KEY (work_instruction_id) REFERENCES work_instructions(id),
    FOREIGN KEY (product_id) REFERENCES products(id)
);

-- Ordered heterogeneous nodes (steps and part installs)
CREATE TABLE instruction_nodes (
    id TEXT PRIMARY KEY,
    work_instruction_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('step', 'part')),
    name TEXT,
    body TEXT,
    detailed_body TEXT,
    part_id TEXT,
    FOREIGN KEY (work_instruction_id) REFERENCES work_instructions(id),
    FOREIGN KEY (part_id) REFERENCES part_definitions(id)
);
CREATE INDEX idx_instruction_nodes ON instruction_nodes(work_instruction_id, position);

-- Media file references on step nodes
CREATE TABLE node_media (
    node_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK(role IN ('primary', 'secondary')),
    position INTEGER NOT NULL,
    path TEXT NOT NULL,
    PRIMARY KEY (node_id, role, position),
    FOREIGN KEY (node_id) REFERENCES instruction_nodes(id)
);

-- Production logs
CREATE TABLE production_logs (
    id TEXT PRIMARY KEY,
    work_instruction_id TEXT NOT NULL,
    product_id TEXT NOT NULL,
    operator TEXT NOT NULL DEFAULT '',
    batch_size INTEGER NOT NULL,
    product_serial TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (work_instruction_id) REFERENCES work_instructions(id),
    FOREIGN KEY (product_id) REFERENCES products(id)
);
CREATE INDEX idx_log_instruction ON production_logs(work_instruction_id);
CREATE INDEX idx_log_product ON production_logs(product_id);

-- Per-step records within a production log
CREATE TABLE log_steps (
    id TEXT PRIMARY KEY,
    production_log_id TEXT NOT NULL,
    work_instruction_step_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    FOREIGN KEY (production_log_id) REFERENCES production_logs(id),
    FOREIGN KEY (work_instruction_step_id) REFERENCES instruction_nodes(id)
);
CREATE INDEX idx_step_log ON log_steps(production_log_id, position);

-- Attempt history per log step; integer ids so zero means unpersisted
CREATE TABLE step_attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    log_step_id TEXT NOT NULL,
    outcome TEXT NOT NULL CHECK(outcome IN ('success', 'failure', 'undecided')),
    failure_note TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMP NOT NULL,
    FOREIGN KEY (log_step_id) REFERENCES log_steps(id)
);
CREATE INDEX idx_attempt_step ON step_attempts(log_step_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
