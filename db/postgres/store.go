// Package postgres provides the Postgres implementation of db.SnapshotStore.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"freight-curve/db"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS curve_snapshots (
		id          UUID PRIMARY KEY,
		label       TEXT NOT NULL,
		source      TEXT NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL,
		hash        TEXT NOT NULL,
		columns     TEXT[] NOT NULL,
		row_count   INTEGER NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS curve_snapshots_hash_idx ON curve_snapshots (hash)`,
	`CREATE TABLE IF NOT EXISTS curve_cells (
		snapshot_id  UUID NOT NULL,
		row_index    INTEGER NOT NULL,
		period       TEXT NOT NULL,
		column_index INTEGER NOT NULL,
		column_name  TEXT NOT NULL,
		value        TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, row_index, column_index)
	)`,
}

// Store implements db.SnapshotStore on database/sql with the lib/pq driver.
type Store struct {
	db *sql.DB
}

var _ db.SnapshotStore = (*Store)(nil)

// Open connects using a postgres:// DSN.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: conn}, nil
}

// NewStore wraps an existing handle.
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the archive tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSnapshot inserts a snapshot header
func (s *Store) CreateSnapshot(ctx context.Context, rec *db.SnapshotRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO curve_snapshots (
			id, label, source, captured_at, hash, columns, row_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rec.ID.String(), rec.Label, rec.Source, rec.CapturedAt,
		rec.Hash, pq.Array(rec.Columns), rec.RowCount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

const selectSnapshot = `
	SELECT id, label, source, captured_at, hash, columns, row_count, created_at
	FROM curve_snapshots
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*db.SnapshotRecord, error) {
	var rec db.SnapshotRecord
	var id string
	if err := row.Scan(
		&id, &rec.Label, &rec.Source, &rec.CapturedAt,
		&rec.Hash, pq.Array(&rec.Columns), &rec.RowCount, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot id %q: %w", id, err)
	}
	rec.ID = parsed
	return &rec, nil
}

// GetSnapshot retrieves a snapshot header by ID
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*db.SnapshotRecord, error) {
	rec, err := scanSnapshot(s.db.QueryRowContext(ctx, selectSnapshot+"WHERE id = $1", id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return rec, nil
}

// FindByHash finds a snapshot by its content hash
func (s *Store) FindByHash(ctx context.Context, hash string) (*db.SnapshotRecord, error) {
	rec, err := scanSnapshot(s.db.QueryRowContext(ctx, selectSnapshot+"WHERE hash = $1 ORDER BY created_at LIMIT 1", hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshot by hash: %w", err)
	}
	return rec, nil
}

// ListSnapshots lists archived snapshots, newest capture first
func (s *Store) ListSnapshots(ctx context.Context) ([]*db.SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectSnapshot+"ORDER BY captured_at DESC, created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*db.SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertCells copies cells in one transaction using COPY FROM.
func (s *Store) InsertCells(ctx context.Context, cells []db.Cell) error {
	if len(cells) == 0 {
		return nil
	}

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn("curve_cells",
		"snapshot_id", "row_index", "period", "column_index", "column_name", "value"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, c := range cells {
		if _, err := stmt.ExecContext(ctx,
			c.SnapshotID.String(), c.RowIndex, c.Period,
			c.ColumnIndex, c.Column, c.Value,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy cell: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}
	return txn.Commit()
}

// LoadCells reads every cell of a snapshot
func (s *Store) LoadCells(ctx context.Context, id uuid.UUID) ([]db.Cell, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_index, period, column_index, column_name, value
		FROM curve_cells
		WHERE snapshot_id = $1
		ORDER BY row_index, column_index
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load cells: %w", err)
	}
	defer rows.Close()

	var cells []db.Cell
	for rows.Next() {
		c := db.Cell{SnapshotID: id}
		if err := rows.Scan(&c.RowIndex, &c.Period, &c.ColumnIndex, &c.Column, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// DeleteSnapshot removes a snapshot header and its cells in one transaction.
func (s *Store) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	if _, err := txn.ExecContext(ctx, `DELETE FROM curve_cells WHERE snapshot_id = $1`, id.String()); err != nil {
		return fmt.Errorf("failed to delete cells: %w", err)
	}
	if _, err := txn.ExecContext(ctx, `DELETE FROM curve_snapshots WHERE id = $1`, id.String()); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return txn.Commit()
}
