// Package clickhouse provides the ClickHouse implementation of db.SnapshotStore.
// Cells are stored in a MergeTree table ordered for whole-snapshot reads.
package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"freight-curve/db"
)

// Config holds ClickHouse connection configuration
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "freight_curve",
		Username: "default",
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS curve_snapshots (
		id          UUID,
		label       String,
		source      String,
		captured_at DateTime64(3),
		hash        String,
		columns     Array(String),
		row_count   UInt32,
		created_at  DateTime64(3)
	) ENGINE = ReplacingMergeTree(created_at)
	ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS curve_cells (
		snapshot_id  UUID,
		row_index    UInt32,
		period       LowCardinality(String),
		column_index UInt32,
		column_name  LowCardinality(String),
		value        String
	) ENGINE = MergeTree
	ORDER BY (snapshot_id, row_index, column_index)`,
}

// Store implements db.SnapshotStore using ClickHouse
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

var _ db.SnapshotStore = (*Store)(nil)

// NewStore opens a ClickHouse connection
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Migrate creates the archive tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// CreateSnapshot inserts a snapshot header
func (s *Store) CreateSnapshot(ctx context.Context, rec *db.SnapshotRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO curve_snapshots (
			id, label, source, captured_at, hash, columns, row_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return s.conn.Exec(ctx, query,
		rec.ID,
		rec.Label,
		rec.Source,
		rec.CapturedAt,
		rec.Hash,
		rec.Columns,
		uint32(rec.RowCount),
		rec.CreatedAt,
	)
}

const selectSnapshot = `
	SELECT id, label, source, captured_at, hash, columns, row_count, created_at
	FROM curve_snapshots FINAL
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*db.SnapshotRecord, error) {
	var rec db.SnapshotRecord
	var rowCount uint32
	if err := row.Scan(
		&rec.ID, &rec.Label, &rec.Source, &rec.CapturedAt,
		&rec.Hash, &rec.Columns, &rowCount, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.RowCount = int(rowCount)
	return &rec, nil
}

// GetSnapshot retrieves a snapshot header by ID
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*db.SnapshotRecord, error) {
	rec, err := scanSnapshot(s.conn.QueryRow(ctx, selectSnapshot+"WHERE id = ?", id))
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
	rec, err := scanSnapshot(s.conn.QueryRow(ctx, selectSnapshot+"WHERE hash = ? ORDER BY created_at LIMIT 1", hash))
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
	rows, err := s.conn.Query(ctx, selectSnapshot+"ORDER BY captured_at DESC, created_at DESC")
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

// InsertCells inserts cells using batch insert
func (s *Store) InsertCells(ctx context.Context, cells []db.Cell) error {
	if len(cells) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO curve_cells (
			snapshot_id, row_index, period, column_index, column_name, value
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, c := range cells {
		if err := batch.Append(
			c.SnapshotID, uint32(c.RowIndex), c.Period,
			uint32(c.ColumnIndex), c.Column, c.Value,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// LoadCells reads every cell of a snapshot
func (s *Store) LoadCells(ctx context.Context, id uuid.UUID) ([]db.Cell, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT row_index, period, column_index, column_name, value
		FROM curve_cells
		WHERE snapshot_id = ?
		ORDER BY row_index, column_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load cells: %w", err)
	}
	defer rows.Close()

	var cells []db.Cell
	for rows.Next() {
		var rowIndex, colIndex uint32
		c := db.Cell{SnapshotID: id}
		if err := rows.Scan(&rowIndex, &c.Period, &colIndex, &c.Column, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		c.RowIndex, c.ColumnIndex = int(rowIndex), int(colIndex)
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// DeleteSnapshot removes a snapshot header and its cells. Mutations run
// synchronously so a retry does not see the old rows.
func (s *Store) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 1,
	}))
	if err := s.conn.Exec(ctx, `ALTER TABLE curve_snapshots DELETE WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if err := s.conn.Exec(ctx, `ALTER TABLE curve_cells DELETE WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cells: %w", err)
	}
	return nil
}
