// Package ingestion archives snapshot files into a db.SnapshotStore.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"freight-curve/db"
	"freight-curve/decision/curve"
	cerrors "freight-curve/pkg/errors"
)

// DefaultBatchSize is the number of cells sent per insert.
const DefaultBatchSize = 1000

// Adapter connects snapshot parsing to a store
type Adapter struct {
	store     db.SnapshotStore
	batchSize int
	logger    zerolog.Logger
}

// NewAdapter creates a new ingestion adapter
func NewAdapter(store db.SnapshotStore) *Adapter {
	return &Adapter{store: store, batchSize: DefaultBatchSize, logger: zerolog.Nop()}
}

// WithBatchSize overrides the cell batch size.
func (a *Adapter) WithBatchSize(n int) *Adapter {
	if n > 0 {
		a.batchSize = n
	}
	return a
}

// WithLogger sets the logger.
func (a *Adapter) WithLogger(l zerolog.Logger) *Adapter {
	a.logger = l
	return a
}

// Input is one snapshot file to archive.
type Input struct {
	Label      string
	Source     string
	CapturedAt time.Time
	Data       []byte
}

// Result tracks the result of an ingestion
type Result struct {
	SnapshotID uuid.UUID     `json:"snapshot_id"`
	Hash       string        `json:"hash"`
	Rows       int           `json:"rows"`
	Cells      int           `json:"cells"`
	Batches    int           `json:"batches"`
	Duplicate  bool          `json:"duplicate"`
	Duration   time.Duration `json:"duration"`
}

// Ingest parses and archives a snapshot. A file whose bytes were already
// archived is not stored again; the existing snapshot ID is returned.
func (a *Adapter) Ingest(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()

	snap, err := curve.ParseSnapshot(curve.SnapshotMeta{
		Label:      in.Label,
		Source:     in.Source,
		CapturedAt: in.CapturedAt,
	}, in.Data)
	if err != nil {
		return nil, err
	}
	result := &Result{Hash: snap.Hash, Rows: len(snap.Table.Periods)}

	existing, err := a.store.FindByHash(ctx, snap.Hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		a.logger.Info().
			Str("source", in.Source).
			Str("snapshot_id", existing.ID.String()).
			Msg("snapshot already archived")
		result.SnapshotID = existing.ID
		result.Rows = existing.RowCount
		result.Duplicate = true
		result.Duration = time.Since(start)
		return result, nil
	}

	// Cells go in before the header: FindByHash only sees complete snapshots.
	rec := db.NewRecord(snap)
	result.SnapshotID = rec.ID
	cells := db.Cells(snap)
	for i := 0; i < len(cells); i += a.batchSize {
		end := i + a.batchSize
		if end > len(cells) {
			end = len(cells)
		}
		if err := a.store.InsertCells(ctx, cells[i:end]); err != nil {
			a.discard(rec.ID)
			return nil, fmt.Errorf("failed to insert cells at batch %d: %w", i/a.batchSize, err)
		}
		result.Batches++
		result.Cells += end - i
	}

	if err := a.store.CreateSnapshot(ctx, rec); err != nil {
		a.discard(rec.ID)
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	result.Duration = time.Since(start)
	a.logger.Info().
		Str("source", in.Source).
		Str("snapshot_id", rec.ID.String()).
		Int("cells", result.Cells).
		Dur("duration", result.Duration).
		Msg("snapshot archived")
	return result, nil
}

// Load rebuilds an archived snapshot.
func (a *Adapter) Load(ctx context.Context, id uuid.UUID) (*curve.Snapshot, error) {
	rec, err := a.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, cerrors.NewSourceNotFoundError("snapshot "+id.String(), nil)
	}
	cells, err := a.store.LoadCells(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, cerrors.NewEmptySnapshotError("snapshot " + id.String())
	}
	return db.Rebuild(rec, cells), nil
}

// discard removes whatever a failed ingest wrote. It uses a fresh context so
// a cancelled request still cleans up.
func (a *Adapter) discard(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.store.DeleteSnapshot(ctx, id); err != nil {
		a.logger.Error().Err(err).Str("snapshot_id", id.String()).Msg("failed to discard partial snapshot")
	}
}

// List returns archived snapshot headers.
func (a *Adapter) List(ctx context.Context) ([]*db.SnapshotRecord, error) {
	return a.store.ListSnapshots(ctx)
}
