package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-curve/db"
	cerrors "freight-curve/pkg/errors"
)

type memStore struct {
	snapshots []*db.SnapshotRecord
	cells     map[uuid.UUID][]db.Cell
	batches   int
	deleted   []uuid.UUID

	failBatch  int // 1-based batch that fails; 0 never fails
	failCreate bool
}

func newMemStore() *memStore {
	return &memStore{cells: make(map[uuid.UUID][]db.Cell)}
}

func (m *memStore) CreateSnapshot(_ context.Context, rec *db.SnapshotRecord) error {
	if m.failCreate {
		return errors.New("insert header failed")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.snapshots = append(m.snapshots, rec)
	return nil
}

func (m *memStore) InsertCells(_ context.Context, cells []db.Cell) error {
	m.batches++
	if m.batches == m.failBatch {
		return errors.New("insert cells failed")
	}
	for _, c := range cells {
		m.cells[c.SnapshotID] = append(m.cells[c.SnapshotID], c)
	}
	return nil
}

func (m *memStore) ListSnapshots(context.Context) ([]*db.SnapshotRecord, error) {
	return m.snapshots, nil
}

func (m *memStore) GetSnapshot(_ context.Context, id uuid.UUID) (*db.SnapshotRecord, error) {
	for _, s := range m.snapshots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByHash(_ context.Context, hash string) (*db.SnapshotRecord, error) {
	for _, s := range m.snapshots {
		if s.Hash == hash {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memStore) LoadCells(_ context.Context, id uuid.UUID) ([]db.Cell, error) {
	return m.cells[id], nil
}

func (m *memStore) DeleteSnapshot(_ context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	delete(m.cells, id)
	kept := m.snapshots[:0]
	for _, s := range m.snapshots {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	m.snapshots = kept
	return nil
}

func (m *memStore) Close() error { return nil }

const octCSV = `,TD3C,TD3C__1,TD20,TD20__1
JUN25,100,500,120,1500
JUL25,98,490,118,1480
`

func TestIngestBatchesAndDeduplicates(t *testing.T) {
	store := newMemStore()
	a := NewAdapter(store).WithBatchSize(3)
	ctx := context.Background()
	in := Input{Label: "Oct", Source: "oct.csv", CapturedAt: time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC), Data: []byte(octCSV)}

	res, err := a.Ingest(ctx, in)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 8, res.Cells)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 3, store.batches)

	again, err := a.Ingest(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, res.SnapshotID, again.SnapshotID)
	assert.Len(t, store.snapshots, 1)

	snap, err := a.Load(ctx, res.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, "Oct", snap.Meta.Label)
	assert.Equal(t, []string{"JUN25", "JUL25"}, snap.Table.Periods)
	v, ok := snap.Table.Cell("JUL25", "TD20__1")
	assert.True(t, ok)
	assert.Equal(t, "1480", v)

	list, err := a.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestIngestErrors(t *testing.T) {
	a := NewAdapter(newMemStore())
	ctx := context.Background()

	_, err := a.Ingest(ctx, Input{Source: "empty.csv"})
	assert.True(t, errors.Is(err, cerrors.ErrEmptySnapshot))

	_, err = a.Load(ctx, uuid.New())
	assert.True(t, errors.Is(err, cerrors.ErrSourceNotFound))
}

func TestIngestFailedBatchLeavesNothingBehind(t *testing.T) {
	store := newMemStore()
	store.failBatch = 2
	a := NewAdapter(store).WithBatchSize(3)
	ctx := context.Background()
	in := Input{Label: "Oct", Source: "oct.csv", Data: []byte(octCSV)}

	_, err := a.Ingest(ctx, in)
	require.ErrorContains(t, err, "batch 1")
	assert.Empty(t, store.snapshots)
	assert.Empty(t, store.cells)
	require.Len(t, store.deleted, 1)

	// a retry archives the snapshot in full instead of reporting a duplicate
	store.failBatch = 0
	res, err := a.Ingest(ctx, in)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 8, res.Cells)

	snap, err := a.Load(ctx, res.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, []string{"JUN25", "JUL25"}, snap.Table.Periods)
}

func TestIngestFailedHeaderDiscardsCells(t *testing.T) {
	store := newMemStore()
	store.failCreate = true
	a := NewAdapter(store)

	_, err := a.Ingest(context.Background(), Input{Source: "oct.csv", Data: []byte(octCSV)})
	require.ErrorContains(t, err, "failed to create snapshot")
	assert.Empty(t, store.cells)
	assert.Len(t, store.deleted, 1)
}

func TestLoadWithoutCellsIsEmpty(t *testing.T) {
	store := newMemStore()
	rec := &db.SnapshotRecord{ID: uuid.New(), Label: "Oct", Hash: "abc"}
	require.NoError(t, store.CreateSnapshot(context.Background(), rec))

	_, err := NewAdapter(store).Load(context.Background(), rec.ID)
	assert.True(t, errors.Is(err, cerrors.ErrEmptySnapshot))
}
