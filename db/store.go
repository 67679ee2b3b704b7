// Package db defines the snapshot archive shared by the ClickHouse and
// Postgres backends. Only raw input cells are archived.
package db

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"freight-curve/decision/curve"
)

// SnapshotRecord is the archived header of one snapshot file.
type SnapshotRecord struct {
	ID         uuid.UUID `ch:"id" json:"id"`
	Label      string    `ch:"label" json:"label"`
	Source     string    `ch:"source" json:"source"`
	CapturedAt time.Time `ch:"captured_at" json:"captured_at"`
	Hash       string    `ch:"hash" json:"hash"`
	Columns    []string  `ch:"columns" json:"columns"`
	RowCount   int       `ch:"row_count" json:"row_count"`
	CreatedAt  time.Time `ch:"created_at" json:"created_at"`
}

// Meta returns the snapshot metadata carried by the record.
func (r *SnapshotRecord) Meta() curve.SnapshotMeta {
	return curve.SnapshotMeta{
		ID:         r.ID,
		Label:      r.Label,
		CapturedAt: r.CapturedAt,
		Source:     r.Source,
	}
}

// Cell is one raw value of a snapshot, addressed by row and column position.
type Cell struct {
	SnapshotID  uuid.UUID
	RowIndex    int
	Period      string
	ColumnIndex int
	Column      string
	Value       string
}

// SnapshotStore persists snapshots. Get and FindByHash return nil, nil when
// nothing matches. Cells are written before their header, so a header
// implies a complete snapshot. DeleteSnapshot removes the header and cells.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, rec *SnapshotRecord) error
	InsertCells(ctx context.Context, cells []Cell) error
	ListSnapshots(ctx context.Context) ([]*SnapshotRecord, error)
	GetSnapshot(ctx context.Context, id uuid.UUID) (*SnapshotRecord, error)
	FindByHash(ctx context.Context, hash string) (*SnapshotRecord, error)
	LoadCells(ctx context.Context, id uuid.UUID) ([]Cell, error)
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error
	Close() error
}

// NewRecord builds the archive header for a parsed snapshot.
func NewRecord(s *curve.Snapshot) *SnapshotRecord {
	return &SnapshotRecord{
		ID:         s.Meta.ID,
		Label:      s.Meta.Label,
		Source:     s.Meta.Source,
		CapturedAt: s.Meta.CapturedAt,
		Hash:       s.Hash,
		Columns:    append([]string(nil), s.Table.Columns...),
		RowCount:   len(s.Table.Periods),
	}
}

// Cells flattens a snapshot table into archive cells. Cells missing from
// short rows are not emitted.
func Cells(s *curve.Snapshot) []Cell {
	var cells []Cell
	for r, row := range s.Table.Rows() {
		for c, value := range row[1:] {
			if c >= len(s.Table.Columns) {
				break
			}
			cells = append(cells, Cell{
				SnapshotID:  s.Meta.ID,
				RowIndex:    r,
				Period:      row[0],
				ColumnIndex: c,
				Column:      s.Table.Columns[c],
				Value:       value,
			})
		}
	}
	return cells
}

// Rebuild reassembles a snapshot from its header and cells.
func Rebuild(rec *SnapshotRecord, cells []Cell) *curve.Snapshot {
	sorted := append([]Cell(nil), cells...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].RowIndex != sorted[j].RowIndex {
			return sorted[i].RowIndex < sorted[j].RowIndex
		}
		return sorted[i].ColumnIndex < sorted[j].ColumnIndex
	})

	var rows [][]string
	last := -1
	for _, c := range sorted {
		if c.RowIndex != last {
			rows = append(rows, []string{c.Period})
			last = c.RowIndex
		}
		row := rows[len(rows)-1]
		for len(row) <= c.ColumnIndex {
			row = append(row, "")
		}
		row = append(row, c.Value)
		rows[len(rows)-1] = row
	}

	meta := rec.Meta()
	return &curve.Snapshot{
		Meta:  meta,
		Table: curve.NewTable(meta.Source, rec.Columns, rows),
		Hash:  rec.Hash,
	}
}
