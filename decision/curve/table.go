package curve

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	cerrors "freight-curve/pkg/errors"
)

// Table is a period-indexed grid of raw cells, as read from one snapshot file.
type Table struct {
	Name    string
	Columns []string
	Periods []string

	cells    [][]string
	colIndex map[string]int
	rowIndex map[string]int
}

// NewTable builds a table from a header and rows whose first cell is the period label.
// The first occurrence of a duplicated column or period wins.
func NewTable(name string, columns []string, rows [][]string) *Table {
	t := &Table{
		Name:     name,
		colIndex: make(map[string]int, len(columns)),
		rowIndex: make(map[string]int, len(rows)),
	}
	for i, c := range columns {
		t.Columns = append(t.Columns, c)
		if _, dup := t.colIndex[c]; !dup {
			t.colIndex[c] = i
		}
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		period := strings.TrimSpace(row[0])
		if _, dup := t.rowIndex[period]; dup {
			continue
		}
		t.rowIndex[period] = len(t.cells)
		t.Periods = append(t.Periods, period)
		t.cells = append(t.cells, row[1:])
	}
	return t
}

// HasColumn reports whether the schema contains a column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIndex[name]
	return ok
}

// HasPeriod reports whether a period label is present in the index.
func (t *Table) HasPeriod(period string) bool {
	_, ok := t.rowIndex[period]
	return ok
}

// Cell returns the raw cell text. Short rows read as empty cells.
func (t *Table) Cell(period, column string) (string, bool) {
	r, ok := t.rowIndex[period]
	if !ok {
		return "", false
	}
	c, ok := t.colIndex[column]
	if !ok {
		return "", false
	}
	row := t.cells[r]
	if c >= len(row) {
		return "", true
	}
	return row[c], true
}

// Rows returns each row with its period label in front, in file order.
func (t *Table) Rows() [][]string {
	out := make([][]string, 0, len(t.Periods))
	for i, p := range t.Periods {
		row := make([]string, 0, len(t.Columns)+1)
		row = append(row, p)
		row = append(row, t.cells[i]...)
		out = append(out, row)
	}
	return out
}

// ReadCSV parses a snapshot file. The first column is the period index and
// the header row names the remaining columns.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, cerrors.NewEmptySnapshotError(name)
	}
	if err != nil {
		return nil, cerrors.NewSourceUnreadableError(name, err)
	}
	if len(header) < 2 {
		return nil, cerrors.NewMissingIndexError(name)
	}
	columns := make([]string, 0, len(header)-1)
	for _, h := range header[1:] {
		columns = append(columns, strings.TrimSpace(h))
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, cerrors.NewSourceUnreadableError(name, err)
	}
	if len(records) == 0 {
		return nil, cerrors.NewEmptySnapshotError(name)
	}
	return NewTable(name, columns, records), nil
}

// SnapshotMeta identifies one dated capture.
type SnapshotMeta struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label"`
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source"`
}

// Snapshot is a parsed table together with its capture metadata and the
// content hash of the bytes it was parsed from.
type Snapshot struct {
	Meta  SnapshotMeta
	Table *Table
	Hash  string
}

// ParseSnapshot reads a CSV snapshot from raw bytes.
func ParseSnapshot(meta SnapshotMeta, data []byte) (*Snapshot, error) {
	table, err := ReadCSV(meta.Source, strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}
	return &Snapshot{Meta: meta, Table: table, Hash: HashBytes(data)}, nil
}

// HashBytes returns the hex SHA-256 of a snapshot's source bytes.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashTable hashes a table's schema and cells, for snapshots that were not read from bytes.
func HashTable(t *Table) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(t.Columns, "\x1f"))
	for _, row := range t.Rows() {
		sb.WriteString("\x1e")
		sb.WriteString(strings.Join(row, "\x1f"))
	}
	return HashBytes([]byte(sb.String()))
}
