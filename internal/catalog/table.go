package catalog

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/kuratuapp/liquidationblitz/pkg/errors"
)

// Table is an in-memory catalog, ordered as the rows appear in the file.
type Table struct {
	Rows []Row
}

// Upsert replaces any existing rows with the same id, then appends. The
// new row always lands at the end regardless of where the old one sat.
func (t *Table) Upsert(row Row) {
	t.remove(row.ID)
	t.Rows = append(t.Rows, row)
}

// Remove deletes all rows with the given id and reports whether any
// existed. Removing an absent id is a no-op.
func (t *Table) Remove(id string) bool {
	return t.remove(id)
}

func (t *Table) remove(id string) bool {
	kept := t.Rows[:0]
	removed := false
	for _, r := range t.Rows {
		if r.ID == id {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	t.Rows = kept
	return removed
}

// Find returns the row with the given id, if present.
func (t *Table) Find(id string) (Row, bool) {
	for _, r := range t.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Encode writes the catalog as CSV with the canonical header.
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		if err := w.Write(row.record()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrDegraded reports a stored catalog that could not be read back. The
// decoded table is empty and the next publish rewrites the file.
var ErrDegraded = errors.New(errors.CodeCatalogDegraded, "catalog: stored table is unreadable")

// Decode parses catalog CSV. A file that cannot be parsed degrades to an
// empty table rather than blocking publishes; the returned ErrDegraded is
// advisory so callers can log the data loss.
func Decode(data []byte) (Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil || !headerMatches(header) {
		return Table{}, ErrDegraded
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, ErrDegraded
		}
		rows = append(rows, rowFromRecord(rec))
	}
	return Table{Rows: rows}, nil
}

func headerMatches(header []string) bool {
	if len(header) != len(Columns) {
		return false
	}
	for i, name := range Columns {
		if header[i] != name {
			return false
		}
	}
	return true
}
