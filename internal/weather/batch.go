package weather

import (
	"strings"
	"time"
)

// Batch is the set of records one run produced for a single table.
// Columns hold every record key in first-seen order.
type Batch struct {
	Columns []string
	Rows    []*Record
}

// NewBatch builds a batch from rows, collecting their columns.
func NewBatch(rows []*Record) *Batch {
	b := &Batch{Rows: rows}
	for _, r := range rows {
		for _, k := range r.Keys() {
			b.AddColumn(k)
		}
	}
	return b
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// HasColumn reports whether the batch carries name (case-insensitive).
func (b *Batch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if sameColumn(c, name) {
			return true
		}
	}
	return false
}

// AddColumn registers name if the batch does not carry it yet.
func (b *Batch) AddColumn(name string) {
	if !b.HasColumn(name) {
		b.Columns = append(b.Columns, name)
	}
}

// MinTime returns the earliest time.Time value found in column.
func (b *Batch) MinTime(column string) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, r := range b.Rows {
		ts, ok := r.Value(column).(time.Time)
		if !ok || ts.IsZero() {
			continue
		}
		if !found || ts.Before(earliest) {
			earliest = ts
			found = true
		}
	}
	return earliest, found
}

// ColumnDefs infers a storage type for each named column from the first
// non-missing value. Columns that are always missing become VARCHAR.
func (b *Batch) ColumnDefs(names []string) []ColumnDef {
	defs := make([]ColumnDef, 0, len(names))
	for _, name := range names {
		typ := TypeVarchar
		for _, r := range b.Rows {
			if t, ok := inferType(r.Value(name)); ok {
				typ = t
				break
			}
		}
		defs = append(defs, ColumnDef{Name: name, Type: typ})
	}
	return defs
}

// Values lays the rows out in the given column order. Columns a row does
// not carry are filled with nil.
func (b *Batch) Values(columns []string) [][]any {
	out := make([][]any, 0, len(b.Rows))
	for _, r := range b.Rows {
		row := make([]any, len(columns))
		for i, c := range columns {
			if v, ok := r.Get(c); ok {
				row[i] = v
				continue
			}
			row[i] = lookupFold(r, c)
		}
		out = append(out, row)
	}
	return out
}

func lookupFold(r *Record, column string) any {
	for _, k := range r.keys {
		if strings.EqualFold(k, column) {
			return r.values[k]
		}
	}
	return nil
}
