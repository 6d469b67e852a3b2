package weather

import (
	"context"
	"log"
	"time"
)

// ProbeState is the merge engine's view of a target table.
type ProbeState int

const (
	NoTable ProbeState = iota
	TableExists
)

func (s ProbeState) String() string {
	if s == TableExists {
		return "TABLE_EXISTS"
	}
	return "NO_TABLE"
}

// Probe is the result of looking up a table's latest timestamp.
type Probe struct {
	State  ProbeState
	Latest time.Time
}

// Found reports an existing table. A zero latest means it holds no
// timestamps yet.
func Found(latest time.Time) Probe {
	return Probe{State: TableExists, Latest: latest}
}

// NotFound reports a table that does not exist yet.
func NotFound() Probe {
	return Probe{State: NoTable}
}

// HasLatest reports whether the table exists and has a latest timestamp.
func (p Probe) HasLatest() bool {
	return p.State == TableExists && !p.Latest.IsZero()
}

// Target names a table and the column its merge window applies to.
type Target struct {
	Table      string
	TimeColumn string
}

var (
	ForecastTarget    = Target{Table: TableForecast, TimeColumn: ColumnDateTime}
	ObservationTarget = Target{Table: TableObservation, TimeColumn: ColumnCreationDate}
	TelemetryTarget   = Target{Table: TableTelemetry, TimeColumn: ColumnDateTime}
)

// MergeResult describes one merge into a table.
type MergeResult struct {
	Table        string     `json:"table"`
	Prior        ProbeState `json:"-"`
	Created      bool       `json:"created"`
	WindowStart  time.Time  `json:"window_start,omitzero"`
	Deleted      int64      `json:"deleted"`
	Inserted     int64      `json:"inserted"`
	AddedColumns []string   `json:"added_columns,omitempty"`
}

// Merger applies batches to the store: it creates a missing table from the
// first batch, and otherwise replaces every row at or after the window
// start with the batch.
type Merger struct {
	store Store
}

func NewMerger(store Store) *Merger {
	return &Merger{store: store}
}

// Merge writes b into t. A zero from derives the window start from the
// earliest t.TimeColumn value in the batch.
func (m *Merger) Merge(ctx context.Context, t Target, b *Batch, from time.Time) (MergeResult, error) {
	res := MergeResult{Table: t.Table}
	if b.Len() == 0 {
		log.Printf("INFO: no rows for %s; nothing to merge", t.Table)
		return res, nil
	}

	probe, err := m.store.Probe(ctx, t.Table, t.TimeColumn)
	if err != nil {
		return res, storeErr(t.Table, "probe", err)
	}
	res.Prior = probe.State

	if probe.State == NoTable {
		log.Printf("INFO: creating new %s table with %d rows", t.Table, b.Len())
		defs := b.ColumnDefs(b.Columns)
		err = m.store.WithTx(ctx, func(tx Tx) error {
			if err := tx.CreateTable(ctx, t.Table, defs); err != nil {
				return storeErr(t.Table, "create", err)
			}
			n, err := tx.Insert(ctx, t.Table, b.Columns, b.Values(b.Columns))
			if err != nil {
				return storeErr(t.Table, "insert", err)
			}
			res.Inserted = n
			return nil
		})
		if err != nil {
			return MergeResult{Table: t.Table}, storeErr(t.Table, "commit", err)
		}
		res.Created = true
		return res, nil
	}

	if probe.HasLatest() {
		log.Printf("DEBUG: %s latest %s: %s", t.Table, t.TimeColumn, probe.Latest.Format(time.DateTime))
	}

	tableCols, err := m.store.Columns(ctx, t.Table)
	if err != nil {
		return res, storeErr(t.Table, "columns", err)
	}
	rec := Reconcile(tableCols, b)

	start := from
	if start.IsZero() {
		start, _ = b.MinTime(t.TimeColumn)
	}
	res.WindowStart = start

	err = m.store.WithTx(ctx, func(tx Tx) error {
		if len(rec.Added) > 0 {
			names := make([]string, 0, len(rec.Added))
			for _, d := range rec.Added {
				names = append(names, d.Name)
			}
			log.Printf("INFO: adding columns %v to %s", names, t.Table)
			if err := tx.AddColumns(ctx, t.Table, rec.Added); err != nil {
				return storeErr(t.Table, "add columns", err)
			}
			res.AddedColumns = names
		}

		if start.IsZero() {
			log.Printf("ERROR: %s batch has no %s values; inserting without replacing", t.Table, t.TimeColumn)
		} else {
			log.Printf("INFO: deleting rows from %s where %s >= %s", t.Table, t.TimeColumn, start.Format(time.DateTime))
			n, err := tx.DeleteFrom(ctx, t.Table, t.TimeColumn, start)
			if err != nil {
				return storeErr(t.Table, "delete", err)
			}
			res.Deleted = n
		}

		log.Printf("INFO: inserting %d rows into %s", b.Len(), t.Table)
		n, err := tx.Insert(ctx, t.Table, rec.Columns, b.Values(rec.Columns))
		if err != nil {
			return storeErr(t.Table, "insert", err)
		}
		res.Inserted = n
		return nil
	})
	if err != nil {
		return MergeResult{Table: t.Table}, storeErr(t.Table, "commit", err)
	}
	return res, nil
}
