package weather

// Reconciliation is the insert plan for a batch against an existing table.
type Reconciliation struct {
	// Columns is the insert column list: the table's columns in table
	// order, then the columns only the batch carries.
	Columns []string
	// Added are the batch-only columns the table must gain before insert.
	Added []ColumnDef
}

// Reconcile matches a batch against the table's current columns. A nil
// tableColumns means the table does not exist and the batch defines it.
func Reconcile(tableColumns []string, b *Batch) Reconciliation {
	if tableColumns == nil {
		return Reconciliation{Columns: append([]string(nil), b.Columns...)}
	}

	rec := Reconciliation{Columns: append([]string(nil), tableColumns...)}

	var added []string
	for _, c := range b.Columns {
		if containsFold(tableColumns, c) {
			continue
		}
		rec.Columns = append(rec.Columns, c)
		added = append(added, c)
	}
	if len(added) > 0 {
		rec.Added = b.ColumnDefs(added)
	}
	return rec
}

func containsFold(cols []string, name string) bool {
	for _, c := range cols {
		if sameColumn(c, name) {
			return true
		}
	}
	return false
}
