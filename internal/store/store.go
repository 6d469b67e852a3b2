package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/weather-ingest/internal/weather"
)

// TimeLayout is how timestamps are written. Values are naive UTC and
// compare correctly as text.
const TimeLayout = "2006-01-02 15:04:05"

var (
	// ErrUnknownDriver is returned for a driver that is not compiled in.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Dialect holds the driver-specific pieces of SQL.
type Dialect struct {
	Name        string
	Driver      string
	TableExists string
}

var dialects = map[string]Dialect{}

func register(d Dialect) {
	dialects[d.Name] = d
}

// SQLStore is a weather.Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to an embedded database. A single connection is kept so
// every write is serialized.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q (duckdb requires the duckdb build tag)", ErrUnknownDriver, driver)
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// New wraps an existing handle.
func New(db *sql.DB, driver string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Probe reports whether table exists and the latest value of timeColumn.
func (s *SQLStore) Probe(ctx context.Context, table, timeColumn string) (weather.Probe, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.TableExists, table).Scan(&n); err != nil {
		return weather.Probe{}, err
	}
	if n == 0 {
		return weather.NotFound(), nil
	}

	cols, err := s.Columns(ctx, table)
	if err != nil {
		return weather.Probe{}, err
	}
	if !contains(cols, timeColumn) {
		return weather.Found(time.Time{}), nil
	}

	var latest sql.NullString
	q := fmt.Sprintf(`SELECT MAX(%s) FROM %s`, sqlIdent(timeColumn), sqlIdent(table))
	if err := s.db.QueryRowContext(ctx, q).Scan(&latest); err != nil {
		return weather.Probe{}, err
	}
	if !latest.Valid {
		return weather.Found(time.Time{}), nil
	}
	ts, err := parseStoredTime(latest.String)
	if err != nil {
		return weather.Probe{}, fmt.Errorf("latest %s in %s: %w", timeColumn, table, err)
	}
	return weather.Found(ts), nil
}

// Columns returns the table's column names in table order.
func (s *SQLStore) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT 0`, sqlIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return cols, rows.Err()
}

// WithTx runs fn in a transaction and rolls back when it fails.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx weather.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) CreateTable(ctx context.Context, table string, cols []weather.ColumnDef) error {
	if len(cols) == 0 {
		return fmt.Errorf("create table %s: no columns", table)
	}
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, sqlIdent(c.Name)+" "+string(c.Type))
	}
	q := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", sqlIdent(table), strings.Join(parts, ",\n  "))
	_, err := t.tx.ExecContext(ctx, q)
	return err
}

func (t *sqlTx) AddColumns(ctx context.Context, table string, cols []weather.ColumnDef) error {
	for _, c := range cols {
		q := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, sqlIdent(table), sqlIdent(c.Name), c.Type)
		if _, err := t.tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("add column %s: %w", c.Name, err)
		}
	}
	return nil
}

func (t *sqlTx) DeleteFrom(ctx context.Context, table, timeColumn string, from time.Time) (int64, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s >= ?`, sqlIdent(table), sqlIdent(timeColumn))
	res, err := t.tx.ExecContext(ctx, q, from.UTC().Format(TimeLayout))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Insert writes rows using an explicit column list, one prepared
// statement per call.
func (t *sqlTx) Insert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := strings.TrimRight(strings.Repeat("?, ", len(columns)), ", ")
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, sqlIdent(table), strings.Join(colList, ", "), placeholders)

	stmt, err := t.tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	args := make([]any, len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return inserted, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		for j, v := range row {
			args[j] = bindValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return inserted, fmt.Errorf("row %d: %w", i, err)
		}
		inserted++
	}
	return inserted, nil
}

func bindValue(v any) any {
	switch x := v.(type) {
	case nil, string, float64, int64, bool:
		return x
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC().Format(TimeLayout)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

var storedLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range storedLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func contains(cols []string, name string) bool {
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
