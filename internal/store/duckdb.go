//go:build duckdb

package store

import (
	_ "github.com/marcboeker/go-duckdb/v2"
)

func init() {
	register(Dialect{
		Name:        "duckdb",
		Driver:      "duckdb",
		TableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`,
	})
}
