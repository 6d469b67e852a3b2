package store

import (
	_ "modernc.org/sqlite"
)

func init() {
	register(Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		TableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	})
}
