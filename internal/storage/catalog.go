// internal/storage/catalog.go
package storage

import (
	"context"
	"fmt"
	"strings"
)

// TableOption is one selectable table in the browser's table picker.
// Produced fresh on each listing; never persisted.
type TableOption struct {
	Schema   string `db:"table_schema" json:"schema,omitempty"`
	Name     string `db:"table_name" json:"name"`
	FullName string `db:"-" json:"fullName"`
}

// System catalogs excluded from listings unless includeSystem is set.
var systemSchemas = []string{"information_schema", "mysql", "performance_schema", "sys", "pg_catalog"}

// ListTables enumerates base tables (views excluded), ordered by schema then
// name. A non-empty schema restricts the listing to that schema; otherwise
// system catalogs are skipped unless includeSystem is true. Read-only against
// catalog metadata.
func (d *DB) ListTables(ctx context.Context, schema string, includeSystem bool) ([]TableOption, error) {
	var query string
	var args []any

	switch d.driver {
	case "sqlite3":
		// SQLite has no schemas; sqlite_master 'table' entries are the base tables.
		query = `SELECT '' AS table_schema, name AS table_name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	default:
		query = `SELECT table_schema, table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE'`
		if schema != "" {
			query += ` AND table_schema = ?`
			args = append(args, schema)
		} else if !includeSystem {
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(systemSchemas)), ", ")
			query += ` AND table_schema NOT IN (` + placeholders + `)`
			for _, s := range systemSchemas {
				args = append(args, s)
			}
		}
		query += ` ORDER BY table_schema, table_name`
	}

	tables := []TableOption{}
	if err := d.SelectContext(ctx, &tables, d.Rebind(query), args...); err != nil {
		customLog.Warnf("Storage: Error listing tables: %v", err)
		return nil, fmt.Errorf("database error listing tables: %w", err)
	}

	for i := range tables {
		if tables[i].Schema != "" {
			tables[i].FullName = tables[i].Schema + "." + tables[i].Name
		} else {
			tables[i].FullName = tables[i].Name
		}
	}
	return tables, nil
}
