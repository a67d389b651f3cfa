// internal/storage/catalog_test.go
package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTables(t *testing.T) {
	db := testDB(t)
	db.MustExec(`CREATE TABLE production_orders (id INTEGER PRIMARY KEY)`)
	db.MustExec(`CREATE TABLE audits (id INTEGER PRIMARY KEY)`)
	db.MustExec(`CREATE VIEW audit_view AS SELECT id FROM audits`)
	assert := assert.New(t)

	tables, err := db.ListTables(context.Background(), "", false)
	require.NoError(t, err)

	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.FullName
	}
	assert.Equal([]string{"audits", "production_orders"}, names, "base tables only, views excluded, ordered by name")

	for _, tbl := range tables {
		assert.Empty(tbl.Schema, "sqlite has no schemas")
		assert.Equal(tbl.Name, tbl.FullName)
	}
}

func TestListTablesEmptyDatabase(t *testing.T) {
	db := testDB(t)

	tables, err := db.ListTables(context.Background(), "", false)
	require.NoError(t, err)
	assert.Empty(t, tables)
}
