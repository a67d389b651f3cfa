// internal/storage/storage_test.go
package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/shiftline/lineboard/internal/core"
)

// testDB opens a temporary SQLite database for one test.
func testDB(t *testing.T) *DB {
	t.Helper()

	pool, err := sqlx.Connect("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})
	return NewDB(pool, "sqlite3")
}

// seedOrders creates the canonical primary table and fills it with rows on
// two lines, newest last.
func seedOrders(t *testing.T, db *DB) {
	t.Helper()

	db.MustExec(`CREATE TABLE production_orders (
		id INTEGER PRIMARY KEY,
		line_id TEXT,
		comment TEXT,
		needtosend INTEGER NOT NULL DEFAULT 0,
		step TEXT,
		current_step TEXT,
		end_step TEXT,
		created_at TIMESTAMP
	)`)

	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	rows := []struct {
		id      int
		line    string
		comment string
		flag    int
		offset  time.Duration
	}{
		{1, "L-01", "first", 0, 0},
		{2, "L-01", "second", 1, time.Hour},
		{3, "L-02", "other line", 0, 2 * time.Hour},
		{4, "L-01", "third", 1, 3 * time.Hour},
	}
	for _, r := range rows {
		db.MustExec(`INSERT INTO production_orders (id, line_id, comment, needtosend, created_at) VALUES (?, ?, ?, ?, ?)`,
			r.id, r.line, r.comment, r.flag, base.Add(r.offset))
	}
}

func mustIdent(t *testing.T, raw string) core.TableIdentifier {
	t.Helper()
	ident, err := core.ParseTableIdentifier(raw)
	require.NoError(t, err)
	return ident
}

func rowIDs(rows []map[string]any) []int64 {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i], _ = row["id"].(int64)
	}
	return ids
}

func TestQualify(t *testing.T) {
	db := testDB(t)

	bare := mustIdent(t, "widgets")
	if got := db.qualify(bare); got != "`widgets`" {
		t.Errorf("qualify(widgets) = %q; want backticked", got)
	}

	qualified := mustIdent(t, "sop.widgets")
	if got := db.qualify(qualified); got != "`sop`.`widgets`" {
		t.Errorf("qualify(sop.widgets) = %q; want per-segment quoting", got)
	}
}

func TestQualifyANSI(t *testing.T) {
	db := &DB{driver: "postgres"}
	if got := db.qualify(mustIdent(t, "sop.widgets")); got != `"sop"."widgets"` {
		t.Errorf("qualify on postgres = %q; want double-quoted", got)
	}
}

func TestIsUnknownColumnErr(t *testing.T) {
	db := testDB(t)
	db.MustExec(`CREATE TABLE plain (id INTEGER PRIMARY KEY)`)

	var out []int
	err := db.Select(&out, `SELECT missing FROM plain`)
	require.Error(t, err)
	if !isUnknownColumnErr(err) {
		t.Errorf("isUnknownColumnErr(%v) = false; want true for sqlite unknown column", err)
	}

	err = db.Select(&out, `SELECT id FROM does_not_exist`)
	require.Error(t, err)
	if isUnknownColumnErr(err) {
		t.Errorf("isUnknownColumnErr(%v) = true for a missing table", err)
	}
	if mapTableErr(err) != ErrTableNotFound {
		t.Errorf("mapTableErr(%v) did not map to ErrTableNotFound", err)
	}
}
