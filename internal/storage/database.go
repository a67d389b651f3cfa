// internal/storage/database.go
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xo/dburl"

	_ "github.com/go-sql-driver/mysql" // Driver registration
	_ "github.com/mattn/go-sqlite3"    // Driver registration

	"github.com/shiftline/lineboard/config"
	"github.com/shiftline/lineboard/internal/core"
	"github.com/shiftline/lineboard/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// DB wraps the shared connection pool together with the driver name, which
// per-engine query paths (catalog, quoting) dispatch on. One DB is created at
// startup and injected into every handler; there is no lazily-initialized
// global pool.
type DB struct {
	*sqlx.DB
	driver string
}

// Connect opens and pings the pool described by cfg. DATABASE_URL wins when
// set (any dburl-resolvable scheme, e.g. mysql:// or sqlite:); otherwise a
// MySQL DSN is assembled from the individual host/port/credential settings.
func Connect(cfg *config.Config) (*DB, error) {
	driver := "mysql"
	dsn := cfg.MySQLDSN()

	if cfg.DatabaseURL != "" {
		u, err := dburl.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		driver = u.Driver
		dsn = u.DSN
	}

	customLog.Printf("Storage: Connecting (%s)...", driver)
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		customLog.Warnf("Storage: Failed to connect (%s): %v", driver, err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	customLog.Println("Storage: Database connection successful.")
	return &DB{DB: db, driver: driver}, nil
}

// NewDB wraps an existing pool. Used by tests that open their own database.
func NewDB(db *sqlx.DB, driver string) *DB {
	return &DB{DB: db, driver: driver}
}

// Driver returns the database/sql driver name in use.
func (d *DB) Driver() string {
	return d.driver
}

// quoteIdent renders one pre-validated identifier segment for the active
// engine. MySQL and SQLite both accept backticks; everything else gets ANSI
// double quotes.
func (d *DB) quoteIdent(part string) string {
	switch d.driver {
	case "mysql", "sqlite3":
		return "`" + part + "`"
	default:
		return `"` + part + `"`
	}
}

// qualify renders a sanitized TableIdentifier as a fully quoted table
// reference. Every dynamic query path goes through here.
func (d *DB) qualify(table core.TableIdentifier) string {
	parts := table.Parts()
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = d.quoteIdent(p)
	}
	return strings.Join(quoted, ".")
}
