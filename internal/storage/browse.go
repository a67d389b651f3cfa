// internal/storage/browse.go
package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/shiftline/lineboard/internal/core"
)

// Optional filter columns the browser assumes heterogeneous tables may carry.
const (
	createdAtColumn = "created_at"
	lineIDColumn    = "line_id"
)

// BrowseResult is the outcome of one row fetch, including which of the
// requested filters actually applied after the fallback ladder ran.
type BrowseResult struct {
	Columns      []string
	Rows         []map[string]any
	LineApplied  bool
	SinceApplied bool
}

// BrowseRows fetches rows from an arbitrary table with graceful degradation.
// The full query (since boundary, line scope, newest-first ordering) is
// attempted first; when the engine reports an unknown column the ladder
// retries without the line scope, then with a flat limit and no ordering.
// Any other failure propagates immediately.
func (d *DB) BrowseRows(ctx context.Context, table core.TableIdentifier, opts core.BrowseOptions) (*BrowseResult, error) {
	target := d.qualify(table)

	full := sq.Select("*").From(target)
	if opts.Since != nil {
		full = full.Where(sq.GtOrEq{createdAtColumn: *opts.Since})
	}
	if opts.LineID != "" {
		full = full.Where(sq.Eq{lineIDColumn: opts.LineID})
	}
	full = full.OrderBy(createdAtColumn + " DESC").Limit(uint64(opts.Limit))

	columns, rows, err := d.runSelect(ctx, full)
	if err == nil {
		return &BrowseResult{
			Columns:      columns,
			Rows:         rows,
			LineApplied:  opts.LineID != "",
			SinceApplied: opts.Since != nil,
		}, nil
	}
	if !isUnknownColumnErr(err) {
		return nil, mapTableErr(err)
	}

	if opts.LineID != "" {
		noScope := sq.Select("*").From(target)
		if opts.Since != nil {
			noScope = noScope.Where(sq.GtOrEq{createdAtColumn: *opts.Since})
		}
		noScope = noScope.OrderBy(createdAtColumn + " DESC").Limit(uint64(opts.Limit))

		columns, rows, err = d.runSelect(ctx, noScope)
		if err == nil {
			customLog.Printf("Storage: Browse of %s dropped line scope (no %s column)", table.FullName(), lineIDColumn)
			return &BrowseResult{
				Columns:      columns,
				Rows:         rows,
				SinceApplied: opts.Since != nil,
			}, nil
		}
		if !isUnknownColumnErr(err) {
			return nil, mapTableErr(err)
		}
	}

	flat := sq.Select("*").From(target).Limit(uint64(opts.Limit))
	columns, rows, err = d.runSelect(ctx, flat)
	if err != nil {
		return nil, mapTableErr(err)
	}
	customLog.Printf("Storage: Browse of %s fell back to an unfiltered query", table.FullName())
	return &BrowseResult{Columns: columns, Rows: rows}, nil
}

// runSelect executes a built SELECT and scans every row into a normalized
// column->value map. The returned column list is empty when no row matched.
func (d *DB) runSelect(ctx context.Context, builder sq.SelectBuilder) ([]string, []map[string]any, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	// Columns must be read before iteration exhausts (and closes) the rows.
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed processing result columns: %w", err)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		raw := make(map[string]any)
		if err := rows.MapScan(raw); err != nil {
			return nil, nil, fmt.Errorf("failed reading row data: %w", err)
		}
		results = append(results, NormalizeRow(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed processing rows: %w", err)
	}

	if len(results) == 0 {
		return []string{}, results, nil
	}
	return NormalizeColumns(columns), results, nil
}
