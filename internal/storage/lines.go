// internal/storage/lines.go
package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/shiftline/lineboard/internal/core"
)

const dayLayout = "2006-01-02"

// TrendPoint is one day's row count in a line's activity trend.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// LineDashboard aggregates the primary dataset for one production line.
type LineDashboard struct {
	LineID          string           `json:"lineId"`
	RowCount        int              `json:"rowCount"`
	NeedToSendCount int              `json:"needToSendCount"`
	LatestCreatedAt *time.Time       `json:"latestCreatedAt"`
	Trend           []TrendPoint     `json:"trend"`
	Recent          []map[string]any `json:"recent"`
}

// ListLines returns the distinct line identifiers known to the primary
// dataset, ascending.
func (d *DB) ListLines(ctx context.Context, primary core.TableIdentifier) ([]string, error) {
	target := d.qualify(primary)
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		lineIDColumn, target, lineIDColumn, lineIDColumn)

	lines := []string{}
	if err := d.SelectContext(ctx, &lines, query); err != nil {
		customLog.Warnf("Storage: Error listing lines: %v", err)
		return nil, mapTableErr(err)
	}
	return lines, nil
}

// LineDashboard builds the per-line summary: row counts, latest creation
// time, a day-bucketed trend over the window and the most recent rows.
// A line with no rows at all is ErrLineNotFound.
func (d *DB) LineDashboard(ctx context.Context, primary core.TableIdentifier, lineID string, window time.Duration, recentLimit int) (*LineDashboard, error) {
	target := d.qualify(primary)

	total, err := d.countWhere(ctx, target, sq.Eq{lineIDColumn: lineID})
	if err != nil {
		return nil, mapTableErr(err)
	}
	if total == 0 {
		return nil, ErrLineNotFound
	}

	needToSend, err := d.countWhere(ctx, target, sq.Eq{lineIDColumn: lineID, "needtosend": 1})
	if err != nil {
		if !isUnknownColumnErr(err) {
			return nil, mapTableErr(err)
		}
		needToSend = 0
	}

	// Tables without a created_at column still get a dashboard, just without
	// the time-derived pieces.
	latest, err := d.latestCreatedAt(ctx, target, lineID)
	if err != nil && !isUnknownColumnErr(err) {
		return nil, mapTableErr(err)
	}

	since := time.Now().Add(-window)
	trend := []TrendPoint{}
	if err == nil {
		trend, err = d.dailyTrend(ctx, target, lineID, since)
		if err != nil {
			return nil, mapTableErr(err)
		}
	}

	recent, err := d.BrowseRows(ctx, primary, core.BrowseOptions{Limit: recentLimit, LineID: lineID})
	if err != nil {
		return nil, err
	}

	return &LineDashboard{
		LineID:          lineID,
		RowCount:        total,
		NeedToSendCount: needToSend,
		LatestCreatedAt: latest,
		Trend:           trend,
		Recent:          recent.Rows,
	}, nil
}

func (d *DB) countWhere(ctx context.Context, target string, where sq.Eq) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(target).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count: %w", err)
	}
	var count int
	if err := d.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (d *DB) latestCreatedAt(ctx context.Context, target, lineID string) (*time.Time, error) {
	query, args, err := sq.Select(createdAtColumn).From(target).
		Where(sq.Eq{lineIDColumn: lineID}).
		OrderBy(createdAtColumn + " DESC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build latest query: %w", err)
	}

	var raw any
	if err := d.GetContext(ctx, &raw, query, args...); err != nil {
		return nil, err
	}
	if ts, ok := coerceTime(raw); ok {
		return &ts, nil
	}
	return nil, nil
}

// dailyTrend buckets creation times by calendar day in Go rather than SQL so
// the same query works on every engine. Days without rows are zero-filled.
func (d *DB) dailyTrend(ctx context.Context, target, lineID string, since time.Time) ([]TrendPoint, error) {
	query, args, err := sq.Select(createdAtColumn).From(target).
		Where(sq.Eq{lineIDColumn: lineID}).
		Where(sq.GtOrEq{createdAtColumn: since}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build trend query: %w", err)
	}

	var raw []any
	if err := d.SelectContext(ctx, &raw, query, args...); err != nil {
		return nil, err
	}

	// Bucket and label in UTC on both sides; mixing the driver's zone with the
	// process-local one loses edge-day rows.
	counts := make(map[string]int)
	for _, value := range raw {
		if ts, ok := coerceTime(value); ok {
			counts[ts.UTC().Format(dayLayout)]++
		}
	}

	start := since.UTC().Truncate(24 * time.Hour)
	end := time.Now().UTC()
	trend := []TrendPoint{}
	for day := start; !day.After(end); day = day.Add(24 * time.Hour) {
		key := day.Format(dayLayout)
		trend = append(trend, TrendPoint{Date: key, Count: counts[key]})
	}
	return trend, nil
}

// coerceTime normalizes the driver's representation of a timestamp column.
// MySQL (with parseTime) and SQLite hand back time.Time for declared
// timestamp columns; string forms appear for aggregate or untyped results.
func coerceTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case []byte:
		return parseTimeString(string(v))
	case string:
		return parseTimeString(v)
	}
	return time.Time{}, false
}

func parseTimeString(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, dayLayout} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
