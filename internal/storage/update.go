// internal/storage/update.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/shiftline/lineboard/internal/core"
)

// RowUpdates holds the validated mutable fields of one row. Only the comment
// text and the needtosend flag are ever writable through the browser.
type RowUpdates struct {
	SetComment  bool
	Comment     string
	CommentNull bool

	SetFlag    bool
	NeedToSend int
}

// UpdateRequest is a fully validated row update: sanitized table, parsed id
// and at least one recognized field.
type UpdateRequest struct {
	Table   core.TableIdentifier
	ID      int64
	Updates RowUpdates
}

// ParseUpdateRequest validates a decoded request body in fail-fast order:
// table, id, updates object, comment type, flag value, at-least-one-field,
// identifier. Each failure is a distinct sentinel so the error middleware can
// answer with a precise 400.
func ParseUpdateRequest(body map[string]any) (*UpdateRequest, error) {
	tableRaw, ok := body["table"].(string)
	if !ok || tableRaw == "" {
		return nil, ErrMissingTable
	}

	id, err := parseRowID(body["id"])
	if err != nil {
		return nil, err
	}

	updatesRaw, present := body["updates"]
	if !present {
		return nil, ErrMissingUpdates
	}
	updatesMap, ok := updatesRaw.(map[string]any)
	if !ok {
		return nil, ErrMissingUpdates
	}

	updates, err := parseRowUpdates(updatesMap)
	if err != nil {
		return nil, err
	}

	table, err := core.ParseTableIdentifier(tableRaw)
	if err != nil {
		return nil, err
	}

	return &UpdateRequest{Table: table, ID: id, Updates: updates}, nil
}

func parseRowUpdates(raw map[string]any) (RowUpdates, error) {
	var upd RowUpdates

	if value, present := raw["comment"]; present {
		switch v := value.(type) {
		case nil:
			upd.SetComment = true
			upd.CommentNull = true
		case string:
			upd.SetComment = true
			upd.Comment = v
		default:
			return RowUpdates{}, ErrInvalidComment
		}
	}

	if value, present := raw["needtosend"]; present {
		flag, ok := parseFlag(value)
		if !ok {
			return RowUpdates{}, ErrInvalidFlag
		}
		upd.SetFlag = true
		upd.NeedToSend = flag
	}

	if !upd.SetComment && !upd.SetFlag {
		return RowUpdates{}, ErrNoFieldsProvided
	}
	return upd, nil
}

// parseFlag accepts anything that parses to exactly 0 or 1.
func parseFlag(value any) (int, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case float64:
		if v == 0 || v == 1 {
			return int(v), true
		}
	case int:
		if v == 0 || v == 1 {
			return v, true
		}
	case string:
		if n, err := strconv.ParseFloat(v, 64); err == nil && (n == 0 || n == 1) {
			return int(n), true
		}
	}
	return 0, false
}

// parseRowID accepts a JSON number or a numeric string; anything else, or a
// non-integral number, fails with ErrInvalidID.
func parseRowID(value any) (int64, error) {
	switch v := value.(type) {
	case float64:
		if math.Floor(v) == v {
			return int64(v), nil
		}
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id, nil
		}
	}
	return 0, ErrInvalidID
}

// UpdateRow applies a validated partial update to exactly one row by primary
// key. A nonexistent id is ErrRecordNotFound, checked with an existence query
// first: RowsAffected cannot distinguish a missing row from an idempotent
// update on MySQL.
func (d *DB) UpdateRow(ctx context.Context, req *UpdateRequest) error {
	target := d.qualify(req.Table)

	var exists int
	checkSQL := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? LIMIT 1", target)
	if err := d.GetContext(ctx, &exists, d.Rebind(checkSQL), req.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecordNotFound
		}
		customLog.Warnf("Storage: Failed existence check on %s id %d: %v", req.Table.FullName(), req.ID, err)
		return mapTableErr(err)
	}

	builder := sq.Update(target)
	if req.Updates.SetComment {
		if req.Updates.CommentNull {
			builder = builder.Set("comment", nil)
		} else {
			builder = builder.Set("comment", req.Updates.Comment)
		}
	}
	if req.Updates.SetFlag {
		builder = builder.Set("needtosend", req.Updates.NeedToSend)
	}
	builder = builder.Where(sq.Eq{"id": req.ID})

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	if _, err := d.ExecContext(ctx, query, args...); err != nil {
		customLog.Warnf("Storage: Failed UPDATE on %s id %d: %v", req.Table.FullName(), req.ID, err)
		return mapTableErr(err)
	}

	customLog.Printf("Storage: Updated %s id %d", req.Table.FullName(), req.ID)
	return nil
}
