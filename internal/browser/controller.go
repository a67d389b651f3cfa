// internal/browser/controller.go

// Package browser implements the client-side state machine behind the table
// browser UI: table selection, row fetch lifecycle with last-request-wins
// sequencing, per-cell edit drafts and the timed save indicators.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/shiftline/lineboard/api/models"
	"github.com/shiftline/lineboard/internal/storage"
)

// ErrSaveInFlight rejects a second save for a cell whose previous save has
// not completed yet.
var ErrSaveInFlight = errors.New("a save for this cell is already in flight")

// Editable field names; together with a record id they form a cell key.
const (
	FieldComment    = "comment"
	FieldNeedToSend = "needtosend"
)

// CellKey identifies one editable cell for draft, saving and error tracking.
func CellKey(id int64, field string) string {
	return fmt.Sprintf("%d:%s", id, field)
}

// FetchOptions mirrors the row-fetch query parameters.
type FetchOptions struct {
	Limit  int
	LineID string
	Since  string
}

// DataSource is what the controller talks to; the HTTP client implements it,
// tests substitute fakes.
type DataSource interface {
	ListTables(ctx context.Context) ([]storage.TableOption, error)
	FetchRows(ctx context.Context, table string, opts FetchOptions) (*models.RowsResponse, error)
	UpdateRow(ctx context.Context, table string, id int64, updates map[string]any) error
}

// Controller orchestrates the browser's client state. Loads run on whatever
// goroutine calls them; state mutation is serialized by the internal mutex
// and stale responses are discarded by sequence number, never applied.
type Controller struct {
	mu           sync.Mutex
	source       DataSource
	indicators   *IndicatorSet
	defaultTable string
	fetch        FetchOptions

	tables        []storage.TableOption
	selected      string
	columns       []string
	rows          []map[string]any
	loadingTables bool
	loadingRows   bool
	tablesErr     string
	rowsErr       string

	tablesSeq uint64
	rowsSeq   uint64

	commentDrafts  map[int64]string
	editingComment map[int64]bool
	pendingFlags   map[int64]int
	cellErrors     map[string]string
	savingCells    map[string]bool
}

// NewController creates a Controller over the given data source.
// defaultTable is preferred when the previous selection disappears.
func NewController(source DataSource, indicators *IndicatorSet, defaultTable string) *Controller {
	return &Controller{
		source:         source,
		indicators:     indicators,
		defaultTable:   defaultTable,
		commentDrafts:  make(map[int64]string),
		editingComment: make(map[int64]bool),
		pendingFlags:   make(map[int64]int),
		cellErrors:     make(map[string]string),
		savingCells:    make(map[string]bool),
	}
}

// SetFetchOptions sets the filters applied to subsequent row loads.
func (c *Controller) SetFetchOptions(opts FetchOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetch = opts
}

// LoadTables fetches the table list and reconciles the current selection:
// previous selection when still present (by full name, else bare name), then
// the default table, then the first available, then none. Callers follow a
// successful load with LoadRows. A response superseded by a newer request is
// dropped silently.
func (c *Controller) LoadTables(ctx context.Context) error {
	c.mu.Lock()
	c.tablesSeq++
	seq := c.tablesSeq
	c.loadingTables = true
	c.tablesErr = ""
	c.mu.Unlock()

	tables, err := c.source.ListTables(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.tablesSeq {
		return nil // superseded
	}
	c.loadingTables = false
	if err != nil {
		c.tablesErr = err.Error()
		return err
	}
	c.tables = tables
	c.selected = c.pickSelectionLocked()
	return nil
}

func (c *Controller) pickSelectionLocked() string {
	if c.selected != "" {
		for _, t := range c.tables {
			if t.FullName == c.selected {
				return t.FullName
			}
		}
		for _, t := range c.tables {
			if t.Name == c.selected {
				return t.FullName
			}
		}
	}
	if c.defaultTable != "" {
		for _, t := range c.tables {
			if t.FullName == c.defaultTable || t.Name == c.defaultTable {
				return t.FullName
			}
		}
	}
	if len(c.tables) > 0 {
		return c.tables[0].FullName
	}
	return ""
}

// SelectTable switches the selection. The caller triggers LoadRows next.
func (c *Controller) SelectTable(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = name
}

// LoadRows fetches rows for the selected table. On completion all per-row
// drafts, edit modes and cell errors are cleared: they would otherwise
// reference a replaced row set. Stale responses are discarded.
func (c *Controller) LoadRows(ctx context.Context) error {
	c.mu.Lock()
	table := c.selected
	if table == "" {
		c.columns = nil
		c.rows = nil
		c.mu.Unlock()
		return nil
	}
	c.rowsSeq++
	seq := c.rowsSeq
	c.loadingRows = true
	c.rowsErr = ""
	opts := c.fetch
	c.mu.Unlock()

	resp, err := c.source.FetchRows(ctx, table, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.rowsSeq {
		return nil // superseded
	}
	c.loadingRows = false
	if err != nil {
		c.rowsErr = err.Error()
		return err
	}

	c.columns = resp.Columns
	c.rows = resp.Rows
	if resp.Table != "" && resp.Table != table {
		// Server echoed the canonical name; adopt it.
		c.selected = resp.Table
	}
	c.clearDraftsLocked()
	return nil
}

func (c *Controller) clearDraftsLocked() {
	c.commentDrafts = make(map[int64]string)
	c.editingComment = make(map[int64]bool)
	c.pendingFlags = make(map[int64]int)
	c.cellErrors = make(map[string]string)
}

// StartEditComment enters edit mode for a row's comment, seeding the draft
// with the current value.
func (c *Controller) StartEditComment(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.commentDrafts[id]; !ok {
		c.commentDrafts[id] = c.currentCommentLocked(id)
	}
	c.editingComment[id] = true
}

func (c *Controller) currentCommentLocked(id int64) string {
	row, ok := c.findRowLocked(id)
	if !ok {
		return ""
	}
	if s, ok := row[FieldComment].(string); ok {
		return s
	}
	return ""
}

// SetCommentDraft replaces the pending comment text for a row.
func (c *Controller) SetCommentDraft(id int64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commentDrafts[id] = text
}

// CancelEditComment leaves edit mode and discards the draft.
func (c *Controller) CancelEditComment(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.commentDrafts, id)
	delete(c.editingComment, id)
}

// SaveComment persists the comment draft for a row. On success the in-memory
// row is patched locally, with no refetch; on failure the draft survives for
// retry and the error is recorded against the cell.
func (c *Controller) SaveComment(ctx context.Context, id int64) error {
	key := CellKey(id, FieldComment)

	c.mu.Lock()
	if c.savingCells[key] {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	draft, ok := c.commentDrafts[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	table := c.selected
	c.savingCells[key] = true
	delete(c.cellErrors, key)
	c.mu.Unlock()

	c.indicators.BeginSave(key)
	err := c.source.UpdateRow(ctx, table, id, map[string]any{FieldComment: draft})
	c.indicators.FinishSave(key, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.savingCells, key)
	if err != nil {
		c.cellErrors[key] = err.Error()
		return err
	}
	c.patchRowLocked(id, FieldComment, draft)
	delete(c.commentDrafts, id)
	delete(c.editingComment, id)
	return nil
}

// SetNeedToSend saves the flag immediately; checkbox-style fields have no
// edit mode. The pending value is visible to the UI until the save settles.
func (c *Controller) SetNeedToSend(ctx context.Context, id int64, value int) error {
	key := CellKey(id, FieldNeedToSend)

	c.mu.Lock()
	if c.savingCells[key] {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	table := c.selected
	c.savingCells[key] = true
	c.pendingFlags[id] = value
	delete(c.cellErrors, key)
	c.mu.Unlock()

	c.indicators.BeginSave(key)
	err := c.source.UpdateRow(ctx, table, id, map[string]any{FieldNeedToSend: value})
	c.indicators.FinishSave(key, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.savingCells, key)
	delete(c.pendingFlags, id)
	if err != nil {
		c.cellErrors[key] = err.Error()
		return err
	}
	c.patchRowLocked(id, FieldNeedToSend, value)
	return nil
}

// patchRowLocked replaces the row for id with a copy carrying the new field
// value. Snapshot hands out the row maps themselves, so a row is never
// mutated once published; readers on other goroutines would race with an
// in-place write.
func (c *Controller) patchRowLocked(id int64, field string, value any) {
	for i, row := range c.rows {
		if rowID, ok := RowID(row); ok && rowID == id {
			patched := make(map[string]any, len(row)+1)
			for k, v := range row {
				patched[k] = v
			}
			patched[field] = value
			c.rows[i] = patched
			return
		}
	}
}

func (c *Controller) findRowLocked(id int64) (map[string]any, bool) {
	for _, row := range c.rows {
		if rowID, ok := RowID(row); ok && rowID == id {
			return row, true
		}
	}
	return nil, false
}

// RowID extracts a row's integer primary key from its id column.
func RowID(row map[string]any) (int64, bool) {
	switch v := row["id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id, true
		}
	case []byte:
		if id, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// Snapshot is a point-in-time copy of the controller state for rendering.
type Snapshot struct {
	Tables        []storage.TableOption
	Selected      string
	Columns       []string
	Rows          []map[string]any
	LoadingTables bool
	LoadingRows   bool
	TablesErr     string
	RowsErr       string
}

// Snapshot returns the current state. Row maps are shared, not copied; they
// are immutable once published (saves swap in a patched copy), so readers
// need no lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Tables:        append([]storage.TableOption(nil), c.tables...),
		Selected:      c.selected,
		Columns:       append([]string(nil), c.columns...),
		Rows:          append([]map[string]any(nil), c.rows...),
		LoadingTables: c.loadingTables,
		LoadingRows:   c.loadingRows,
		TablesErr:     c.tablesErr,
		RowsErr:       c.rowsErr,
	}
}

// CommentDraft returns the pending comment text for a row, if any.
func (c *Controller) CommentDraft(id int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	draft, ok := c.commentDrafts[id]
	return draft, ok
}

// IsEditingComment reports whether a row's comment is in edit mode.
func (c *Controller) IsEditingComment(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingComment[id]
}

// PendingFlag returns the optimistic needtosend value while a flag save is in
// flight.
func (c *Controller) PendingFlag(id int64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.pendingFlags[id]
	return value, ok
}

// CellError returns the recorded error message for a cell, if any.
func (c *Controller) CellError(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.cellErrors[key]
	return msg, ok
}

// Indicator reports the save indicator visible for a cell.
func (c *Controller) Indicator(key string) IndicatorStatus {
	return c.indicators.Status(key)
}
