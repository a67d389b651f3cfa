// api/models/browse_models.go
package models

import "github.com/shiftline/lineboard/internal/storage"

// TablesResponse is the table-listing branch of GET /tables.
type TablesResponse struct {
	Tables []storage.TableOption `json:"tables"`
}

// RowsResponse is the row-fetch branch of GET /tables. Exactly one of Limit
// and Since is echoed, matching the filter that actually applied; LineID is
// null when the scope filter was dropped by the fallback ladder.
type RowsResponse struct {
	Table    string           `json:"table"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"rowCount"`
	Limit    *int             `json:"limit,omitempty"`
	Since    *string          `json:"since,omitempty"`
	LineID   *string          `json:"lineId"`
}

// UpdateResponse acknowledges a successful PATCH /tables/update.
type UpdateResponse struct {
	Success bool `json:"success"`
}

// LinesResponse lists the known production line identifiers.
type LinesResponse struct {
	Lines []string `json:"lines"`
}
