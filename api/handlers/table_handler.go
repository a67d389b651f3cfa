// api/handlers/table_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shiftline/lineboard/api/models"
	"github.com/shiftline/lineboard/config"
	"github.com/shiftline/lineboard/internal/core"
	"github.com/shiftline/lineboard/internal/logger"
	"github.com/shiftline/lineboard/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// TableHandler holds dependencies for the generic table browser endpoints.
type TableHandler struct {
	DB  *storage.DB
	Cfg *config.Config
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(db *storage.DB, cfg *config.Config) *TableHandler {
	return &TableHandler{DB: db, Cfg: cfg}
}

// Browse serves GET /tables. Without a table parameter it lists the eligible
// tables; with one it fetches rows through the fallback ladder.
func (h *TableHandler) Browse(c *gin.Context) {
	tableParam := c.Query("table")
	if tableParam == "" {
		h.listTables(c)
		return
	}

	table, err := core.ParseTableIdentifier(tableParam)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	opts := core.ParseBrowseOptions(c.Request.URL.Query())
	result, err := h.DB.BrowseRows(c.Request.Context(), table, opts)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	resp := models.RowsResponse{
		Table:    table.FullName(),
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: len(result.Rows),
	}
	if result.SinceApplied && opts.Since != nil {
		since := opts.Since.Format("2006-01-02")
		resp.Since = &since
	} else {
		limit := opts.Limit
		resp.Limit = &limit
	}
	if result.LineApplied {
		lineID := opts.LineID
		resp.LineID = &lineID
	}

	customLog.Printf("Handler: Browsed %s: %d rows (line applied: %v)", table.FullName(), resp.RowCount, result.LineApplied)
	c.JSON(http.StatusOK, resp)
}

func (h *TableHandler) listTables(c *gin.Context) {
	schema := c.Query("schema")
	includeSystem, _ := strconv.ParseBool(c.Query("includeSystem"))

	tables, err := h.DB.ListTables(c.Request.Context(), schema, includeSystem)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, models.TablesResponse{Tables: tables})
}

// Update serves PATCH /tables/update: a partial update of the two mutable
// fields on exactly one row.
func (h *TableHandler) Update(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON request body: " + err.Error()})
		return
	}

	req, err := storage.ParseUpdateRequest(body)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	if err := h.DB.UpdateRow(c.Request.Context(), req); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	customLog.Printf("Handler: Updated %s id %d", req.Table.FullName(), req.ID)
	c.JSON(http.StatusOK, models.UpdateResponse{Success: true})
}
