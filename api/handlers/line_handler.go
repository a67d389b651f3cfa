// api/handlers/line_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shiftline/lineboard/api/models"
	"github.com/shiftline/lineboard/config"
	"github.com/shiftline/lineboard/internal/core"
	"github.com/shiftline/lineboard/internal/storage"
)

// LineHandler serves the per-production-line dashboard endpoints over the
// primary dataset.
type LineHandler struct {
	DB      *storage.DB
	Cfg     *config.Config
	primary core.TableIdentifier
}

// NewLineHandler creates a new LineHandler.
func NewLineHandler(db *storage.DB, cfg *config.Config) *LineHandler {
	// PRIMARY_TABLE is validated at config load.
	primary, _ := core.ParseTableIdentifier(cfg.PrimaryTable)
	return &LineHandler{DB: db, Cfg: cfg, primary: primary}
}

// ListLines serves GET /lines.
func (h *LineHandler) ListLines(c *gin.Context) {
	lines, err := h.DB.ListLines(c.Request.Context(), h.primary)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, models.LinesResponse{Lines: lines})
}

// Dashboard serves GET /lines/:line_id/dashboard.
func (h *LineHandler) Dashboard(c *gin.Context) {
	lineID := c.Param("line_id")

	dash, err := h.DB.LineDashboard(c.Request.Context(), h.primary, lineID,
		h.Cfg.DashboardWindow, h.Cfg.DashboardRecentLimit)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	customLog.Printf("Handler: Dashboard for line %s: %d rows", lineID, dash.RowCount)
	c.JSON(http.StatusOK, dash)
}
