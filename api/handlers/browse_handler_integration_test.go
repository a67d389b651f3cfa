// api/handlers/browse_handler_integration_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftline/lineboard/api"
	"github.com/shiftline/lineboard/api/models"
	"github.com/shiftline/lineboard/config"
	"github.com/shiftline/lineboard/internal/storage"
)

// testDBSetup creates a temporary SQLite DB with the primary dataset seeded
// and returns the DB pool, config and cleanup func.
func testDBSetup(t *testing.T) (*storage.DB, *config.Config, func()) {
	t.Helper()

	testCfg := &config.Config{
		ServerPort:           ":0", // Use random available port
		DatabaseURL:          fmt.Sprintf("sqlite:%s", filepath.Join(t.TempDir(), "test_lineboard.db")),
		PrimaryTable:         "production_orders",
		DefaultTable:         "production_orders",
		DashboardWindow:      7 * 24 * time.Hour,
		DashboardRecentLimit: 5,
	}

	db, err := storage.Connect(testCfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database '%s': %v", testCfg.DatabaseURL, err)
	}

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
	db.MustExec(`CREATE TABLE audits (id INTEGER PRIMARY KEY, note TEXT)`)

	now := time.Now().UTC().Truncate(time.Second)
	db.MustExec(`INSERT INTO production_orders (id, line_id, comment, needtosend, step, current_step, end_step, created_at) VALUES
		(1, 'L-01', 'first', 0, 'cut', 'cut', 'ship', ?),
		(2, 'L-01', 'second', 1, 'cut', 'weld', 'ship', ?),
		(3, 'L-02', NULL, 0, 'cut', 'cut', 'ship', ?)`,
		now.Add(-48*time.Hour), now.Add(-time.Hour), now)
	db.MustExec(`INSERT INTO audits (id, note) VALUES (1, 'no line column here')`)

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	}
	return db, testCfg, cleanup
}

// setupTestServer creates a test server instance with a test DB.
func setupTestServer(t *testing.T) (*httptest.Server, *storage.DB, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cfg, dbCleanup := testDBSetup(t)
	router := api.SetupRouter(db, cfg)
	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		dbCleanup()
	}
	return server, db, cleanup
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func patchJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPatch, url, bytes.NewReader(bodyBytes))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	return res, raw
}

func TestBrowseEndpoints(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)

	t.Run("Ping", func(t *testing.T) {
		res, err := http.Get(server.URL + "/ping")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(http.StatusOK, res.StatusCode)
	})

	t.Run("List Tables", func(t *testing.T) {
		var resBody models.TablesResponse
		status := getJSON(t, server.URL+"/tables", &resBody)
		assert.Equal(http.StatusOK, status)

		names := make([]string, len(resBody.Tables))
		for i, tbl := range resBody.Tables {
			names[i] = tbl.FullName
		}
		assert.Equal([]string{"audits", "production_orders"}, names)
	})

	t.Run("Browse Rows Default", func(t *testing.T) {
		var resBody models.RowsResponse
		status := getJSON(t, server.URL+"/tables?table=production_orders", &resBody)
		assert.Equal(http.StatusOK, status)

		assert.Equal("production_orders", resBody.Table)
		assert.Equal(3, resBody.RowCount)
		require.NotNil(t, resBody.Limit, "limit must be echoed when no since filter applied")
		assert.Equal(100, *resBody.Limit)
		assert.Nil(resBody.Since)
		assert.Nil(resBody.LineID)
		assert.Contains(resBody.Columns, "comment")

		// Newest first.
		assert.Equal(float64(3), resBody.Rows[0]["id"])
	})

	t.Run("Browse Rows Line Scoped", func(t *testing.T) {
		var resBody models.RowsResponse
		status := getJSON(t, server.URL+"/tables?table=production_orders&lineId=L-01&limit=1", &resBody)
		assert.Equal(http.StatusOK, status)

		assert.Equal(1, resBody.RowCount)
		require.NotNil(t, resBody.LineID, "applied line scope must be echoed")
		assert.Equal("L-01", *resBody.LineID)
		require.NotNil(t, resBody.Limit)
		assert.Equal(1, *resBody.Limit)
		assert.Equal(float64(2), resBody.Rows[0]["id"], "newest L-01 row")
	})

	t.Run("Browse Rows Since Echo", func(t *testing.T) {
		since := time.Now().UTC().Add(-2 * time.Hour).Format("2006-01-02")
		var resBody models.RowsResponse
		status := getJSON(t, server.URL+"/tables?table=production_orders&since="+since, &resBody)
		assert.Equal(http.StatusOK, status)

		require.NotNil(t, resBody.Since, "applied since boundary must be echoed")
		assert.Equal(since, *resBody.Since)
		assert.Nil(resBody.Limit, "limit is omitted when since applied")
	})

	t.Run("Browse Rows Line Scope Dropped", func(t *testing.T) {
		var resBody models.RowsResponse
		status := getJSON(t, server.URL+"/tables?table=audits&lineId=L-01", &resBody)
		assert.Equal(http.StatusOK, status)

		assert.Nil(resBody.LineID, "scope dropped by the fallback must not be echoed")
		assert.Equal(1, resBody.RowCount)
	})

	t.Run("Browse Bad Identifier", func(t *testing.T) {
		status := getJSON(t, server.URL+"/tables?table=bad-name", nil)
		assert.Equal(http.StatusBadRequest, status)
	})

	t.Run("Browse Unknown Table", func(t *testing.T) {
		status := getJSON(t, server.URL+"/tables?table=no_such_table", nil)
		assert.Equal(http.StatusNotFound, status)
	})
}

func TestUpdateEndpoint(t *testing.T) {
	server, db, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)
	updateURL := server.URL + "/tables/update"

	t.Run("Update Success", func(t *testing.T) {
		res, raw := patchJSON(t, updateURL, map[string]any{
			"table":   "production_orders",
			"id":      1,
			"updates": map[string]any{"comment": "checked by QA", "needtosend": 1},
		})
		assert.Equal(http.StatusOK, res.StatusCode, "Expected status 200 OK, body: %s", raw)

		var resBody models.UpdateResponse
		require.NoError(t, json.Unmarshal(raw, &resBody))
		assert.True(resBody.Success)

		// Verify the row changed (direct DB check).
		var got struct {
			Comment    string `db:"comment"`
			NeedToSend int    `db:"needtosend"`
		}
		require.NoError(t, db.Get(&got, `SELECT comment, needtosend FROM production_orders WHERE id = 1`))
		assert.Equal("checked by QA", got.Comment)
		assert.Equal(1, got.NeedToSend)
	})

	t.Run("Update Bad Request (Missing Table)", func(t *testing.T) {
		res, _ := patchJSON(t, updateURL, map[string]any{
			"id":      1,
			"updates": map[string]any{"comment": "x"},
		})
		assert.Equal(http.StatusBadRequest, res.StatusCode)
	})

	t.Run("Update Bad Request (Invalid Flag)", func(t *testing.T) {
		res, _ := patchJSON(t, updateURL, map[string]any{
			"table":   "production_orders",
			"id":      1,
			"updates": map[string]any{"needtosend": 2},
		})
		assert.Equal(http.StatusBadRequest, res.StatusCode)
	})

	t.Run("Update Bad Request (No Fields)", func(t *testing.T) {
		res, _ := patchJSON(t, updateURL, map[string]any{
			"table":   "production_orders",
			"id":      1,
			"updates": map[string]any{},
		})
		assert.Equal(http.StatusBadRequest, res.StatusCode)
	})

	t.Run("Update Not Found (Missing Row)", func(t *testing.T) {
		res, _ := patchJSON(t, updateURL, map[string]any{
			"table":   "production_orders",
			"id":      9999,
			"updates": map[string]any{"comment": "x"},
		})
		assert.Equal(http.StatusNotFound, res.StatusCode)
	})

	t.Run("Update Not Found (Missing Table)", func(t *testing.T) {
		res, _ := patchJSON(t, updateURL, map[string]any{
			"table":   "no_such_table",
			"id":      1,
			"updates": map[string]any{"comment": "x"},
		})
		assert.Equal(http.StatusNotFound, res.StatusCode)
	})
}

func TestLineEndpoints(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)

	t.Run("List Lines", func(t *testing.T) {
		var resBody models.LinesResponse
		status := getJSON(t, server.URL+"/lines", &resBody)
		assert.Equal(http.StatusOK, status)
		assert.Equal([]string{"L-01", "L-02"}, resBody.Lines)
	})

	t.Run("Dashboard Success", func(t *testing.T) {
		var dash storage.LineDashboard
		status := getJSON(t, server.URL+"/lines/L-01/dashboard", &dash)
		assert.Equal(http.StatusOK, status)

		assert.Equal("L-01", dash.LineID)
		assert.Equal(2, dash.RowCount)
		assert.Equal(1, dash.NeedToSendCount)
		assert.NotNil(dash.LatestCreatedAt)
		assert.NotEmpty(dash.Trend)
		assert.Len(dash.Recent, 2)
	})

	t.Run("Dashboard Unknown Line", func(t *testing.T) {
		status := getJSON(t, server.URL+"/lines/L-99/dashboard", nil)
		assert.Equal(http.StatusNotFound, status)
	})
}
