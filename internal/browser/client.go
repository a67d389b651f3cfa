// internal/browser/client.go
package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shiftline/lineboard/api/models"
	"github.com/shiftline/lineboard/internal/storage"
)

// Client is the HTTP DataSource talking to the lineboard server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client for the given server base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ListTables implements DataSource.
func (c *Client) ListTables(ctx context.Context) ([]storage.TableOption, error) {
	var resp models.TablesResponse
	if err := c.getJSON(ctx, "/tables", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tables, nil
}

// FetchRows implements DataSource.
func (c *Client) FetchRows(ctx context.Context, table string, opts FetchOptions) (*models.RowsResponse, error) {
	params := url.Values{}
	params.Set("table", table)
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.LineID != "" {
		params.Set("lineId", opts.LineID)
	}
	if opts.Since != "" {
		params.Set("since", opts.Since)
	}

	var resp models.RowsResponse
	if err := c.getJSON(ctx, "/tables", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateRow implements DataSource.
func (c *Client) UpdateRow(ctx context.Context, table string, id int64, updates map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"table":   table,
		"id":      id,
		"updates": updates,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.BaseURL+"/tables/update", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return decodeAPIError(res)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	target := c.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return decodeAPIError(res)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeAPIError(res *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("server: %s", body.Error)
	}
	return fmt.Errorf("server returned status %d", res.StatusCode)
}
