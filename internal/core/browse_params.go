// internal/core/browse_params.go
package core

import (
	"net/url"
	"strconv"
	"time"
)

// Default and limit constants for row browsing
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Date layouts accepted for the 'since' boundary.
var sinceLayouts = []string{"2006-01-02", time.RFC3339}

// BrowseOptions holds parsed query parameters for a row fetch.
type BrowseOptions struct {
	// Limit is always within [1, MaxLimit]; absent or invalid input falls
	// back to DefaultLimit.
	Limit int

	// LineID scopes rows to one production line when non-empty.
	LineID string

	// Since restricts rows to ones created on or after the boundary.
	Since *time.Time
}

// ParseBrowseOptions extracts limit, line scope and since boundary from query
// parameters. Invalid values degrade to defaults rather than failing: the
// browser must stay usable against hand-edited URLs.
func ParseBrowseOptions(queryParams url.Values) BrowseOptions {
	opts := BrowseOptions{Limit: DefaultLimit}

	if limitStr := queryParams.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit >= 1 {
			if limit > MaxLimit {
				limit = MaxLimit
			}
			opts.Limit = limit
		}
	}

	opts.LineID = queryParams.Get("lineId")

	if sinceStr := queryParams.Get("since"); sinceStr != "" {
		for _, layout := range sinceLayouts {
			if ts, err := time.Parse(layout, sinceStr); err == nil {
				opts.Since = &ts
				break
			}
		}
	}

	return opts
}
