package pinterest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// BaseURL is the base URL for Pinterest
	BaseURL = "https://www.pinterest.com"

	// SearchPath is the search results page for pins
	SearchPath = "/search/pins/"

	// SearchResourceEndpoint is the internal JSON search resource
	SearchResourceEndpoint = "/resource/BaseSearchResource/get/"

	// PWSDataScriptID identifies the script element holding the page's state
	PWSDataScriptID = "__PWS_DATA__"

	// SearchScope restricts resource results to pins
	SearchScope = "pins"

	// MinPageSize is the smallest page requested from the search resource
	MinPageSize = 25
)

// SearchOptions is the "options" member of the resource request payload
type SearchOptions struct {
	Query    string `json:"query"`
	Scope    string `json:"scope"`
	PageSize int    `json:"page_size"`
}

// SearchRequest is the JSON document sent in the "data" parameter
type SearchRequest struct {
	Options SearchOptions  `json:"options"`
	Context map[string]any `json:"context"`
}

// EscapeQuery percent-encodes a query for use inside a URL. Spaces become
// %20 and slashes are left as is.
func EscapeQuery(query string) string {
	return queryEscaper.Replace(url.QueryEscape(query))
}

var queryEscaper = strings.NewReplacer("+", "%20", "%2F", "/")

// SearchSourcePath returns the site-relative search page for query
func SearchSourcePath(query string) string {
	return fmt.Sprintf("%s?q=%s", SearchPath, EscapeQuery(query))
}

// SearchPageURL constructs the search results page URL for query
func SearchPageURL(base, query string) string {
	return strings.TrimRight(base, "/") + SearchSourcePath(query)
}

// PageSize returns the page size requested for a result limit
func PageSize(limit int) int {
	if limit < MinPageSize {
		return MinPageSize
	}
	return limit
}

// SearchResourceURL constructs the resource API URL for query. now supplies
// the millisecond cache-busting parameter.
func SearchResourceURL(base, query string, limit int, now time.Time) (string, error) {
	data, err := json.Marshal(SearchRequest{
		Options: SearchOptions{
			Query:    query,
			Scope:    SearchScope,
			PageSize: PageSize(limit),
		},
		Context: map[string]any{},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode search payload: %w", err)
	}

	params := url.Values{}
	params.Set("source_url", SearchSourcePath(query))
	params.Set("data", string(data))
	params.Set("_", strconv.FormatInt(now.UnixMilli(), 10))

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), SearchResourceEndpoint, params.Encode()), nil
}
