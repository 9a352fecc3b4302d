package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// PerPage is the page size requested from every paginated endpoint
const PerPage = 100

// FetchAllPages walks a paginated endpoint from page 1, following the
// X-Next-Page header until it is absent or not a number. onPage, if set, is
// called with the 1-based number of each completed page. A 401 on any page
// refreshes the credential and replays only that page. Any other error aborts
// the walk and no partial result is returned.
func FetchAllPages[T any](ctx context.Context, c *GitLabClient, path string, onPage func(page int)) ([]T, error) {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}

	results := make([]T, 0)
	page := 1

	for {
		url := fmt.Sprintf("%s%s%s%sper_page=%d&page=%d", c.baseURL, apiPrefix, path, separator, PerPage, page)
		resp, err := c.request(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of %s: %w", page, path, err)
		}

		var items []T
		if err := json.Unmarshal(resp.body, &items); err != nil {
			return nil, fmt.Errorf("failed to decode page %d of %s: %w", page, path, err)
		}
		results = append(results, items...)

		if onPage != nil {
			onPage(page)
		}

		next, err := strconv.Atoi(strings.TrimSpace(resp.header.Get("X-Next-Page")))
		// A page number that does not advance would loop forever.
		if err != nil || next <= page {
			break
		}
		page = next
	}

	return results, nil
}
