package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID int `json:"id"`
}

// pagedHandler serves three pages of two items, linking them with X-Next-Page
func pagedHandler(t *testing.T, hits map[string]int, mu *sync.Mutex, intercept func(w http.ResponseWriter, r *http.Request, page string) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		mu.Lock()
		hits[page]++
		mu.Unlock()

		if intercept != nil && intercept(w, r, page) {
			return
		}

		switch page {
		case "1":
			w.Header().Set("X-Next-Page", "2")
			writeJSON(w, `[{"id":1},{"id":2}]`)
		case "2":
			w.Header().Set("X-Next-Page", "3")
			writeJSON(w, `[{"id":3},{"id":4}]`)
		case "3":
			w.Header().Set("X-Next-Page", "")
			writeJSON(w, `[{"id":5},{"id":6}]`)
		default:
			t.Errorf("unexpected page %q", page)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestFetchAllPages_FollowsNextPageHeader(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	hits := map[string]int{}
	client, _ := newTestClient(t, pagedHandler(t, hits, &mu, nil), ClientConfig{})

	var pages []int
	items, err := FetchAllPages[item](context.Background(), client, "/groups", func(page int) {
		pages = append(pages, page)
	})
	require.NoError(t, err)

	assert.Equal(t, []item{{1}, {2}, {3}, {4}, {5}, {6}}, items)
	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1}, hits)
}

func TestFetchAllPages_AppendsToExistingQuery(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("top_level_only"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		writeJSON(w, `[]`)
	}), ClientConfig{})

	items, err := FetchAllPages[item](context.Background(), client, "/groups?top_level_only=false", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestFetchAllPages_StopsOnNonNumericNextPage(t *testing.T) {
	t.Parallel()

	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-Next-Page", "soon")
		writeJSON(w, `[{"id":1}]`)
	}), ClientConfig{})

	items, err := FetchAllPages[item](context.Background(), client, "/groups", nil)
	require.NoError(t, err)
	assert.Equal(t, []item{{1}}, items)
	assert.Equal(t, 1, calls)
}

func TestFetchAllPages_ReplaysOnlyCurrentPageAfterUnauthorized(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	hits := map[string]int{}
	failed := false
	handler := pagedHandler(t, hits, &mu, func(w http.ResponseWriter, r *http.Request, page string) bool {
		if page == "2" && !failed {
			failed = true
			w.WriteHeader(http.StatusUnauthorized)
			return true
		}
		if page != "1" && r.Header.Get("PRIVATE-TOKEN") != "refreshed" {
			t.Errorf("page %s sent with stale token", page)
		}
		return false
	})

	refreshes := 0
	client, _ := newTestClient(t, handler, ClientConfig{Refresh: func(ctx context.Context) (string, error) {
		refreshes++
		return "refreshed", nil
	}})

	var pages []int
	items, err := FetchAllPages[item](context.Background(), client, "/groups", func(page int) {
		pages = append(pages, page)
	})
	require.NoError(t, err)

	assert.Equal(t, []item{{1}, {2}, {3}, {4}, {5}, {6}}, items)
	assert.Equal(t, map[string]int{"1": 1, "2": 2, "3": 1}, hits)
	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, 1, refreshes)
}

func TestFetchAllPages_AbortsWithoutPartialResult(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	hits := map[string]int{}
	client, _ := newTestClient(t, pagedHandler(t, hits, &mu, func(w http.ResponseWriter, r *http.Request, page string) bool {
		if page == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return true
		}
		return false
	}), ClientConfig{})

	items, err := FetchAllPages[item](context.Background(), client, "/groups", nil)
	require.Error(t, err)
	assert.Nil(t, items)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Zero(t, hits["3"], "pagination must stop after a failed page")
}

func TestFetchAllPages_StopsWhenNextPageDoesNotAdvance(t *testing.T) {
	t.Parallel()

	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-Next-Page", fmt.Sprint(1))
		writeJSON(w, `[{"id":1}]`)
	}), ClientConfig{})

	_, err := FetchAllPages[item](context.Background(), client, "/groups", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
