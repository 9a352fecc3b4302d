// Package filter derives the filtered, sorted and search-annotated view of a
// synthesized tree. Every function is pure: the view is recomputed from the
// tree and the query, never edited in place.
package filter

import (
	"strings"
)

// Status restricts issues by lifecycle state
type Status string

const (
	StatusAll    Status = "all"
	StatusOpened Status = "opened"
	StatusClosed Status = "closed"
)

// SortField selects the issue attribute issues are ordered by
type SortField string

const (
	SortIID    SortField = "iid"
	SortTitle  SortField = "title"
	SortStatus SortField = "status"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// DefaultScopedKeys are the scoped-label keys shown as their own filter
// columns until the user picks others
var DefaultScopedKeys = []string{"Partner", "Priority", "State", "Type"}

// Query is the complete filter, sort and search state
type Query struct {
	SearchText string `json:"search_text" yaml:"search_text"`

	// Labels matches issues carrying any of the labels
	Labels []string `json:"labels" yaml:"labels"`

	// ScopedLabels maps a scoped-label key to accepted values. Values of one
	// key are ORed, keys are ANDed.
	ScopedLabels map[string][]string `json:"scoped_labels" yaml:"scoped_labels"`

	Status Status `json:"status" yaml:"status"`

	// Assignees matches issues assigned to any of the usernames
	Assignees []string `json:"assignees" yaml:"assignees"`

	SortField     SortField     `json:"sort_field" yaml:"sort_field"`
	SortDirection SortDirection `json:"sort_direction" yaml:"sort_direction"`

	// EnabledScopedKeys decides which scoped keys get dedicated columns
	// instead of being listed with the plain labels
	EnabledScopedKeys []string `json:"enabled_scoped_keys" yaml:"enabled_scoped_keys"`
}

// DefaultQuery returns the initial state: open issues, sorted by iid ascending
func DefaultQuery() Query {
	return Query{
		Status:            StatusOpened,
		ScopedLabels:      map[string][]string{},
		SortField:         SortIID,
		SortDirection:     Ascending,
		EnabledScopedKeys: append([]string(nil), DefaultScopedKeys...),
	}
}

func (q Query) hasScopedFilters() bool {
	for _, values := range q.ScopedLabels {
		if len(values) > 0 {
			return true
		}
	}
	return false
}

// IsFiltering reports whether any predicate can remove an issue
func (q Query) IsFiltering() bool {
	return q.SearchText != "" ||
		len(q.Labels) > 0 ||
		(q.Status != "" && q.Status != StatusAll) ||
		len(q.Assignees) > 0 ||
		q.hasScopedFilters()
}

// IsDefaultSort reports whether issues keep their synthesized order
func (q Query) IsDefaultSort() bool {
	return (q.SortField == "" || q.SortField == SortIID) && q.SortDirection != Descending
}

// HasActiveFilters reports whether the filters differ from DefaultQuery
func (q Query) HasActiveFilters() bool {
	return q.SearchText != "" ||
		len(q.Labels) > 0 ||
		q.Status != StatusOpened ||
		len(q.Assignees) > 0 ||
		q.hasScopedFilters()
}

// ClearFilters resets the filters; sort and enabled scoped keys are kept
func (q *Query) ClearFilters() {
	q.SearchText = ""
	q.Labels = nil
	q.ScopedLabels = map[string][]string{}
	q.Status = StatusOpened
	q.Assignees = nil
}

// SetScopedLabelFilter replaces the accepted values for one scoped key
func (q *Query) SetScopedLabelFilter(key string, values []string) {
	scoped := make(map[string][]string, len(q.ScopedLabels)+1)
	for k, v := range q.ScopedLabels {
		scoped[k] = v
	}
	scoped[key] = values
	q.ScopedLabels = scoped
}

// ToggleSort flips the direction when field is already selected, otherwise
// selects field ascending
func (q *Query) ToggleSort(field SortField) {
	if q.SortField == field {
		if q.SortDirection == Descending {
			q.SortDirection = Ascending
		} else {
			q.SortDirection = Descending
		}
		return
	}
	q.SortField = field
	q.SortDirection = Ascending
}

// ScopedLabel is a label of the form key::value
type ScopedLabel struct {
	Key   string
	Value string
}

// ParseScopedLabel splits a key::value label at the first separator
func ParseScopedLabel(label string) (ScopedLabel, bool) {
	key, value, ok := strings.Cut(label, "::")
	if !ok {
		return ScopedLabel{}, false
	}
	return ScopedLabel{Key: key, Value: value}, true
}
