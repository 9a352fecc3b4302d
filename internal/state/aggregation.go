package state

import (
	"sync"
	"time"

	"github.com/thunfischtoast/gitlab-visualizer/internal/filter"
	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
	"github.com/thunfischtoast/gitlab-visualizer/internal/tree"
)

const (
	// DataKey is the storage key of the aggregation snapshot
	DataKey = "gitlab-data"

	// CacheMaxAge is how long a persisted snapshot stays usable
	CacheMaxAge = time.Hour
)

// Aggregation holds the flat records of one aggregation cycle and the query
// applied to them. The tree, view and options are derived lazily and are
// invalidated by every mutation.
type Aggregation struct {
	mu      sync.Mutex
	storage Storage
	now     func() time.Time

	snapshot models.Snapshot
	query    filter.Query

	report    *tree.Report
	view      []models.TreeGroup
	viewValid bool
	options   *filter.Options

	expanded map[string]bool
}

// NewAggregation creates an empty state persisting through storage
func NewAggregation(storage Storage) *Aggregation {
	return &Aggregation{
		storage:  storage,
		now:      time.Now,
		query:    filter.DefaultQuery(),
		expanded: map[string]bool{},
	}
}

// SetClock replaces the time source used for cache timestamps
func (a *Aggregation) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

func (a *Aggregation) invalidate() {
	a.report = nil
	a.view = nil
	a.viewValid = false
	a.options = nil
}

// SetData replaces all flat records at once, stamps them and persists the
// snapshot
func (a *Aggregation) SetData(groups []models.Group, projects []models.Project, epics []models.Epic, issues []models.Issue) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snapshot = models.Snapshot{
		Version:   models.SnapshotVersion,
		Timestamp: a.now(),
		Groups:    groups,
		Projects:  projects,
		Epics:     epics,
		Issues:    issues,
	}
	a.invalidate()
	save(a.storage, DataKey, a.snapshot)
}

// Clear drops the flat records and the persisted snapshot
func (a *Aggregation) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snapshot = models.Snapshot{}
	a.invalidate()
	remove(a.storage, DataKey)
}

// Reset returns the state to its initial form: no data, default query,
// nothing expanded. The persisted snapshot is removed.
func (a *Aggregation) Reset() {
	a.Clear()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.query = filter.DefaultQuery()
	a.expanded = map[string]bool{}
}

// LoadFromCache replaces the flat records with the persisted snapshot if it
// exists, has the current version and is at most CacheMaxAge old. Stale or
// outdated snapshots are evicted together with the records in memory. It
// reports whether a snapshot was loaded.
func (a *Aggregation) LoadFromCache() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cached, ok := load[models.Snapshot](a.storage, DataKey)
	if !ok {
		return false
	}
	if cached.Version != models.SnapshotVersion || a.now().Sub(cached.Timestamp) > CacheMaxAge {
		remove(a.storage, DataKey)
		a.snapshot = models.Snapshot{}
		a.invalidate()
		return false
	}

	a.snapshot = cached
	a.invalidate()
	return true
}

// Snapshot returns the current flat records
func (a *Aggregation) Snapshot() models.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

// HasData reports whether any groups are loaded
func (a *Aggregation) HasData() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.snapshot.Groups) > 0
}

// CacheTimestamp returns when the current records were fetched
func (a *Aggregation) CacheTimestamp() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot.Timestamp, !a.snapshot.Timestamp.IsZero()
}

func (a *Aggregation) synthesized() tree.Report {
	if a.report == nil {
		s := a.snapshot
		report := tree.SynthesizeReport(s.Groups, s.Projects, s.Epics, s.Issues)
		a.report = &report
	}
	return *a.report
}

// Tree returns the hierarchy synthesized from the current records
func (a *Aggregation) Tree() []models.TreeGroup {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.synthesized().Tree
}

// Report returns the synthesis report of the current records
func (a *Aggregation) Report() tree.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.synthesized()
}

// Query returns the current query
func (a *Aggregation) Query() filter.Query {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

// SetQuery replaces the query
func (a *Aggregation) SetQuery(q filter.Query) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setQuery(q)
}

// UpdateQuery applies fn to a copy of the query and stores the result. fn
// runs under the state lock and must not call back into the Aggregation.
func (a *Aggregation) UpdateQuery(fn func(q *filter.Query)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	q := a.query
	fn(&q)
	a.setQuery(q)
}

func (a *Aggregation) setQuery(q filter.Query) {
	a.query = q
	a.view = nil
	a.viewValid = false
	a.options = nil
}

// View returns the tree filtered and sorted by the current query
func (a *Aggregation) View() []models.TreeGroup {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.viewValid {
		a.view = filter.Apply(a.synthesized().Tree, a.query)
		a.viewValid = true
	}
	return a.view
}

// Options returns the filter options offered for the current records
func (a *Aggregation) Options() filter.Options {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.options == nil {
		opts := filter.BuildOptions(a.snapshot.Issues, a.snapshot.Epics, a.query.EnabledScopedKeys)
		a.options = &opts
	}
	return *a.options
}

// IsExpanded reports whether the node with the given key is expanded
func (a *Aggregation) IsExpanded(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expanded[key]
}

// ToggleExpanded flips the expansion of one node
func (a *Aggregation) ToggleExpanded(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.expanded[key] {
		delete(a.expanded, key)
	} else {
		a.expanded[key] = true
	}
}

// ExpandAll expands every node of groups
func (a *Aggregation) ExpandAll(groups []models.TreeGroup) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, tg := range groups {
		for _, key := range tree.CollectKeys(tg) {
			a.expanded[key] = true
		}
	}
}

// CollapseAll collapses every node
func (a *Aggregation) CollapseAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expanded = map[string]bool{}
}
