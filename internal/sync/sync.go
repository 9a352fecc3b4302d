// Package sync runs one aggregation cycle: it fetches groups, projects, epics
// and issues from GitLab and hands the flat records to the aggregation state.
package sync

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
	"github.com/thunfischtoast/gitlab-visualizer/internal/state"
)

// Client is the subset of the GitLab API used during aggregation.
// *api.GitLabClient implements it.
type Client interface {
	FetchAllGroups(ctx context.Context, onPage func(page int)) ([]models.Group, error)
	FetchProjectsForGroup(ctx context.Context, groupID int64) ([]models.Project, error)
	FetchEpicsForGroup(ctx context.Context, groupID int64) ([]models.Epic, error)
	FetchIssuesForProject(ctx context.Context, projectID int64) ([]models.Issue, error)
}

// Stats counts the records of a finished aggregation
type Stats struct {
	Groups   int
	Projects int
	Epics    int
	Issues   int
}

// Syncer fetches everything below the selected groups
type Syncer struct {
	client Client
	state  *state.Aggregation
	// Number of per-group and per-project fetches in flight. The API client
	// limits concurrent requests on its own.
	workers int
}

// New creates a new syncer
func New(client Client, aggregation *state.Aggregation) *Syncer {
	return &Syncer{
		client:  client,
		state:   aggregation,
		workers: 5,
	}
}

// SetWorkers sets the number of parallel fetches
func (s *Syncer) SetWorkers(workers int) {
	if workers < 1 {
		workers = 1
	}
	if workers > 10 {
		workers = 10
	}
	s.workers = workers
}

// Run fetches all records for the selected groups, or for every visible
// group when selected is empty, and replaces the aggregation state with them.
// On error the state is left untouched.
func (s *Syncer) Run(ctx context.Context, selected []int64) (Stats, error) {
	log.Printf("Fetching groups...")
	allGroups, err := s.client.FetchAllGroups(ctx, func(page int) {
		log.Printf("Fetched page %d of groups", page)
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to fetch groups: %w", err)
	}

	kept := SelectGroups(allGroups, selected)
	// Issues below a selected subgroup may still link epics of its ancestors.
	groups := WithAncestors(allGroups, kept)
	log.Printf("Aggregating %d of %d groups", len(groups), len(allGroups))

	projects, err := s.fetchProjects(ctx, kept)
	if err != nil {
		return Stats{}, err
	}
	log.Printf("Found %d projects", len(projects))

	epics, err := s.fetchEpics(ctx, groups)
	if err != nil {
		return Stats{}, err
	}
	log.Printf("Found %d epics", len(epics))

	issues, err := s.fetchIssues(ctx, projects)
	if err != nil {
		return Stats{}, err
	}
	log.Printf("Found %d issues", len(issues))

	s.state.SetData(groups, projects, epics, issues)

	return Stats{
		Groups:   len(groups),
		Projects: len(projects),
		Epics:    len(epics),
		Issues:   len(issues),
	}, nil
}

// SelectGroups keeps the selected groups and all their descendants, in the
// order of groups. An empty selection keeps everything.
func SelectGroups(groups []models.Group, selected []int64) []models.Group {
	if len(selected) == 0 {
		return groups
	}

	parentOf := make(map[int64]int64, len(groups))
	for _, g := range groups {
		if g.ParentID != nil {
			parentOf[g.ID] = *g.ParentID
		}
	}
	wanted := make(map[int64]bool, len(selected))
	for _, id := range selected {
		wanted[id] = true
	}

	kept := []models.Group{}
	for _, g := range groups {
		// walk up until a selected ancestor is found; seen guards parent cycles
		seen := map[int64]bool{}
		for id, ok := g.ID, true; ok && !seen[id]; id, ok = parentOf[id] {
			if wanted[id] {
				kept = append(kept, g)
				break
			}
			seen[id] = true
		}
	}
	return kept
}

// WithAncestors returns kept plus every ancestor of a kept group, in the order
// of groups.
func WithAncestors(groups []models.Group, kept []models.Group) []models.Group {
	byID := make(map[int64]models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	include := make(map[int64]bool, len(kept))
	for _, g := range kept {
		include[g.ID] = true
		for parent := g.ParentID; parent != nil; {
			ancestor, ok := byID[*parent]
			if !ok || include[ancestor.ID] {
				break
			}
			include[ancestor.ID] = true
			parent = ancestor.ParentID
		}
	}

	out := make([]models.Group, 0, len(include))
	for _, g := range groups {
		if include[g.ID] {
			out = append(out, g)
		}
	}
	return out
}

// fetchProjects lists the projects of every topmost kept group. Subgroup
// projects are included by the endpoint, so nested groups need no request of
// their own.
func (s *Syncer) fetchProjects(ctx context.Context, groups []models.Group) ([]models.Project, error) {
	known := make(map[int64]bool, len(groups))
	for _, g := range groups {
		known[g.ID] = true
	}
	var roots []models.Group
	for _, g := range groups {
		if g.IsRootOf(known) {
			roots = append(roots, g)
		}
	}

	log.Printf("Fetching projects for %d top-level groups", len(roots))
	batches, err := fetchEach(ctx, s.workers, roots, func(ctx context.Context, g models.Group) ([]models.Project, error) {
		projects, err := s.client.FetchProjectsForGroup(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch projects for group %s: %w", g.FullPath, err)
		}
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	return dedupe(batches, func(p models.Project) int64 { return p.ID }), nil
}

// fetchEpics lists the epics of every kept group. GitLab includes descendant
// group epics in each listing, so the same epic arrives several times.
func (s *Syncer) fetchEpics(ctx context.Context, groups []models.Group) ([]models.Epic, error) {
	log.Printf("Fetching epics for %d groups", len(groups))
	batches, err := fetchEach(ctx, s.workers, groups, func(ctx context.Context, g models.Group) ([]models.Epic, error) {
		epics, err := s.client.FetchEpicsForGroup(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch epics for group %s: %w", g.FullPath, err)
		}
		return epics, nil
	})
	if err != nil {
		return nil, err
	}
	return dedupe(batches, func(e models.Epic) int64 { return e.ID }), nil
}

func (s *Syncer) fetchIssues(ctx context.Context, projects []models.Project) ([]models.Issue, error) {
	total := len(projects)
	log.Printf("Fetching issues for %d projects with %d parallel workers", total, s.workers)

	var progressMutex sync.Mutex
	processed := 0

	batches, err := fetchEach(ctx, s.workers, projects, func(ctx context.Context, p models.Project) ([]models.Issue, error) {
		issues, err := s.client.FetchIssuesForProject(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch issues for project %s: %w", p.Name, err)
		}

		progressMutex.Lock()
		processed++
		log.Printf("Progress: %d/%d projects (%.1f%%)", processed, total, float64(processed)/float64(total)*100)
		progressMutex.Unlock()

		return issues, nil
	})
	if err != nil {
		return nil, err
	}
	return dedupe(batches, func(i models.Issue) int64 { return i.ID }), nil
}

// fetchEach calls fetch for every item with at most workers calls in flight.
// Results keep the order of items. The first error cancels the remaining
// calls and is returned.
func fetchEach[T, R any](ctx context.Context, workers int, items []T, fetch func(context.Context, T) ([]R, error)) ([][]R, error) {
	results := make([][]R, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			records, err := fetch(ctx, item)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dedupe flattens batches, keeping the first record per id
func dedupe[R any](batches [][]R, id func(R) int64) []R {
	seen := map[int64]bool{}
	out := []R{}
	for _, batch := range batches {
		for _, record := range batch {
			if key := id(record); !seen[key] {
				seen[key] = true
				out = append(out, record)
			}
		}
	}
	return out
}
