package filter

import (
	"sort"
	"strings"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

// Options are the values offered by the filter controls. They are computed
// from the unfiltered data so they do not shrink as filters narrow the view.
type Options struct {
	// Labels are plain labels plus scoped labels whose key is not active
	Labels []string `json:"labels"`

	// ScopedKeys are all scoped-label keys present in the data
	ScopedKeys []string `json:"scoped_keys"`

	// ActiveScopedKeys are the enabled keys that are present in the data
	ActiveScopedKeys []string `json:"active_scoped_keys"`

	ScopedValues map[string][]string `json:"scoped_values"`

	Assignees []models.Assignee `json:"assignees"`
}

// BuildOptions derives the filter options from issue and epic labels and
// issue assignees
func BuildOptions(issues []models.Issue, epics []models.Epic, enabledScopedKeys []string) Options {
	var labelSets [][]string
	for _, issue := range issues {
		labelSets = append(labelSets, issue.Labels)
	}
	for _, epic := range epics {
		labelSets = append(labelSets, epic.Labels)
	}

	values := map[string]map[string]bool{}
	for _, labels := range labelSets {
		for _, label := range labels {
			if scoped, ok := ParseScopedLabel(label); ok {
				if values[scoped.Key] == nil {
					values[scoped.Key] = map[string]bool{}
				}
				values[scoped.Key][scoped.Value] = true
			}
		}
	}

	opts := Options{
		ScopedKeys:       sortedKeys(values),
		ActiveScopedKeys: []string{},
		ScopedValues:     make(map[string][]string, len(values)),
	}
	for key, set := range values {
		opts.ScopedValues[key] = sortedKeys(set)
	}

	active := map[string]bool{}
	for _, key := range enabledScopedKeys {
		if values[key] != nil && !active[key] {
			active[key] = true
			opts.ActiveScopedKeys = append(opts.ActiveScopedKeys, key)
		}
	}

	plain := map[string]bool{}
	for _, labels := range labelSets {
		for _, label := range labels {
			if scoped, ok := ParseScopedLabel(label); ok && active[scoped.Key] {
				continue
			}
			plain[label] = true
		}
	}
	opts.Labels = sortedKeys(plain)

	seen := map[string]bool{}
	opts.Assignees = []models.Assignee{}
	for _, issue := range issues {
		for _, assignee := range issue.Assignees {
			if !seen[assignee.Username] {
				seen[assignee.Username] = true
				opts.Assignees = append(opts.Assignees, assignee)
			}
		}
	}
	sort.SliceStable(opts.Assignees, func(i, j int) bool {
		return strings.ToLower(opts.Assignees[i].Name) < strings.ToLower(opts.Assignees[j].Name)
	})

	return opts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
