package filter

import (
	"sort"
	"strings"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

// Apply returns the view of tree under q. Groups, projects and epic buckets
// keep their order; only issues inside a bucket are sorted. When nothing
// filters and the sort is the default, tree itself is returned.
func Apply(tree []models.TreeGroup, q Query) []models.TreeGroup {
	if !q.IsFiltering() && q.IsDefaultSort() {
		return tree
	}

	m := newMatcher(q)
	view := []models.TreeGroup{}
	for _, tg := range tree {
		if filtered, ok := m.group(tg); ok {
			view = append(view, filtered)
		}
	}
	return view
}

type matcher struct {
	q      Query
	search string
}

func newMatcher(q Query) *matcher {
	return &matcher{q: q, search: strings.ToLower(q.SearchText)}
}

func (m *matcher) group(tg models.TreeGroup) (models.TreeGroup, bool) {
	out := models.TreeGroup{
		Group:     tg.Group,
		Subgroups: []models.TreeGroup{},
		Projects:  []models.TreeProject{},
	}
	for _, sub := range tg.Subgroups {
		if filtered, ok := m.group(sub); ok {
			out.Subgroups = append(out.Subgroups, filtered)
		}
	}
	for _, tp := range tg.Projects {
		if filtered, ok := m.project(tp); ok {
			out.Projects = append(out.Projects, filtered)
		}
	}
	return out, len(out.Subgroups) > 0 || len(out.Projects) > 0
}

func (m *matcher) project(tp models.TreeProject) (models.TreeProject, bool) {
	out := models.TreeProject{Project: tp.Project, Epics: []models.TreeEpic{}}
	for _, te := range tp.Epics {
		filtered := m.epic(te)
		if len(filtered.Issues) > 0 || m.epicMatchesSearch(te.Epic) {
			out.Epics = append(out.Epics, filtered)
		}
	}
	return out, len(out.Epics) > 0
}

func (m *matcher) epic(te models.TreeEpic) models.TreeEpic {
	issues := make([]models.Issue, 0, len(te.Issues))
	for _, issue := range te.Issues {
		if m.matches(issue) {
			issues = append(issues, issue)
		}
	}

	sortIssues(issues, m.q.SortField, m.q.SortDirection)

	if m.search != "" {
		// Title matches first, then description-only matches.
		sort.SliceStable(issues, func(i, j int) bool {
			return m.titleMatches(issues[i].Title) && !m.titleMatches(issues[j].Title)
		})
	}

	return models.TreeEpic{Epic: te.Epic, Issues: issues}
}

func (m *matcher) titleMatches(title string) bool {
	return strings.Contains(strings.ToLower(title), m.search)
}

func (m *matcher) textMatches(title, description string) bool {
	return m.titleMatches(title) || strings.Contains(strings.ToLower(description), m.search)
}

func (m *matcher) epicMatchesSearch(epic *models.Epic) bool {
	if epic == nil || m.search == "" {
		return false
	}
	return m.textMatches(epic.Title, epic.Description)
}

// matches reports whether the issue passes every active predicate
func (m *matcher) matches(issue models.Issue) bool {
	if m.search != "" && !m.textMatches(issue.Title, issue.Description) {
		return false
	}

	if m.q.Status != "" && m.q.Status != StatusAll && issue.State != string(m.q.Status) {
		return false
	}

	if len(m.q.Labels) > 0 && !anyLabel(issue, m.q.Labels) {
		return false
	}

	if len(m.q.Assignees) > 0 && !anyAssignee(issue, m.q.Assignees) {
		return false
	}

	for key, values := range m.q.ScopedLabels {
		if len(values) == 0 {
			continue
		}
		scoped := make([]string, len(values))
		for i, value := range values {
			scoped[i] = key + "::" + value
		}
		if !anyLabel(issue, scoped) {
			return false
		}
	}

	return true
}

func anyLabel(issue models.Issue, labels []string) bool {
	for _, label := range labels {
		if issue.HasLabel(label) {
			return true
		}
	}
	return false
}

func anyAssignee(issue models.Issue, usernames []string) bool {
	for _, username := range usernames {
		for _, assignee := range issue.Assignees {
			if assignee.Username == username {
				return true
			}
		}
	}
	return false
}

// sortIssues orders issues in place. Equal keys keep their relative order.
func sortIssues(issues []models.Issue, field SortField, direction SortDirection) {
	if (field == "" || field == SortIID) && direction != Descending {
		return
	}

	compare := func(a, b models.Issue) int {
		switch field {
		case SortTitle:
			return strings.Compare(a.Title, b.Title)
		case SortStatus:
			return strings.Compare(a.State, b.State)
		default:
			switch {
			case a.IID < b.IID:
				return -1
			case a.IID > b.IID:
				return 1
			}
			return 0
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		c := compare(issues[i], issues[j])
		if direction == Descending {
			return c > 0
		}
		return c < 0
	})
}
