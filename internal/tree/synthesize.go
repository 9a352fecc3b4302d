// Package tree turns the flat group, project, epic and issue lists fetched
// from GitLab into a group > subgroup > project > epic > issue hierarchy.
//
// An issue may reference an epic owned by any ancestor of its project's
// group, so epics are looked up along the whole ancestor chain. Epic IIDs are
// only unique within their group and are always keyed together with it.
package tree

import (
	"fmt"

	"github.com/thunfischtoast/gitlab-visualizer/internal/debug"
	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

// Report is the outcome of a synthesis run
type Report struct {
	Tree []models.TreeGroup

	// Unresolved holds issues of attached projects whose epic reference did
	// not match any epic on the project's ancestor chain. They are not part of
	// Tree.
	Unresolved []models.Issue

	// Duplicates lists records dropped because an earlier record had the same id
	Duplicates []string
}

// Synthesize builds the hierarchy. It is a pure function of its inputs and
// returns an empty tree when there are no groups.
func Synthesize(groups []models.Group, projects []models.Project, epics []models.Epic, issues []models.Issue) []models.TreeGroup {
	return SynthesizeReport(groups, projects, epics, issues).Tree
}

// SynthesizeReport builds the hierarchy and reports what was left out of it
func SynthesizeReport(groups []models.Group, projects []models.Project, epics []models.Epic, issues []models.Issue) Report {
	if len(groups) == 0 {
		return Report{Tree: []models.TreeGroup{}}
	}

	ix := NewIndex(groups, projects, epics, issues)
	report := Report{Duplicates: ix.duplicates}

	roots := ix.Roots()
	report.Tree = make([]models.TreeGroup, 0, len(roots))
	for _, root := range roots {
		report.Tree = append(report.Tree, ix.buildGroup(root, map[int64]bool{}, &report))
	}

	for _, issue := range report.Unresolved {
		debug.Log("tree", "dropping issue %d (project %d): epic reference resolves to no reachable epic", issue.ID, issue.ProjectID)
	}
	if debug.Enabled() {
		if err := Check(report.Tree); err != nil {
			debug.Log("tree", "invariant violations: %v", err)
		}
	}

	return report
}

type epicKey struct {
	groupID int64
	iid     int64
}

// Index holds the lookups derived from one set of flat records. Every
// bucket preserves input order.
type Index struct {
	groups          []models.Group
	groupByID       map[int64]models.Group
	childrenOf      map[int64][]models.Group
	projectsByGroup map[int64][]models.Project
	epicsByGroup    map[int64][]models.Epic
	epicByKey       map[epicKey]models.Epic
	issuesByProject map[int64][]models.Issue

	duplicates []string
}

// NewIndex indexes the flat records. Records repeating an id already seen are
// dropped, keeping the first occurrence.
func NewIndex(groups []models.Group, projects []models.Project, epics []models.Epic, issues []models.Issue) *Index {
	ix := &Index{
		groupByID:       make(map[int64]models.Group, len(groups)),
		childrenOf:      make(map[int64][]models.Group),
		projectsByGroup: make(map[int64][]models.Project),
		epicsByGroup:    make(map[int64][]models.Epic),
		epicByKey:       make(map[epicKey]models.Epic, len(epics)),
		issuesByProject: make(map[int64][]models.Issue),
	}

	for _, group := range groups {
		if _, ok := ix.groupByID[group.ID]; ok {
			ix.duplicate("group", group.ID)
			continue
		}
		ix.groupByID[group.ID] = group
		ix.groups = append(ix.groups, group)
	}
	for _, group := range ix.groups {
		if group.ParentID != nil {
			ix.childrenOf[*group.ParentID] = append(ix.childrenOf[*group.ParentID], group)
		}
	}

	seenProjects := make(map[int64]bool, len(projects))
	for _, project := range projects {
		if seenProjects[project.ID] {
			ix.duplicate("project", project.ID)
			continue
		}
		seenProjects[project.ID] = true
		ix.projectsByGroup[project.Namespace.ID] = append(ix.projectsByGroup[project.Namespace.ID], project)
	}

	seenEpics := make(map[int64]bool, len(epics))
	for _, epic := range epics {
		key := epicKey{groupID: epic.GroupID, iid: epic.IID}
		if _, ok := ix.epicByKey[key]; seenEpics[epic.ID] || ok {
			ix.duplicate("epic", epic.ID)
			continue
		}
		seenEpics[epic.ID] = true
		ix.epicByKey[key] = epic
		ix.epicsByGroup[epic.GroupID] = append(ix.epicsByGroup[epic.GroupID], epic)
	}

	seenIssues := make(map[int64]bool, len(issues))
	for _, issue := range issues {
		if seenIssues[issue.ID] {
			ix.duplicate("issue", issue.ID)
			continue
		}
		seenIssues[issue.ID] = true
		ix.issuesByProject[issue.ProjectID] = append(ix.issuesByProject[issue.ProjectID], issue)
	}

	return ix
}

func (ix *Index) duplicate(kind string, id int64) {
	entry := fmt.Sprintf("%s %d", kind, id)
	ix.duplicates = append(ix.duplicates, entry)
	debug.Log("tree", "duplicate %s dropped", entry)
}

// Roots returns the groups whose parent is nil or was not fetched
func (ix *Index) Roots() []models.Group {
	known := make(map[int64]bool, len(ix.groupByID))
	for id := range ix.groupByID {
		known[id] = true
	}

	var roots []models.Group
	for _, group := range ix.groups {
		if group.IsRootOf(known) {
			roots = append(roots, group)
		}
	}
	return roots
}

// Chain returns the group followed by its ancestors, nearest first. The walk
// stops at a parent that was not fetched or that was already visited.
func (ix *Index) Chain(groupID int64) []int64 {
	if _, ok := ix.groupByID[groupID]; !ok {
		return nil
	}

	visited := map[int64]bool{}
	var chain []int64
	current := groupID
	for {
		if visited[current] {
			break
		}
		group, ok := ix.groupByID[current]
		if !ok {
			break
		}
		visited[current] = true
		chain = append(chain, current)
		if group.ParentID == nil {
			break
		}
		current = *group.ParentID
	}
	return chain
}

// AvailableEpics returns the epics an issue in the group may belong to: the
// epics of every group on its ancestor chain, from the root down to the
// group itself.
func (ix *Index) AvailableEpics(groupID int64) []models.Epic {
	chain := ix.Chain(groupID)

	var available []models.Epic
	seen := map[int64]bool{}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, epic := range ix.epicsByGroup[chain[i]] {
			if seen[epic.ID] {
				continue
			}
			seen[epic.ID] = true
			available = append(available, epic)
		}
	}
	return available
}

// resolveEpic finds the epic an issue belongs to. It returns ok=false for
// issues without an epic reference and found=false for references that match
// nothing on the chain.
func (ix *Index) resolveEpic(issue models.Issue, chain []int64) (epic models.Epic, ok bool, found bool) {
	if issue.Epic != nil && issue.Epic.GroupID != 0 {
		for _, groupID := range chain {
			if groupID == issue.Epic.GroupID {
				epic, found = ix.epicByKey[epicKey{groupID: groupID, iid: issue.Epic.IID}]
				return epic, true, found
			}
		}
		return models.Epic{}, true, false
	}

	if issue.EpicIID == nil {
		return models.Epic{}, false, false
	}

	// Nearest group first: a subgroup epic shadows an ancestor epic with the same iid.
	for _, groupID := range chain {
		if epic, found := ix.epicByKey[epicKey{groupID: groupID, iid: *issue.EpicIID}]; found {
			return epic, true, true
		}
	}
	return models.Epic{}, true, false
}

func (ix *Index) buildProject(project models.Project, report *Report) models.TreeProject {
	chain := ix.Chain(project.Namespace.ID)

	byEpic := make(map[int64][]models.Issue)
	var noEpic []models.Issue
	for _, issue := range ix.issuesByProject[project.ID] {
		epic, ok, found := ix.resolveEpic(issue, chain)
		switch {
		case !ok:
			noEpic = append(noEpic, issue)
		case found:
			byEpic[epic.ID] = append(byEpic[epic.ID], issue)
		default:
			report.Unresolved = append(report.Unresolved, issue)
		}
	}

	treeEpics := []models.TreeEpic{}
	for _, epic := range ix.AvailableEpics(project.Namespace.ID) {
		if epicIssues := byEpic[epic.ID]; len(epicIssues) > 0 {
			treeEpics = append(treeEpics, models.TreeEpic{Epic: &epic, Issues: epicIssues})
		}
	}
	if len(noEpic) > 0 {
		treeEpics = append(treeEpics, models.TreeEpic{Issues: noEpic})
	}

	return models.TreeProject{Project: project, Epics: treeEpics}
}

func (ix *Index) buildGroup(group models.Group, path map[int64]bool, report *Report) models.TreeGroup {
	path[group.ID] = true
	defer delete(path, group.ID)

	projects := ix.projectsByGroup[group.ID]
	treeProjects := make([]models.TreeProject, 0, len(projects))
	for _, project := range projects {
		treeProjects = append(treeProjects, ix.buildProject(project, report))
	}

	subgroups := []models.TreeGroup{}
	for _, child := range ix.childrenOf[group.ID] {
		if path[child.ID] {
			continue
		}
		subgroups = append(subgroups, ix.buildGroup(child, path, report))
	}

	return models.TreeGroup{Group: group, Subgroups: subgroups, Projects: treeProjects}
}
