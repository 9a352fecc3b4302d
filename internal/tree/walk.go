package tree

import (
	"fmt"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

// CountIssues counts the issues of a group and all its subgroups
func CountIssues(tg models.TreeGroup) int {
	count := 0
	for _, project := range tg.Projects {
		for _, epic := range project.Epics {
			count += len(epic.Issues)
		}
	}
	for _, sub := range tg.Subgroups {
		count += CountIssues(sub)
	}
	return count
}

// CollectKeys returns the node keys of a group and everything below it, in
// depth-first order. Keys identify nodes across recomputations of the tree.
func CollectKeys(tg models.TreeGroup) []string {
	keys := []string{GroupKey(tg.Group)}
	for _, sub := range tg.Subgroups {
		keys = append(keys, CollectKeys(sub)...)
	}
	for _, project := range tg.Projects {
		keys = append(keys, ProjectKey(project.Project))
		for _, te := range project.Epics {
			keys = append(keys, EpicKey(project.Project, te.Epic))
		}
	}
	return keys
}

// GroupKey is the node key of a group
func GroupKey(group models.Group) string {
	return fmt.Sprintf("group-%d", group.ID)
}

// ProjectKey is the node key of a project
func ProjectKey(project models.Project) string {
	return fmt.Sprintf("project-%d", project.ID)
}

// EpicKey is the node key of an epic bucket. The no-epic bucket is keyed by
// its project because it exists once per project.
func EpicKey(project models.Project, epic *models.Epic) string {
	if epic == nil {
		return fmt.Sprintf("no-epic-%d", project.ID)
	}
	return fmt.Sprintf("epic-%d-%d", epic.GroupID, epic.IID)
}
