package tree

import (
	"errors"
	"fmt"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

// Check verifies the structural invariants of a synthesized tree:
//   - no group or project appears twice
//   - no project lists the same epic (or the no-epic bucket) twice
//   - every epic belongs to its project's group or one of that group's ancestors
//
// It returns nil for a consistent tree, or an error joining every violation.
func Check(tree []models.TreeGroup) error {
	c := &checker{
		groups:   map[int64]bool{},
		projects: map[int64]bool{},
	}
	for _, root := range tree {
		c.group(root, nil)
	}
	return errors.Join(c.violations...)
}

type checker struct {
	groups     map[int64]bool
	projects   map[int64]bool
	violations []error
}

func (c *checker) fail(format string, args ...any) {
	c.violations = append(c.violations, fmt.Errorf(format, args...))
}

func (c *checker) group(tg models.TreeGroup, ancestors []int64) {
	if c.groups[tg.Group.ID] {
		c.fail("group %d appears more than once", tg.Group.ID)
	}
	c.groups[tg.Group.ID] = true

	chain := append(append([]int64(nil), ancestors...), tg.Group.ID)

	for _, tp := range tg.Projects {
		if c.projects[tp.Project.ID] {
			c.fail("project %d appears more than once", tp.Project.ID)
		}
		c.projects[tp.Project.ID] = true
		c.project(tp, chain)
	}
	for _, sub := range tg.Subgroups {
		c.group(sub, chain)
	}
}

func (c *checker) project(tp models.TreeProject, chain []int64) {
	seen := map[string]bool{}
	for _, te := range tp.Epics {
		key := "no-epic"
		if te.Epic != nil {
			key = fmt.Sprintf("epic-%d", te.Epic.ID)
			if !contains(chain, te.Epic.GroupID) {
				c.fail("project %d lists epic %d of group %d outside its ancestor chain", tp.Project.ID, te.Epic.ID, te.Epic.GroupID)
			}
		}
		if seen[key] {
			c.fail("project %d lists %s more than once", tp.Project.ID, key)
		}
		seen[key] = true
	}
}

func contains(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
