package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtree "github.com/charmbracelet/lipgloss/tree"

	"github.com/thunfischtoast/gitlab-visualizer/internal/filter"
	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
	"github.com/thunfischtoast/gitlab-visualizer/internal/tree"
)

// TextOptions control the terminal tree
type TextOptions struct {
	Dark bool

	// SearchText enables description snippets for matches outside the title
	SearchText string

	// Expanded reports whether a node shows its children. Nil expands
	// everything.
	Expanded func(key string) bool

	// Renderer defaults to a renderer for the output writer
	Renderer *lipgloss.Renderer
}

type styles struct {
	group, project, epic, noEpic lipgloss.Style
	iid, closed, label, assignee lipgloss.Style
	count, snippet, match        lipgloss.Style
	branch                       lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	muted := lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}
	return styles{
		group:    r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}),
		project:  r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}),
		epic:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}),
		noEpic:   r.NewStyle().Italic(true).Foreground(muted),
		iid:      r.NewStyle().Foreground(muted),
		closed:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}),
		label:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}),
		assignee: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#6699FF"}),
		count:    r.NewStyle().Foreground(muted),
		snippet:  r.NewStyle().Foreground(muted),
		match:    r.NewStyle().Bold(true).Underline(true),
		branch:   r.NewStyle().Foreground(muted).PaddingRight(1),
	}
}

// Text writes the hierarchy as an indented tree, one top-level group after
// the other
func Text(w io.Writer, groups []models.TreeGroup, opts TextOptions) error {
	r := opts.Renderer
	if r == nil {
		r = lipgloss.NewRenderer(w)
	}
	r.SetHasDarkBackground(opts.Dark)

	t := &textRenderer{
		styles:     newStyles(r),
		searchText: opts.SearchText,
		expanded:   opts.Expanded,
	}
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, t.styles.noEpic.Render("No matching issues"))
		return err
	}
	for _, tg := range groups {
		if _, err := fmt.Fprintln(w, t.group(tg).String()); err != nil {
			return err
		}
	}
	return nil
}

type textRenderer struct {
	styles     styles
	searchText string
	expanded   func(key string) bool
}

func (t *textRenderer) isExpanded(key string) bool {
	return t.expanded == nil || t.expanded(key)
}

func (t *textRenderer) node(label string) *lgtree.Tree {
	return lgtree.Root(label).
		Enumerator(lgtree.RoundedEnumerator).
		EnumeratorStyle(t.styles.branch)
}

func (t *textRenderer) countLabel(n int) string {
	unit := "issues"
	if n == 1 {
		unit = "issue"
	}
	return t.styles.count.Render(fmt.Sprintf("(%d %s)", n, unit))
}

func (t *textRenderer) group(tg models.TreeGroup) *lgtree.Tree {
	label := t.styles.group.Render(tg.Group.Name) + " " + t.countLabel(tree.CountIssues(tg))
	n := t.node(label)
	if !t.isExpanded(tree.GroupKey(tg.Group)) {
		return n
	}
	for _, sub := range tg.Subgroups {
		n.Child(t.group(sub))
	}
	for _, tp := range tg.Projects {
		n.Child(t.project(tp))
	}
	return n
}

func (t *textRenderer) project(tp models.TreeProject) *lgtree.Tree {
	count := 0
	for _, te := range tp.Epics {
		count += len(te.Issues)
	}
	n := t.node(t.styles.project.Render(tp.Project.Name) + " " + t.countLabel(count))
	if !t.isExpanded(tree.ProjectKey(tp.Project)) {
		return n
	}
	for _, te := range tp.Epics {
		n.Child(t.epic(tp.Project, te))
	}
	return n
}

func (t *textRenderer) epic(project models.Project, te models.TreeEpic) *lgtree.Tree {
	var label string
	if te.Epic == nil {
		label = t.styles.noEpic.Render("No epic")
	} else {
		label = t.styles.epic.Render(fmt.Sprintf("&%d %s", te.Epic.IID, te.Epic.Title))
	}
	label += " " + t.countLabel(len(te.Issues))
	if te.Epic != nil {
		if s := filter.EpicSnippet(*te.Epic, t.searchText); s != nil {
			label += "\n" + t.snippet(s)
		}
	}

	n := t.node(label)
	if !t.isExpanded(tree.EpicKey(project, te.Epic)) {
		return n
	}
	for _, issue := range te.Issues {
		n.Child(t.issue(issue))
	}
	return n
}

func (t *textRenderer) issue(issue models.Issue) string {
	var b strings.Builder
	b.WriteString(t.styles.iid.Render(fmt.Sprintf("#%d", issue.IID)))
	b.WriteString(" ")
	b.WriteString(issue.Title)
	if issue.State == models.StateClosed {
		b.WriteString(" ")
		b.WriteString(t.styles.closed.Render("[closed]"))
	}
	for _, label := range issue.Labels {
		b.WriteString(" ")
		b.WriteString(t.styles.label.Render("~" + label))
	}
	for _, a := range issue.Assignees {
		b.WriteString(" ")
		b.WriteString(t.styles.assignee.Render("@" + a.Username))
	}
	if s := filter.IssueSnippet(issue, t.searchText); s != nil {
		b.WriteString("\n")
		b.WriteString(t.snippet(s))
	}
	return b.String()
}

func (t *textRenderer) snippet(s *filter.Snippet) string {
	return t.styles.snippet.Render(s.Before) + t.styles.match.Render(s.Match) + t.styles.snippet.Render(s.After)
}
