package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thunfischtoast/gitlab-visualizer/internal/filter"
	"github.com/thunfischtoast/gitlab-visualizer/internal/render"
	"github.com/thunfischtoast/gitlab-visualizer/internal/tree"
)

// queryFlags are the filter, sort and search flags of show
type queryFlags struct {
	search     string
	labels     []string
	scoped     []string
	status     string
	assignees  []string
	sort       string
	desc       bool
	scopedKeys []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.search, "search", "s", "", "Match issue and epic titles and descriptions")
	flags.StringSliceVarP(&f.labels, "label", "l", nil, "Keep issues carrying any of these labels")
	flags.StringArrayVar(&f.scoped, "scoped", nil, "Keep issues with this scoped label, as Key=Value (repeatable)")
	flags.StringVar(&f.status, "status", string(filter.StatusOpened), "Issue state: all, opened or closed")
	flags.StringSliceVarP(&f.assignees, "assignee", "a", nil, "Keep issues assigned to any of these usernames")
	flags.StringVar(&f.sort, "sort", string(filter.SortIID), "Sort issues by iid, title or status")
	flags.BoolVar(&f.desc, "desc", false, "Sort descending")
	flags.StringSliceVar(&f.scopedKeys, "scoped-keys", nil, "Scoped-label keys listed separately from plain labels")
}

// apply merges the flags into base
func (f *queryFlags) apply(base filter.Query) (filter.Query, error) {
	q := base
	q.SearchText = strings.TrimSpace(f.search)
	q.Labels = f.labels
	q.Assignees = f.assignees

	switch status := filter.Status(f.status); status {
	case filter.StatusAll, filter.StatusOpened, filter.StatusClosed:
		q.Status = status
	default:
		return q, fmt.Errorf("invalid --status %q (want all, opened or closed)", f.status)
	}

	switch field := filter.SortField(f.sort); field {
	case filter.SortIID, filter.SortTitle, filter.SortStatus:
		q.SortField = field
	default:
		return q, fmt.Errorf("invalid --sort %q (want iid, title or status)", f.sort)
	}
	q.SortDirection = filter.Ascending
	if f.desc {
		q.SortDirection = filter.Descending
	}

	if len(f.scopedKeys) > 0 {
		q.EnabledScopedKeys = f.scopedKeys
	}

	values := map[string][]string{}
	var keys []string
	for _, s := range f.scoped {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" || value == "" {
			return q, fmt.Errorf("invalid --scoped %q (want Key=Value)", s)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = append(values[key], value)
	}
	for _, key := range keys {
		q.SetScopedLabelFilter(key, values[key])
	}
	return q, nil
}

func newShowCmd(a *app) *cobra.Command {
	var (
		query     queryFlags
		format    string
		offline   bool
		collapsed bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the filtered hierarchy",
		Long: `Print groups, projects, epics and issues as one tree.

Issues are placed under the epic they belong to, even when the epic lives in
an ancestor group of the project. Data older than an hour is fetched again
unless --offline is given.`,
		Example: `  glv show --search login
  glv show --label bug --status all --sort title
  glv show --scoped Priority=High --scoped Priority=Medium --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := a.ensureData(cmd.Context(), offline); err != nil {
				return err
			}

			q, err := query.apply(a.aggregation.Query())
			if err != nil {
				return err
			}
			a.aggregation.SetQuery(q)
			view := a.aggregation.View()

			if collapsed {
				a.aggregation.CollapseAll()
				for _, tg := range view {
					for _, key := range tree.CollectKeys(tg) {
						if strings.HasPrefix(key, "group-") {
							a.aggregation.ToggleExpanded(key)
						}
					}
				}
			} else {
				a.aggregation.ExpandAll(view)
			}

			count := 0
			for _, tg := range view {
				count += tree.CountIssues(tg)
			}
			doc := render.Document{Query: q, IssueCount: count, Groups: view}
			if ts, ok := a.aggregation.CacheTimestamp(); ok {
				doc.FetchedAt = &ts
			}

			if unresolved := len(a.aggregation.Report().Unresolved); unresolved > 0 {
				log.Printf("Warning: %d issues reference an epic outside their group hierarchy and are not shown", unresolved)
			}

			out := cmd.OutOrStdout()
			opts := render.TextOptions{
				Dark:     a.themes.IsDark(),
				Expanded: a.aggregation.IsExpanded,
			}
			if err := render.Write(out, f, doc, opts); err != nil {
				return err
			}
			if f == render.FormatText {
				fmt.Fprintf(out, "\n%d issues\n", count)
			}
			return nil
		},
	}

	query.register(cmd)
	cmd.Flags().StringVar(&format, "format", string(render.FormatText), "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use cached data only")
	cmd.Flags().BoolVar(&collapsed, "collapsed", false, "Show groups and projects with issue counts only")
	return cmd
}
