package main

import (
	"fmt"
	"log"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
	"github.com/thunfischtoast/gitlab-visualizer/internal/render"
	"github.com/thunfischtoast/gitlab-visualizer/internal/sync"
)

func newGroupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Choose which groups are aggregated",
	}
	cmd.AddCommand(newGroupsListCmd(a), newGroupsSelectCmd(a), newGroupsClearCmd(a))
	return cmd
}

type groupEntry struct {
	models.Group `yaml:",inline"`
	Selected     bool `json:"selected" yaml:"selected"`
}

func newGroupsListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the groups visible to you, marking the selected ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			groups, err := client.FetchAllGroups(cmd.Context(), func(page int) {
				log.Printf("Fetched page %d of groups", page)
			})
			if err != nil {
				return fmt.Errorf("failed to fetch groups: %w", err)
			}

			ids := a.selection.IDs()
			kept := map[int64]bool{}
			for _, g := range sync.SelectGroups(groups, ids) {
				kept[g.ID] = true
			}

			entries := make([]groupEntry, 0, len(groups))
			for _, g := range groups {
				entries = append(entries, groupEntry{Group: g, Selected: slices.Contains(ids, g.ID)})
			}

			out := cmd.OutOrStdout()
			switch f {
			case render.FormatJSON:
				return render.JSON(out, entries)
			case render.FormatYAML:
				return render.YAML(out, entries)
			}
			for _, e := range entries {
				mark := "[ ]"
				if e.Selected {
					mark = "[x]"
				} else if len(ids) > 0 && kept[e.ID] {
					// included through a selected ancestor
					mark = "[~]"
				}
				fmt.Fprintf(out, "%s %-8d %s\n", mark, e.ID, e.FullPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(render.FormatText), "Output format: text, json or yaml")
	return cmd
}

func newGroupsSelectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select <group-id>...",
		Short: "Aggregate only these groups and their subgroups",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid group id %q", arg)
				}
				ids = append(ids, id)
			}
			if err := a.open(); err != nil {
				return err
			}
			a.selection.Set(ids)
			// the cached data no longer matches the selection
			a.aggregation.Clear()
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %d groups\n", len(a.selection.IDs()))
			return nil
		},
	}
}

func newGroupsClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Aggregate all visible groups again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			a.selection.Clear()
			a.aggregation.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared group selection")
			return nil
		},
	}
}
