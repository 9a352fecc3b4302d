package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/thunfischtoast/gitlab-visualizer/internal/filter"
	"github.com/thunfischtoast/gitlab-visualizer/internal/render"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch everything from GitLab and replace the cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			startTime := time.Now()
			stats, err := a.sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d groups, %d projects, %d epics and %d issues in %v\n",
				stats.Groups, stats.Projects, stats.Epics, stats.Issues, time.Since(startTime).Round(time.Millisecond))
			return nil
		},
	}
}

func newOptionsCmd(a *app) *cobra.Command {
	var (
		format     string
		offline    bool
		scopedKeys []string
	)

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the labels, scoped labels and assignees available for filtering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := a.ensureData(cmd.Context(), offline); err != nil {
				return err
			}
			if len(scopedKeys) > 0 {
				a.aggregation.UpdateQuery(func(q *filter.Query) { q.EnabledScopedKeys = scopedKeys })
			}
			opts := a.aggregation.Options()

			out := cmd.OutOrStdout()
			switch f {
			case render.FormatJSON:
				return render.JSON(out, opts)
			case render.FormatYAML:
				return render.YAML(out, opts)
			}

			fmt.Fprintf(out, "Labels: %s\n", strings.Join(opts.Labels, ", "))
			fmt.Fprintf(out, "Scoped keys: %s\n", strings.Join(opts.ScopedKeys, ", "))
			for _, key := range opts.ActiveScopedKeys {
				fmt.Fprintf(out, "  %s: %s\n", key, strings.Join(opts.ScopedValues[key], ", "))
			}
			names := make([]string, 0, len(opts.Assignees))
			for _, assignee := range opts.Assignees {
				names = append(names, fmt.Sprintf("%s (@%s)", assignee.Name, assignee.Username))
			}
			fmt.Fprintf(out, "Assignees: %s\n", strings.Join(names, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(render.FormatText), "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use cached data only")
	cmd.Flags().StringSliceVar(&scopedKeys, "scoped-keys", nil, "Scoped-label keys listed separately from plain labels")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format  string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the flat groups, projects, epics and issues to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == render.FormatText {
				return fmt.Errorf("export supports json and yaml only")
			}
			if err := a.ensureData(cmd.Context(), offline); err != nil {
				return err
			}

			snapshot := a.aggregation.Snapshot()
			var buf bytes.Buffer
			if f == render.FormatYAML {
				err = render.YAML(&buf, snapshot)
			} else {
				err = render.JSON(&buf, snapshot)
			}
			if err != nil {
				return err
			}

			if err := atomic.WriteFile(args[0], &buf); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d issues to %s\n", len(snapshot.Issues), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(render.FormatJSON), "Output format: json or yaml")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use cached data only")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop the cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			a.aggregation.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared cached data")
			return nil
		},
	}
}
