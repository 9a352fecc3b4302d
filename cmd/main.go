package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/thunfischtoast/gitlab-visualizer/config"
)

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "glv",
		Short: "Browse the groups, projects, epics and issues of a GitLab instance",
		Long: `glv fetches every group, project, epic and issue visible to you on a GitLab
instance once, caches the result for an hour, and lets you filter, sort and
search across all of it as a single tree.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	defaultPath, err := config.DefaultPath()
	if err != nil {
		defaultPath = "config.json"
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", defaultPath, "Path to configuration file")

	rootCmd.AddCommand(
		newInitCmd(a),
		newConnectCmd(a),
		newDisconnectCmd(a),
		newGroupsCmd(a),
		newSyncCmd(a),
		newShowCmd(a),
		newOptionsCmd(a),
		newExportCmd(a),
		newClearCmd(a),
		newThemeCmd(a),
	)
	return rootCmd
}

// run executes the command line args and releases what the command opened
func run(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
