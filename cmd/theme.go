package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thunfischtoast/gitlab-visualizer/internal/state"
)

func newThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the color scheme of the tree output",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			if len(args) == 1 {
				switch args[0] {
				case "toggle":
					a.themes.Toggle()
				default:
					a.themes.Set(state.Theme(args[0]))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\n", a.themes.Theme())
			return nil
		},
	}
}
