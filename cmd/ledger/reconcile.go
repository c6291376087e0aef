package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/guild-ledger/internal/cli"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
	"github.com/Veraticus/guild-ledger/internal/tui"
	"github.com/Veraticus/guild-ledger/internal/tui/themes"
)

// suggestThreshold is the minimum similarity for a rename suggestion.
const suggestThreshold = 0.6

func reconcileCmd() *cobra.Command {
	var (
		interactive bool
		theme       string
	)

	cmd := &cobra.Command{
		Use:   "reconcile <module> <date>",
		Short: "Reconcile a record against the roster",
		Long: `Show who took part in an event and who did not, as of the roster on the
event date, and list the names that match no roster member together with
the closest member name. With --interactive, names can be corrected in
place.`,
		Example: `  ledger reconcile kvm 2024-03-01
  ledger reconcile gvg 2024-03-02 --interactive`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := parseEventModuleArg(args[0])
			if err != nil {
				return err
			}
			date, err := parseDateArg(args[1])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			view, _, err := a.engine.View(cmd.Context(), module, date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if interactive {
				cfg := tui.DefaultConfig()
				cfg.Theme = themes.GetTheme(theme)
				n, err := tui.Run(cmd.Context(), a.engine, view, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%d corrections saved", n)))
				return nil
			}

			fmt.Fprintln(out, cli.RenderView(view))
			if len(view.Unmatched) == 0 {
				return nil
			}
			members, err := a.directory.ListMembers(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range view.Unmatched {
				fmt.Fprintln(out, describeUnmatched(members, e))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "correct names in the interactive screen")
	cmd.Flags().StringVar(&theme, "theme", "default", "interactive theme (default, catppuccin-mocha)")

	return cmd
}

func describeUnmatched(members []model.GuildMember, e roster.Entry) string {
	line := cli.FormatWarning(fmt.Sprintf("%s[%d] %q has no roster match", e.List, e.Index, e.SourceName))
	if m, score := roster.Suggest(members, e.SourceName, suggestThreshold); m != nil {
		line += cli.SubtleStyle.Render(fmt.Sprintf("  did you mean %q? (%.0f%%)", m.Name, score*100))
	}
	return line
}
