package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/guild-ledger/internal/cli"
	"github.com/Veraticus/guild-ledger/internal/engine"
	"github.com/Veraticus/guild-ledger/internal/model"
)

func correctCmd() *cobra.Command {
	var (
		list  string
		index int
	)

	cmd := &cobra.Command{
		Use:   "correct <module> <date> <name> <new-name>",
		Short: "Correct a misread name in a record",
		Long: `Rename one entry of a record. A name stored in the record is changed in
the record; a participant derived from the roster is renamed on the roster.
The record is reconciled again afterwards.

The entry is found by name. Use --list and --index to pick a stored entry
by position instead, for names that appear twice.`,
		Example: `  ledger correct kvm 2024-03-01 AIice Alice
  ledger correct gvg 2024-03-02 _ Alice --list participants --index 3`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := parseEventModuleArg(args[0])
			if err != nil {
				return err
			}
			date, err := parseDateArg(args[1])
			if err != nil {
				return err
			}
			oldName, newName := args[2], args[3]

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if list != "" {
				view, err := a.engine.RenameEntry(ctx, module, date, model.ListName(list), index, newName)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Renamed %s[%d] to %s", list, index, newName)))
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderView(view))
				return nil
			}

			view, _, err := a.engine.View(ctx, module, date)
			if err != nil {
				return err
			}
			entry, ok := engine.FindEntry(view, oldName)
			if !ok {
				return fmt.Errorf("no entry named %q in the %s record of %s", oldName, module, date)
			}
			view, err = a.engine.Correct(ctx, module, date, entry, newName)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Renamed %s to %s", entry.SourceName, newName)))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderView(view))
			return nil
		},
	}

	cmd.Flags().StringVar(&list, "list", "", "stored list to rename in (participants, non_participants)")
	cmd.Flags().IntVar(&index, "index", 0, "position in --list, from 0")

	return cmd
}
