package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/guild-ledger/internal/cli"
	"github.com/Veraticus/guild-ledger/internal/exchange"
	"github.com/Veraticus/guild-ledger/internal/ledger"
	"github.com/Veraticus/guild-ledger/internal/model"
)

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Browse and manage stored event records",
		Example: `  ledger records list kvm
  ledger records show gvg 2024-03-02
  ledger records stats
  ledger records export aa -o aa.yaml
  ledger records import aa.yaml`,
	}

	cmd.AddCommand(listRecordsCmd())
	cmd.AddCommand(showRecordCmd())
	cmd.AddCommand(deleteRecordCmd())
	cmd.AddCommand(recordStatsCmd())
	cmd.AddCommand(exportRecordsCmd())
	cmd.AddCommand(importRecordsCmd())

	return cmd
}

func listRecordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <module>",
		Short: "List the records of a module, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := parseEventModuleArg(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.engine.Store(module)
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No records found."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderRecords(records))
			return nil
		},
	}
}

func showRecordCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <module> <date>",
		Short: "Show a record reconciled against the roster",
		Args:  cobra.ExactArgs(2),
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

			view, rec, err := a.engine.View(cmd.Context(), module, date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(rec, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode record: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintln(out, cli.RenderView(view))
			for _, issue := range view.Issues() {
				fmt.Fprintln(out, cli.FormatWarning(issue.Error()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored record as JSON")

	return cmd
}

func deleteRecordCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <module> <date>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
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

			out := cmd.OutOrStdout()
			if !force && !confirm(cmd.InOrStdin(), out,
				fmt.Sprintf("%s Delete the %s record of %s?", cli.WarningIcon, module, date)) {
				fmt.Fprintln(out, cli.SubtleStyle.Render("Deletion cancelled."))
				return nil
			}

			if err := a.engine.DeleteRecord(cmd.Context(), module, date); err != nil {
				return fmt.Errorf("failed to delete record: %w", err)
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %s record %s", module, date)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func recordStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [module]",
		Short: "Show record statistics of one or every event module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modules := model.EventModules()
			if len(args) == 1 {
				module, err := parseEventModuleArg(args[0])
				if err != nil {
					return err
				}
				modules = []model.Module{module}
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, module := range modules {
				stats, err := moduleStatistics(cmd, a, module)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderStatistics(stats))
			}
			return nil
		},
	}
}

func moduleStatistics(cmd *cobra.Command, a *app, module model.Module) (ledger.Statistics, error) {
	store, err := a.engine.Store(module)
	if err != nil {
		return ledger.Statistics{}, err
	}
	stats, err := store.Statistics(cmd.Context())
	if err != nil {
		return stats, fmt.Errorf("failed to compute %s statistics: %w", module, err)
	}
	return stats, nil
}

func exportRecordsCmd() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export <module>",
		Short: "Export the records of a module as JSON, YAML or XLSX",
		Long: `Write every record of a module, ordered by date. JSON and YAML exports
can be imported again unchanged; XLSX is for spreadsheets only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := parseEventModuleArg(args[0])
			if err != nil {
				return err
			}
			f, err := resolveFormat(format, output)
			if err != nil {
				return err
			}
			if f == exchange.FormatXLSX && output == "" {
				return fmt.Errorf("xlsx export needs --output")
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.engine.Store(module)
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				// #nosec G304 - output path is supplied by the operator
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer func() { _ = file.Close() }()
				w = file
			}

			if err := exchange.Export(w, f, module, records); err != nil {
				return fmt.Errorf("failed to export records: %w", err)
			}
			if output != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(
					fmt.Sprintf("Exported %d %s records to %s", len(records), module, output)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json, yaml or xlsx (default: from the output extension, else json)")

	return cmd
}

func importRecordsCmd() *cobra.Command {
	var (
		format string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import records from a JSON or YAML export",
		Long: `Store every record of an exported document. Each record is validated and
stored on its own; a record that fails does not stop the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}

			// #nosec G304 - input path is supplied by the operator
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer func() { _ = file.Close() }()

			doc, err := exchange.Import(file, f)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			if !dryRun {
				autoCheckpoint(cmd, a, "records-import")
			}

			outcomes, err := a.engine.ImportRecords(cmd.Context(), doc.Module, doc.Records)
			printRecordOutcomes(cmd.OutOrStdout(), doc.Module, outcomes, dryRun)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from the file extension)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the records without storing them")

	return cmd
}

func printRecordOutcomes(out io.Writer, module model.Module, outcomes []ledger.Outcome, dryRun bool) {
	ok := 0
	for i, o := range outcomes {
		if o.OK() {
			ok++
			continue
		}
		label := fmt.Sprintf("record %d", i+1)
		if !o.Date.IsZero() {
			label = o.Date.String()
		}
		fmt.Fprintf(out, "%s %s: %s\n", cli.FormatError(label), module, o.Err)
	}

	verb := "imported"
	if dryRun {
		verb = "valid (dry run, nothing stored)"
	}
	summary := fmt.Sprintf("%d of %d %s records %s", ok, len(outcomes), module, verb)
	if ok == len(outcomes) {
		fmt.Fprintln(out, cli.FormatSuccess(summary))
	} else {
		fmt.Fprintln(out, cli.FormatWarning(summary))
	}
}

// resolveFormat picks the explicit format, else the one of path's
// extension, else JSON.
func resolveFormat(explicit, path string) (exchange.Format, error) {
	if explicit != "" {
		return exchange.ParseFormat(explicit)
	}
	if path == "" {
		return exchange.FormatJSON, nil
	}
	return exchange.FormatOf(path)
}
