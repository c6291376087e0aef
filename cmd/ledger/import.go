package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/guild-ledger/internal/cli"
	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/engine"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file-or-dir>...",
		Short: "Import recognized event screenshots",
		Long: `Run screenshots through the extraction pipeline and store the resulting
records. Each screenshot needs its recognized text next to it (shot.png.json,
shot.json, shot.png.txt or shot.txt); text files can also be passed directly.

Importing the same date again replaces the stored record. Guild roster
screens are merged into the roster instead of being stored as records.`,
		Example: `  # Import a folder of KVM result screens with the default template
  ledger import --module kvm ~/screens/kvm

  # Check what would be stored without writing anything
  ledger import --module gvg --dry-run war-2024-03-02.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringP("module", "m", "", "event module: kvm, gvg, aa or guild (required)")
	cmd.Flags().StringP("template", "t", "", "template ID (default: the module's default template)")
	cmd.Flags().Bool("dry-run", false, "run the pipeline without storing anything")
	cmd.Flags().Bool("no-checkpoint", false, "skip the automatic checkpoint before importing")
	_ = cmd.MarkFlagRequired("module")

	_ = viper.BindPFlag("import.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	moduleFlag, _ := cmd.Flags().GetString("module")
	templateID, _ := cmd.Flags().GetString("template")
	noCheckpoint, _ := cmd.Flags().GetBool("no-checkpoint")
	dryRun := currentConfig().ImportDryRun

	module, err := parseModuleArg(moduleFlag)
	if err != nil {
		return err
	}
	paths, err := collectInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no screenshots or recognized text files found")
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Import", "Records stored before the interrupt are kept")
	ctx := handler.HandleInterrupts(cmd.Context())

	a, err := newApp(ctx, dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	if !dryRun && !noCheckpoint {
		autoCheckpoint(cmd, a, "import")
	}

	out := cmd.OutOrStdout()
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]Importing %s screens...[reset]", module)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	outcomes := a.engine.ProcessAll(ctx, toInputs(paths, module, templateID), func(done int) {
		if err := bar.Set(done); err != nil {
			slog.Debug("failed to update progress bar", "error", err)
		}
	})

	failed := printOutcomes(out, outcomes, dryRun)
	if handler.WasInterrupted() {
		return ctx.Err()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(outcomes))
	}
	return nil
}

// printOutcomes reports every import and returns how many failed.
func printOutcomes(out io.Writer, outcomes []engine.Outcome, dryRun bool) int {
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			kind := common.KindOf(o.Err)
			if kind == "" {
				kind = "Error"
			}
			fmt.Fprintf(out, "%s %s: %s\n", cli.FormatError(string(kind)), o.Input.Image.Path, o.Err)
			continue
		}
		fmt.Fprintln(out, describeResult(o.Input.Image.Path, o.Result, dryRun))
	}

	stored := len(outcomes) - failed
	summary := fmt.Sprintf("%d imported, %d failed", stored, failed)
	if dryRun {
		summary = fmt.Sprintf("%d checked, %d failed (dry run, nothing stored)", stored, failed)
	}
	if failed > 0 {
		fmt.Fprintln(out, cli.FormatWarning(summary))
	} else {
		fmt.Fprintln(out, cli.FormatSuccess(summary))
	}
	return failed
}

func describeResult(path string, res *engine.Result, dryRun bool) string {
	verb := "stored"
	if dryRun {
		verb = "checked"
	}

	icon := cli.SuccessStyle.Render(cli.SuccessIcon)
	var line string
	switch {
	case res.Merge != nil:
		line = fmt.Sprintf("%s %s: roster %s, %d added, %d updated",
			icon, path, res.Key(), len(res.Merge.Added), len(res.Merge.Updated))
	case res.Roster != nil:
		line = fmt.Sprintf("%s %s: roster %s %s, %d members",
			icon, path, res.Key(), verb, len(res.Roster.Members))
	default:
		line = fmt.Sprintf("%s %s: %s %s %s", icon, path, res.Module, res.Key(), verb)
		if res.View != nil {
			line += fmt.Sprintf(", %d participants, %d non-participants",
				len(res.View.Participants), len(res.View.NonParticipants))
			if n := len(res.View.Unmatched); n > 0 {
				line += cli.WarningStyle.Render(fmt.Sprintf(", %d unmatched", n))
			}
		}
	}
	for _, w := range res.Warnings {
		line += "\n    " + cli.SubtleStyle.Render(fmt.Sprintf("%s: %s", w.Rule, w.Message))
	}
	return line
}

// autoCheckpoint snapshots the database before a bulk write. Failing to do
// so is logged, never fatal.
func autoCheckpoint(cmd *cobra.Command, a *app, operation string) {
	manager, err := a.store.NewCheckpointManager()
	if err != nil {
		slog.Debug("automatic checkpoint unavailable", "error", err)
		return
	}
	info, err := manager.AutoCheckpoint(cmd.Context(), operation)
	if err != nil {
		slog.Warn("failed to create automatic checkpoint", "error", err)
		return
	}
	slog.Info("created automatic checkpoint", "id", info.ID)
}
