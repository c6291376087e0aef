package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Veraticus/guild-ledger/internal/cli"
	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/engine"
	"github.com/Veraticus/guild-ledger/internal/recognition"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Import screenshots as they land in a folder",
		Long: `Watch a drop folder and import every screenshot or recognized text file
written to it. A file is imported once it has not changed for the settle
time; a screenshot whose recognized text is not there yet is picked up when
the text file arrives.`,
		Example: `  ledger watch --module kvm ~/screens/inbox`,
		Args:    cobra.ExactArgs(1),
		RunE:    runWatch,
	}

	cmd.Flags().StringP("module", "m", "", "event module: kvm, gvg, aa or guild (required)")
	cmd.Flags().StringP("template", "t", "", "template ID (default: the module's default template)")
	cmd.Flags().Duration("settle", time.Second, "how long a file must stay unchanged before it is imported")
	cmd.Flags().Bool("existing", false, "import files already in the folder first")
	_ = cmd.MarkFlagRequired("module")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	moduleFlag, _ := cmd.Flags().GetString("module")
	templateID, _ := cmd.Flags().GetString("template")
	settle, _ := cmd.Flags().GetDuration("settle")
	existing, _ := cmd.Flags().GetBool("existing")

	module, err := parseModuleArg(moduleFlag)
	if err != nil {
		return err
	}
	dir := args[0]

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Watch", "")
	ctx := handler.HandleInterrupts(cmd.Context())

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := cmd.OutOrStdout()
	importOne := func(path string) {
		res, err := a.engine.Process(ctx, toInputs([]string{path}, module, templateID)[0])
		switch {
		case errors.Is(err, recognition.ErrNoSidecar):
			common.LogInfo("waiting for recognized text", common.Fields{"file": path})
		case err != nil:
			common.LogError(err, "watch import failed", common.Fields{"file": path, "module": module})
			printOutcomes(out, []engine.Outcome{{Input: engine.Input{Image: recognition.Image{Path: path}}, Err: err}}, false)
		default:
			fmt.Fprintln(out, describeResult(path, res, false))
		}
	}

	if existing {
		paths, err := collectInputs([]string{dir})
		if err != nil {
			return err
		}
		for _, p := range paths {
			importOne(p)
		}
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Watching %s for %s screens (Ctrl+C to stop)", dir, module)))

	queue := newDropQueue(settle)
	ticker := time.NewTicker(max(settle/4, 50*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				queue.Note(ev.Name, time.Now())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		case now := <-ticker.C:
			for _, path := range queue.Ready(now) {
				importOne(path)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// dropQueue debounces file events: a path is ready once no event touched
// it for the settle time. Recognized text files are queued under their
// screenshot when it exists.
type dropQueue struct {
	pending map[string]time.Time
	settle  time.Duration
}

func newDropQueue(settle time.Duration) *dropQueue {
	return &dropQueue{pending: make(map[string]time.Time), settle: settle}
}

// Note records an event for path at t.
func (q *dropQueue) Note(path string, t time.Time) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}
	if recognition.IsTextFile(path) {
		if img := imageOf(path); img != "" {
			path = img
		}
	} else if !isImage(path) {
		return
	}
	q.pending[path] = t
}

// Ready removes and returns the settled paths, sorted.
func (q *dropQueue) Ready(now time.Time) []string {
	var ready []string
	for path, t := range q.pending {
		if now.Sub(t) >= q.settle {
			ready = append(ready, path)
			delete(q.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// imageOf returns the screenshot a recognized text file belongs to, or ""
// when there is none next to it.
func imageOf(textPath string) string {
	stem := strings.TrimSuffix(textPath, filepath.Ext(textPath))
	if isImage(stem) {
		if fileExists(stem) {
			return stem
		}
		return ""
	}
	exts := make([]string, 0, len(imageExts))
	for ext := range imageExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		if fileExists(stem + ext) {
			return stem + ext
		}
	}
	return ""
}
