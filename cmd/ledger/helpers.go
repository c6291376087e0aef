package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/config"
	"github.com/Veraticus/guild-ledger/internal/engine"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/recognition"
	"github.com/Veraticus/guild-ledger/internal/roster"
	"github.com/Veraticus/guild-ledger/internal/storage"
	"github.com/Veraticus/guild-ledger/internal/writeport"
)

// currentConfig returns the loaded configuration, or the defaults when a
// command runs without the root's pre-run hook.
func currentConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	return &config.Config{
		DatabasePath: config.ExpandPath("~/.local/share/ledger/ledger.db"),
		DateLayout:   model.DateLayout,
	}
}

// initStorage opens the configured database and migrates it.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := currentConfig().DatabasePath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// app wires the engine over one open database.
type app struct {
	store     *storage.SQLiteStorage
	directory *roster.Directory
	port      *writeport.Port
	engine    *engine.Engine
}

func newApp(ctx context.Context, dryRun bool) (*app, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}
	return wireApp(store, dryRun), nil
}

func wireApp(store *storage.SQLiteStorage, dryRun bool) *app {
	cfg := currentConfig()
	directory := roster.NewDirectory(store)
	port := writeport.New()
	eng := engine.NewWithConfig(store, recognition.NewSidecar(), directory, store, port, engine.Config{
		DateLayout: cfg.DateLayout,
		DryRun:     dryRun,
	})
	return &app{store: store, directory: directory, port: port, engine: eng}
}

// Close waits for queued writes and closes the database.
func (a *app) Close() {
	a.port.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

func parseModuleArg(s string) (model.Module, error) {
	return model.ParseModule(strings.ToLower(strings.TrimSpace(s)))
}

func parseEventModuleArg(s string) (model.Module, error) {
	m, err := parseModuleArg(s)
	if err != nil {
		return "", err
	}
	if m == model.ModuleGuild {
		return "", common.NewUserError(fmt.Sprintf("%s has no event records; use the roster commands", m), nil)
	}
	return m, nil
}

func parseDateArg(s string) (model.Date, error) {
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, common.NewUserError(fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", s), err)
	}
	return d, nil
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

func isImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// collectInputs expands files and directories into importable paths. A
// recognized text file whose screenshot sits next to it is skipped, since
// the screenshot already reaches it through the sidecar lookup.
func collectInputs(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] && (isImage(path) || recognition.IsTextFile(path)) && !hasImageSibling(path) {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", p, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				add(filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// hasImageSibling reports whether a text file belongs to a screenshot in
// the same directory: shot.png.json or shot.json next to shot.png.
func hasImageSibling(path string) bool {
	return recognition.IsTextFile(path) && imageOf(path) != ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func toInputs(paths []string, module model.Module, templateID string) []engine.Input {
	inputs := make([]engine.Input, len(paths))
	for i, p := range paths {
		inputs[i] = engine.Input{
			Image:      recognition.Image{Path: p},
			Module:     module,
			TemplateID: templateID,
		}
	}
	return inputs
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (y/N) ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		if minutes := int(duration.Minutes()); minutes != 1 {
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return "1 minute ago"
	case duration < 24*time.Hour:
		if hours := int(duration.Hours()); hours != 1 {
			return fmt.Sprintf("%d hours ago", hours)
		}
		return "1 hour ago"
	case duration < 7*24*time.Hour:
		if days := int(duration.Hours() / 24); days != 1 {
			return fmt.Sprintf("%d days ago", days)
		}
		return "yesterday"
	default:
		return t.Format("2006-01-02 15:04")
	}
}
