// Package engine runs the import pipeline: recognized text goes through a
// template's rules, is coerced and assembled into a record, reconciled
// against the roster and stored. Corrections re-enter at the record.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/Veraticus/guild-ledger/internal/assemble"
	"github.com/Veraticus/guild-ledger/internal/coerce"
	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/extract"
	"github.com/Veraticus/guild-ledger/internal/ledger"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/recognition"
	"github.com/Veraticus/guild-ledger/internal/roster"
	"github.com/Veraticus/guild-ledger/internal/writeport"
)

// Engine orchestrates imports and corrections.
type Engine struct {
	templates  Templates
	recognizer recognition.Recognizer
	directory  Directory
	reconciler *roster.Reconciler
	records    ledger.Persistence
	port       *writeport.Port
	coercer    *coerce.Coercer
	stores     map[model.Module]*ledger.Store
	config     Config
	mu         sync.Mutex
}

// Config holds configuration options for the engine.
type Config struct {
	// DateLayout is the layout date fields are coerced with.
	DateLayout string
	// DryRun runs the pipeline and reconciliation without writing.
	DryRun bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{DateLayout: model.DateLayout}
}

// New creates an engine with the default configuration.
func New(templates Templates, recognizer recognition.Recognizer, directory Directory,
	records ledger.Persistence, port *writeport.Port) *Engine {
	return NewWithConfig(templates, recognizer, directory, records, port, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(templates Templates, recognizer recognition.Recognizer, directory Directory,
	records ledger.Persistence, port *writeport.Port, config Config) *Engine {
	if config.DateLayout == "" {
		config.DateLayout = model.DateLayout
	}
	return &Engine{
		templates:  templates,
		recognizer: recognizer,
		directory:  directory,
		reconciler: roster.NewReconciler(directory),
		records:    records,
		port:       port,
		coercer:    coerce.New(coerce.WithDateLayout(config.DateLayout)),
		stores:     make(map[model.Module]*ledger.Store),
		config:     config,
	}
}

// Store returns the record store of an event module.
func (e *Engine) Store(module model.Module) (*ledger.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.stores[module]; ok {
		return s, nil
	}
	s, err := ledger.New(e.records, module)
	if err != nil {
		return nil, err
	}
	s = s.WithRoster(e.directory)
	e.stores[module] = s
	return s, nil
}

// Input is one screen to import. Text, when set, skips recognition.
// TemplateID selects a template; otherwise the module's default is used.
type Input struct {
	Text       *model.RecognizedText
	Image      recognition.Image
	Module     model.Module
	TemplateID string
}

// Result is the outcome of one import.
type Result struct {
	Record   model.Record
	Roster   *model.RosterSnapshot
	View     *roster.View
	Merge    *roster.MergeResult
	Template *model.Template
	Module   model.Module
	Warnings []extract.Warning
	Stored   bool
}

// Key returns the day the import is keyed by.
func (r *Result) Key() model.Date {
	if r.Record != nil {
		return r.Record.Key()
	}
	if r.Roster != nil {
		return r.Roster.Date
	}
	return model.Date{}
}

// Template resolves the template an input runs with.
func (e *Engine) Template(ctx context.Context, in Input) (*model.Template, error) {
	if in.TemplateID != "" {
		tmpl, err := e.templates.GetTemplate(ctx, in.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", in.TemplateID, err)
		}
		if in.Module != "" && tmpl.Module != in.Module {
			return nil, common.NewError(common.KindInvalidTemplate, "",
				fmt.Sprintf("template %s is for %s, not %s", tmpl.Name, tmpl.Module, in.Module), nil)
		}
		return tmpl, nil
	}
	if !in.Module.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownModule, in.Module)
	}
	tmpl, err := e.templates.GetDefaultTemplate(ctx, in.Module)
	if err != nil {
		return nil, fmt.Errorf("failed to load default %s template: %w", in.Module, err)
	}
	return tmpl, nil
}

// Process imports one screen.
func (e *Engine) Process(ctx context.Context, in Input) (*Result, error) {
	tmpl, err := e.Template(ctx, in)
	if err != nil {
		return nil, err
	}

	text, err := e.recognize(ctx, in, tmpl.Module)
	if err != nil {
		return nil, err
	}

	out, warnings, err := e.Assemble(ctx, tmpl, text)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Module:   tmpl.Module,
		Template: tmpl,
		Record:   out.Record,
		Roster:   out.Roster,
		Warnings: warnings,
	}

	if out.Roster != nil {
		if err := e.mergeRoster(ctx, res); err != nil {
			return nil, err
		}
		return res, nil
	}

	if err := e.storeRecord(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Assemble runs extraction, coercion and assembly of text with tmpl.
func (e *Engine) Assemble(ctx context.Context, tmpl *model.Template, text model.RecognizedText) (*assemble.Output, []extract.Warning, error) {
	ex, err := extract.Compile(tmpl)
	if err != nil {
		return nil, nil, err
	}
	raw, err := ex.Run(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	fields, err := e.coercer.Coerce(tmpl, raw)
	if err != nil {
		return nil, raw.Warnings, err
	}
	out, err := assemble.Assemble(tmpl, fields)
	if err != nil {
		return nil, fields.Warnings, err
	}
	return out, fields.Warnings, nil
}

func (e *Engine) recognize(ctx context.Context, in Input, module model.Module) (model.RecognizedText, error) {
	if in.Text != nil {
		return *in.Text, nil
	}
	if e.recognizer == nil {
		return model.RecognizedText{}, errors.New("no recognizer configured")
	}
	text, err := e.recognizer.Recognize(ctx, in.Image, module)
	if err != nil {
		return model.RecognizedText{}, fmt.Errorf("recognition failed: %w", err)
	}
	return text, nil
}

func (e *Engine) storeRecord(ctx context.Context, res *Result) error {
	store, err := e.Store(res.Module)
	if err != nil {
		return err
	}
	if err := store.Check(res.Record); err != nil {
		return err
	}

	view, err := e.reconciler.Reconcile(ctx, res.Record)
	if err != nil {
		return err
	}
	res.View = view
	if n := len(view.Unmatched); n > 0 {
		slog.Warn("record has names with no roster match",
			"module", res.Module, "date", res.Key().String(), "unmatched", n)
	}

	if e.config.DryRun {
		slog.Info("dry run, record not stored", "module", res.Module, "date", res.Key().String())
		return nil
	}

	rec := res.Record
	if err := e.port.Do(ctx, writeport.KeyOf(rec), func(ctx context.Context) error {
		return store.Upsert(ctx, rec)
	}); err != nil {
		return err
	}
	res.Stored = true
	slog.Info("imported record", "module", res.Module, "date", res.Key().String(), "template", res.Template.Name)
	return nil
}

func (e *Engine) mergeRoster(ctx context.Context, res *Result) error {
	if e.config.DryRun {
		slog.Info("dry run, roster not merged", "date", res.Key().String(), "members", len(res.Roster.Members))
		return nil
	}
	merge, err := e.directory.MergeSnapshot(ctx, res.Roster)
	if err != nil {
		return err
	}
	res.Merge = merge
	res.Stored = true
	return nil
}

// Outcome is the result of one input of a batch.
type Outcome struct {
	Result *Result
	Err    error
	Input  Input
}

// ProcessAll imports inputs one after another, in order. A failing input
// does not stop the ones after it. progress, when set, is called after each
// input.
func (e *Engine) ProcessAll(ctx context.Context, inputs []Input, progress func(done int)) []Outcome {
	outcomes := make([]Outcome, len(inputs))
	for i, in := range inputs {
		outcomes[i].Input = in
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
		} else {
			outcomes[i].Result, outcomes[i].Err = e.Process(ctx, in)
		}
		if outcomes[i].Err != nil {
			slog.Warn("import failed", "input", in.Image.Path, "kind", common.KindOf(outcomes[i].Err), "error", outcomes[i].Err)
		}
		if progress != nil {
			progress(i + 1)
		}
	}
	return outcomes
}

// ImportRecords stores records read from a file, one outcome per record.
func (e *Engine) ImportRecords(ctx context.Context, module model.Module, records []model.Record) ([]ledger.Outcome, error) {
	store, err := e.Store(module)
	if err != nil {
		return nil, err
	}
	if e.config.DryRun {
		outcomes := make([]ledger.Outcome, len(records))
		for i, rec := range records {
			outcomes[i] = ledger.Outcome{Err: store.Check(rec)}
			if rec != nil {
				outcomes[i].Date = rec.Key()
			}
		}
		return outcomes, nil
	}
	return store.BulkImport(ctx, records)
}

// View reconciles the record stored under date.
func (e *Engine) View(ctx context.Context, module model.Module, date model.Date) (*roster.View, model.Record, error) {
	store, err := e.Store(module)
	if err != nil {
		return nil, nil, err
	}
	rec, err := store.Get(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	view, err := e.reconciler.Reconcile(ctx, rec)
	if err != nil {
		return nil, nil, err
	}
	return view, rec, nil
}

// DeleteRecord removes the record under date. It queues behind corrections
// of the same date.
func (e *Engine) DeleteRecord(ctx context.Context, module model.Module, date model.Date) error {
	store, err := e.Store(module)
	if err != nil {
		return err
	}
	if e.config.DryRun {
		return nil
	}
	return e.port.Do(ctx, writeport.Key{Module: module, Date: date}, func(ctx context.Context) error {
		return store.Delete(ctx, date)
	})
}
