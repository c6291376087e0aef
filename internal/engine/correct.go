package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
	"github.com/Veraticus/guild-ledger/internal/writeport"
)

// Correct renames one entry of a reconciled view and returns the view
// derived again. A stored entry is renamed in its record, which is written
// back through the write port. A derived entry exists only on the roster,
// so the roster member is renamed instead.
func (e *Engine) Correct(ctx context.Context, module model.Module, date model.Date, entry roster.Entry, name string) (*roster.View, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.NewError(common.KindValidationFailed, "name", "corrected name is empty", nil)
	}

	if entry.Derived {
		if entry.Member == nil {
			return nil, fmt.Errorf("derived entry %q has no roster member", entry.SourceName)
		}
		if err := e.directory.RenameMember(ctx, entry.Member.ID, name); err != nil {
			return nil, err
		}
		slog.Debug("corrected derived entry", "id", entry.Member.ID, "from", entry.Member.Name, "to", name)
		view, _, err := e.View(ctx, module, date)
		return view, err
	}

	return e.RenameEntry(ctx, module, date, entry.List, entry.Index, name)
}

// RenameEntry renames a stored list entry of the record under date.
func (e *Engine) RenameEntry(ctx context.Context, module model.Module, date model.Date, list model.ListName, index int, name string) (*roster.View, error) {
	store, err := e.Store(module)
	if err != nil {
		return nil, err
	}

	key := writeport.Key{Module: module, Date: date}
	var updated model.Record
	err = e.port.Do(ctx, key, func(ctx context.Context) error {
		rec, err := store.Get(ctx, date)
		if err != nil {
			return err
		}
		if err := rec.Rename(list, index, name); err != nil {
			return common.NewError(common.KindValidationFailed, string(list), "", err)
		}
		if err := store.Upsert(ctx, rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("corrected entry", "module", module, "date", date.String(), "list", list, "index", index, "name", name)

	return e.reconciler.Reconcile(ctx, updated)
}

// FindEntry returns the entry of a view whose source name normalizes to
// name, searching participants then non-participants.
func FindEntry(view *roster.View, name string) (roster.Entry, bool) {
	for _, list := range []model.ListName{model.ListParticipants, model.ListNonParticipants} {
		for _, entry := range view.Entries(list) {
			if roster.SameName(entry.SourceName, name) {
				return entry, true
			}
		}
	}
	return roster.Entry{}, false
}
