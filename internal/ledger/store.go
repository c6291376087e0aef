// Package ledger is the date-keyed record store of one event module. It
// validates records before they reach the persistence collaborator and
// computes read-time statistics.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
)

// Persistence is the collaborator holding records of every module.
type Persistence interface {
	GetDates(ctx context.Context, module model.Module) ([]model.Date, error)
	GetByDate(ctx context.Context, module model.Module, date model.Date) (model.Record, error)
	ListRecords(ctx context.Context, module model.Module) ([]model.Record, error)
	Upsert(ctx context.Context, rec model.Record) error
	Delete(ctx context.Context, module model.Module, date model.Date) error
}

// Store is the record store of one module.
type Store struct {
	p      Persistence
	roster roster.Roster
	module model.Module
}

// New returns the store of an event module.
func New(p Persistence, module model.Module) (*Store, error) {
	if _, err := model.NewRecord(module); err != nil {
		return nil, err
	}
	return &Store{p: p, module: module}, nil
}

// WithRoster lets statistics derive the participant count of KVM records
// that carry no total from the roster as of each record's date.
func (s *Store) WithRoster(r roster.Roster) *Store {
	s.roster = r
	return s
}

// Module returns the store's module.
func (s *Store) Module() model.Module { return s.module }

// Check validates a record without storing it. GVG records must not list a
// normalized name as both participant and non-participant.
func (s *Store) Check(rec model.Record) error {
	if rec == nil {
		return common.NewError(common.KindValidationFailed, "", "nil record", nil)
	}
	if rec.Module() != s.module {
		return common.NewError(common.KindValidationFailed, "",
			fmt.Sprintf("%s record offered to the %s store", rec.Module(), s.module), nil)
	}
	if err := rec.Validate(); err != nil {
		return common.NewError(common.KindValidationFailed, "", "", err)
	}
	if s.module == model.ModuleGVG {
		both := roster.Overlap(rec.Names(model.ListParticipants), rec.Names(model.ListNonParticipants))
		if len(both) > 0 {
			e := common.NewError(common.KindValidationFailed, string(model.ListNonParticipants),
				"listed as participant and non-participant: "+strings.Join(both, ", "), nil)
			e.Rule = "disjoint"
			return e
		}
	}
	return nil
}

// Upsert fully replaces the record stored under the record's date.
func (s *Store) Upsert(ctx context.Context, rec model.Record) error {
	if err := s.Check(rec); err != nil {
		return err
	}
	if err := s.p.Upsert(ctx, rec); err != nil {
		return common.MarkUnavailable(err)
	}
	slog.Debug("stored record", "module", s.module, "date", rec.Key().String())
	return nil
}

// Outcome is the result of importing one record.
type Outcome struct {
	Err  error
	Date model.Date
}

// OK reports whether the record was stored.
func (o Outcome) OK() bool { return o.Err == nil }

// BulkImport upserts each record independently, in the given order. It
// returns one outcome per record and the aggregate of the failures, or nil
// when every record was stored.
func (s *Store) BulkImport(ctx context.Context, records []model.Record) ([]Outcome, error) {
	outcomes := make([]Outcome, len(records))
	var result *multierror.Error

	for i, rec := range records {
		if rec != nil {
			outcomes[i].Date = rec.Key()
		}
		err := ctx.Err()
		if err == nil {
			err = s.Upsert(ctx, rec)
		}
		if err != nil {
			outcomes[i].Err = err
			result = multierror.Append(result, fmt.Errorf("record %d (%s): %w", i+1, outcomes[i].Date, err))
		}
	}

	stored := len(records)
	if result != nil {
		stored -= len(result.Errors)
	}
	slog.Info("bulk import finished", "module", s.module, "records", len(records), "stored", stored)
	return outcomes, result.ErrorOrNil()
}

// Get returns the record stored under date. A missing record wraps
// common.ErrNotFound.
func (s *Store) Get(ctx context.Context, date model.Date) (model.Record, error) {
	rec, err := s.p.GetByDate(ctx, s.module, date)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, common.MarkUnavailable(err)
	}
	return rec, nil
}

// Dates returns the stored dates, oldest first.
func (s *Store) Dates(ctx context.Context) ([]model.Date, error) {
	dates, err := s.p.GetDates(ctx, s.module)
	if err != nil {
		return nil, common.MarkUnavailable(err)
	}
	return dates, nil
}

// List returns every stored record, oldest first.
func (s *Store) List(ctx context.Context) ([]model.Record, error) {
	records, err := s.p.ListRecords(ctx, s.module)
	if err != nil {
		return nil, common.MarkUnavailable(err)
	}
	return records, nil
}

// Delete removes the whole record stored under date.
func (s *Store) Delete(ctx context.Context, date model.Date) error {
	if err := s.p.Delete(ctx, s.module, date); err != nil {
		return common.MarkUnavailable(err)
	}
	slog.Debug("deleted record", "module", s.module, "date", date.String())
	return nil
}
