package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

// GetDates returns the dates holding a record of module, oldest first.
func (s *SQLiteStorage) GetDates(ctx context.Context, module model.Module) ([]model.Date, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateEventModule(module); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date FROM records WHERE module = ? ORDER BY date`, string(module))
	if err != nil {
		return nil, fmt.Errorf("failed to query record dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []model.Date
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan record date: %w", err)
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt record date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// GetByDate returns the record of module stored under date.
func (s *SQLiteStorage) GetByDate(ctx context.Context, module model.Module, date model.Date) (model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateEventModule(module); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM records WHERE module = ? AND date = ?`,
		string(module), date.String(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s record %s: %w", module, date, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}
	return decodeRecord(module, payload)
}

// ListRecords returns every record of module, oldest first.
func (s *SQLiteStorage) ListRecords(ctx context.Context, module model.Module) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateEventModule(module); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE module = ? ORDER BY date`, string(module))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodeRecord(module, payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Upsert stores rec under its date, fully replacing any previous record.
func (s *SQLiteStorage) Upsert(ctx context.Context, rec model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecord(rec); err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (module, date, payload, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(module, date) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP`,
		string(rec.Module()), rec.Key().String(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	slog.Debug("upserted record", "module", rec.Module(), "date", rec.Key().String())
	return nil
}

// Delete removes the record of module stored under date. Deleting a date
// with no record is not an error.
func (s *SQLiteStorage) Delete(ctx context.Context, module model.Module, date model.Date) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEventModule(module); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE module = ? AND date = ?`, string(module), date.String())
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	n, _ := result.RowsAffected()
	slog.Debug("deleted record", "module", module, "date", date.String(), "rows", n)
	return nil
}

func decodeRecord(module model.Module, payload string) (model.Record, error) {
	rec, err := model.NewRecord(module)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s record: %w", module, err)
	}
	return rec, nil
}
