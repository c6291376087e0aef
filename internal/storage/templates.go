package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

const templateColumns = `id, module, definition, is_default, created_at, updated_at`

// SaveTemplate validates and stores a template. A missing ID is generated.
// Saving a default template clears the default flag of the module's others.
func (s *SQLiteStorage) SaveTemplate(ctx context.Context, tmpl *model.Template) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if tmpl == nil {
		return fmt.Errorf("%w: template", ErrNilParameter)
	}
	if err := tmpl.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}
	tmpl.UpdatedAt = now

	definition, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if tmpl.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE templates SET is_default = 0 WHERE module = ? AND id != ?`,
				string(tmpl.Module), tmpl.ID); err != nil {
				return fmt.Errorf("failed to clear default template: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO templates (id, name, module, definition, is_default, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				module = excluded.module,
				definition = excluded.definition,
				is_default = excluded.is_default,
				updated_at = excluded.updated_at`,
			tmpl.ID, tmpl.Name, string(tmpl.Module), string(definition), tmpl.IsDefault, tmpl.CreatedAt, tmpl.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save template: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("saved template", "id", tmpl.ID, "name", tmpl.Name, "module", tmpl.Module, "default", tmpl.IsDefault)
	return nil
}

// GetTemplate returns the template with the given ID.
func (s *SQLiteStorage) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	tmpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, common.ErrNotFound)
	}
	return tmpl, err
}

// GetDefaultTemplate returns the default template of a module.
func (s *SQLiteStorage) GetDefaultTemplate(ctx context.Context, module model.Module) (*model.Template, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE module = ? AND is_default = 1`, string(module))
	tmpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("default %s template: %w", module, common.ErrNotFound)
	}
	return tmpl, err
}

// ListTemplates returns the templates of module, or of every module when
// module is empty.
func (s *SQLiteStorage) ListTemplates(ctx context.Context, module model.Module) ([]model.Template, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + templateColumns + ` FROM templates`
	var args []any
	if module != "" {
		query += ` WHERE module = ?`
		args = append(args, string(module))
	}
	query += ` ORDER BY module, name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var templates []model.Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tmpl)
	}
	return templates, rows.Err()
}

// SetDefaultTemplate marks a template as its module's default and clears the
// flag on the module's other templates.
func (s *SQLiteStorage) SetDefaultTemplate(ctx context.Context, id string) error {
	tmpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	tmpl.IsDefault = true
	return s.SaveTemplate(ctx, tmpl)
}

// DeleteTemplate removes a template.
func (s *SQLiteStorage) DeleteTemplate(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", id, common.ErrNotFound)
	}
	slog.Info("deleted template", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*model.Template, error) {
	var (
		id, module, definition string
		isDefault              bool
		createdAt, updatedAt   time.Time
	)
	if err := row.Scan(&id, &module, &definition, &isDefault, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	var tmpl model.Template
	if err := json.Unmarshal([]byte(definition), &tmpl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s: %w", id, err)
	}
	tmpl.ID = id
	tmpl.Module = model.Module(module)
	tmpl.IsDefault = isDefault
	tmpl.CreatedAt = createdAt
	tmpl.UpdatedAt = updatedAt
	return &tmpl, nil
}
