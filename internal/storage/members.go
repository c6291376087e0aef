package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

// ListMembers returns the whole roster ordered by sort key, then name.
func (s *SQLiteStorage) ListMembers(ctx context.Context) ([]model.GuildMember, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, level, class, party_dic, sort, created_at
		FROM members
		ORDER BY sort IS NULL, sort, name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []model.GuildMember
	for rows.Next() {
		var (
			m         model.GuildMember
			level     sql.NullInt64
			class     sql.NullString
			partyDic  sql.NullString
			sortKey   sql.NullInt64
			createdAt sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.Name, &level, &class, &partyDic, &sortKey, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if level.Valid {
			v := int(level.Int64)
			m.Level = &v
		}
		if sortKey.Valid {
			v := int(sortKey.Int64)
			m.Sort = &v
		}
		if createdAt.Valid {
			t := createdAt.Time
			m.CreatedAt = &t
		}
		m.Class = class.String
		if partyDic.Valid && partyDic.String != "" {
			if err := json.Unmarshal([]byte(partyDic.String), &m.PartyDic); err != nil {
				return nil, fmt.Errorf("failed to unmarshal party assignments of %s: %w", m.ID, err)
			}
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SaveMember inserts or replaces a roster member by ID.
func (s *SQLiteStorage) SaveMember(ctx context.Context, m *model.GuildMember) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMember(m); err != nil {
		return err
	}

	var partyDic *string
	if len(m.PartyDic) > 0 {
		data, err := json.Marshal(m.PartyDic)
		if err != nil {
			return fmt.Errorf("failed to marshal party assignments: %w", err)
		}
		str := string(data)
		partyDic = &str
	}

	var class *string
	if m.Class != "" {
		class = &m.Class
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, level, class, party_dic, sort, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			level = excluded.level,
			class = excluded.class,
			party_dic = excluded.party_dic,
			sort = excluded.sort,
			created_at = excluded.created_at`,
		m.ID, m.Name, m.Level, class, partyDic, m.Sort, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}

	slog.Debug("saved member", "id", m.ID, "name", m.Name)
	return nil
}

// RenameMember changes the name of the member with the given ID.
func (s *SQLiteStorage) RenameMember(ctx context.Context, id, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE members SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteMember removes a member from the roster.
func (s *SQLiteStorage) DeleteMember(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("member %s: %w", id, common.ErrNotFound)
	}
	slog.Info("deleted member", "id", id)
	return nil
}
