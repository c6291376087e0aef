// Package storage provides the data persistence layer for the guild ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/guild-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidModule = errors.New("invalid module")
	ErrInvalidRecord = errors.New("invalid record")
	ErrInvalidMember = errors.New("invalid member")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEventModule ensures m is a module that stores event records.
func validateEventModule(m model.Module) error {
	for _, em := range model.EventModules() {
		if m == em {
			return nil
		}
	}
	return fmt.Errorf("%w: %q has no event records", ErrInvalidModule, m)
}

// validateRecord checks a record before it is written.
func validateRecord(rec model.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if err := validateEventModule(rec.Module()); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

// validateMember checks a roster member before it is written.
func validateMember(m *model.GuildMember) error {
	if m == nil {
		return fmt.Errorf("%w: member", ErrNilParameter)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMember)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidMember)
	}
	return nil
}
