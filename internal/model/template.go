// Package model defines the core data structures for the guild ledger.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Module is the game-event kind a template or record belongs to.
type Module string

// Event modules.
const (
	ModuleKVM   Module = "kvm"
	ModuleGVG   Module = "gvg"
	ModuleAA    Module = "aa"
	ModuleGuild Module = "guild"
)

// ErrUnknownModule is returned for a module name outside the fixed set.
var ErrUnknownModule = errors.New("unknown module")

// Modules lists every module in display order.
func Modules() []Module {
	return []Module{ModuleKVM, ModuleGVG, ModuleAA, ModuleGuild}
}

// EventModules lists the modules that produce date-keyed event records.
func EventModules() []Module {
	return []Module{ModuleKVM, ModuleGVG, ModuleAA}
}

// Valid reports whether m is one of the known modules.
func (m Module) Valid() bool {
	switch m {
	case ModuleKVM, ModuleGVG, ModuleAA, ModuleGuild:
		return true
	default:
		return false
	}
}

// ParseModule converts a user-supplied module name.
func ParseModule(s string) (Module, error) {
	m := Module(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, s)
	}
	return m, nil
}

// FieldType is the declared type of an extracted field.
type FieldType string

// Field types.
const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
)

// Valid reports whether t is one of the four field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldNumber, FieldDate, FieldBoolean:
		return true
	default:
		return false
	}
}

// ValidationRule constrains a coerced field value. All present constraints
// must hold. Min and Max bound numbers by value and strings by length.
type ValidationRule struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Enum    []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// FieldConfig declares one extracted field.
type FieldConfig struct {
	DefaultValue *string         `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Validation   *ValidationRule `json:"validation,omitempty" yaml:"validation,omitempty"`
	Name         string          `json:"name" yaml:"name" validate:"required"`
	Type         FieldType       `json:"type" yaml:"type" validate:"required,oneof=string number date boolean"`
	Required     bool            `json:"required" yaml:"required"`
}

// OutputFormat describes the record shape a template assembles into.
type OutputFormat struct {
	Type      Module    `json:"type" yaml:"type" validate:"required"`
	Structure Structure `json:"structure" yaml:"structure"`
}

// Template maps recognized text of one module into fields and then into a
// record. Templates are read-only to the extraction pipeline.
type Template struct {
	CreatedAt    time.Time              `json:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt    time.Time              `json:"updatedAt" yaml:"updatedAt,omitempty"`
	FieldMapping map[string]FieldConfig `json:"fieldMapping" yaml:"fieldMapping" validate:"required,min=1,dive"`
	OutputFormat OutputFormat           `json:"outputFormat" yaml:"outputFormat"`
	ID           string                 `json:"id" yaml:"id,omitempty"`
	Name         string                 `json:"name" yaml:"name" validate:"required"`
	Module       Module                 `json:"module" yaml:"module" validate:"required,oneof=kvm gvg aa guild"`
	ParseRules   []ParseRule            `json:"parseRules" yaml:"parseRules" validate:"required,min=1"`
	IsDefault    bool                   `json:"isDefault" yaml:"isDefault"`
}

// Field returns the config of a field key.
func (t *Template) Field(key string) (FieldConfig, bool) {
	fc, ok := t.FieldMapping[key]
	return fc, ok
}
