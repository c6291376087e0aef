// Package exchange moves record sequences of one module in and out of
// files. JSON and YAML documents round-trip byte for byte; XLSX is
// export only.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/guild-ledger/internal/model"
)

// Format is a document encoding.
type Format string

// Formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// Exchange errors.
var (
	ErrUnknownFormat  = errors.New("unknown exchange format")
	ErrExportOnly     = errors.New("format is export only")
	ErrModuleMismatch = errors.New("record module does not match document module")
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Document is an exported record sequence.
type Document struct {
	Module  model.Module   `json:"module" yaml:"module"`
	Records []model.Record `json:"records" yaml:"records"`
}

type jsonDocument struct {
	Module  model.Module      `json:"module"`
	Records []json.RawMessage `json:"records"`
}

type yamlDocument struct {
	Module  model.Module `yaml:"module"`
	Records []yaml.Node  `yaml:"records"`
}

// Export writes the records of module to w, ordered by date.
func Export(w io.Writer, format Format, module model.Module, records []model.Record) error {
	doc, err := newDocument(module, records)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatXLSX:
		return exportXLSX(w, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Import reads a document written by Export.
func Import(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	case FormatXLSX:
		return nil, fmt.Errorf("%w: %s", ErrExportOnly, format)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func newDocument(module model.Module, records []model.Record) (*Document, error) {
	if _, err := model.NewRecord(module); err != nil {
		return nil, err
	}
	sorted := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if rec.Module() != module {
			return nil, fmt.Errorf("%w: %s record in %s document", ErrModuleMismatch, rec.Module(), module)
		}
		sorted = append(sorted, rec)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key().Before(sorted[j].Key())
	})
	return &Document{Module: module, Records: sorted}, nil
}

func decodeJSON(data []byte) (*Document, error) {
	var wire jsonDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode json document: %w", err)
	}

	doc := &Document{Module: wire.Module, Records: make([]model.Record, 0, len(wire.Records))}
	for i, raw := range wire.Records {
		rec, err := model.NewRecord(wire.Module)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		doc.Records = append(doc.Records, rec)
	}
	return doc, nil
}

func decodeYAML(data []byte) (*Document, error) {
	var wire yamlDocument
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode yaml document: %w", err)
	}

	doc := &Document{Module: wire.Module, Records: make([]model.Record, 0, len(wire.Records))}
	for i := range wire.Records {
		rec, err := model.NewRecord(wire.Module)
		if err != nil {
			return nil, err
		}
		if err := wire.Records[i].Decode(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		doc.Records = append(doc.Records, rec)
	}
	return doc, nil
}
