package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/guild-ledger/internal/model"
)

// ReadTemplates decodes template definitions. A file holds one template or
// a list of them. Definitions are not validated here.
func ReadTemplates(r io.Reader, format Format) ([]model.Template, error) {
	return readMany[model.Template](r, format, "template")
}

// ReadMembers decodes a roster file: one member or a list of them.
func ReadMembers(r io.Reader, format Format) ([]model.GuildMember, error) {
	return readMany[model.GuildMember](r, format, "member")
}

func readMany[T any](r io.Reader, format Format, what string) ([]T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", what, err)
	}

	var out []T
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &out)
		} else {
			var one T
			err = json.Unmarshal(trimmed, &one)
			out = []T{one}
		}
	case FormatYAML:
		var node yaml.Node
		if err = yaml.Unmarshal(data, &node); err != nil {
			break
		}
		if len(node.Content) == 0 {
			return nil, nil
		}
		doc := node.Content[0]
		if doc.Kind == yaml.SequenceNode {
			err = doc.Decode(&out)
		} else {
			var one T
			err = doc.Decode(&one)
			out = []T{one}
		}
	case FormatXLSX:
		return nil, fmt.Errorf("%w: %s", ErrExportOnly, format)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s file: %w", what, err)
	}
	return out, nil
}
