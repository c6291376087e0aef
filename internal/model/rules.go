package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RuleKind is the closed set of parse rule strategies.
type RuleKind string

// Parse rule kinds.
const (
	RuleLinePattern       RuleKind = "line_pattern"
	RuleKeywordExtraction RuleKind = "keyword_extraction"
	RulePositionBased     RuleKind = "position_based"
	RuleRegex             RuleKind = "regex"
)

// ErrUnknownRuleKind is returned when decoding a rule of an unknown type.
var ErrUnknownRuleKind = errors.New("unknown parse rule type")

// Transform is a named post-processing step applied to rule output.
type Transform string

// Transforms.
const (
	TransformNone   Transform = ""
	TransformTrim   Transform = "trim"
	TransformUpper  Transform = "upper"
	TransformLower  Transform = "lower"
	TransformDigits Transform = "digits"
	TransformDate   Transform = "date"
)

// Valid reports whether t is a known transform.
func (t Transform) Valid() bool {
	switch t {
	case TransformNone, TransformTrim, TransformUpper, TransformLower, TransformDigits, TransformDate:
		return true
	default:
		return false
	}
}

// SkipCondition excludes lines from a rule's candidates, by substring or by
// regular expression.
type SkipCondition struct {
	Contains string `json:"contains,omitempty" yaml:"contains,omitempty"`
	Pattern  string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// RuleConfig is the per-kind configuration of a parse rule. The concrete
// types are LinePattern, KeywordExtraction, PositionBased and Regex.
type RuleConfig interface {
	Kind() RuleKind
	// FieldKeys are the field keys the rule writes, when known without
	// compiling a pattern.
	FieldKeys() []string
}

// LinePattern matches Pattern against each candidate line. Capture group
// i+1 populates Fields[i]. Without Repeat only the first matching line is
// used.
type LinePattern struct {
	Pattern string   `json:"pattern" yaml:"pattern"`
	Fields  []string `json:"fields" yaml:"fields"`
	Repeat  bool     `json:"repeat,omitempty" yaml:"repeat,omitempty"`
}

// Kind implements RuleConfig.
func (*LinePattern) Kind() RuleKind { return RuleLinePattern }

// FieldKeys implements RuleConfig.
func (c *LinePattern) FieldKeys() []string { return c.Fields }

// KeywordExtraction takes the remainder of the first line containing
// Keywords[i] as the value of Fields[i].
type KeywordExtraction struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
	Fields   []string `json:"fields" yaml:"fields"`
}

// Kind implements RuleConfig.
func (*KeywordExtraction) Kind() RuleKind { return RuleKeywordExtraction }

// FieldKeys implements RuleConfig.
func (c *KeywordExtraction) FieldKeys() []string { return c.Fields }

// PositionBased takes lines StartLine..EndLine (1-based, inclusive) and,
// when Column is set, the Column-th delimited cell of each. An empty
// Delimiter splits on runs of whitespace.
type PositionBased struct {
	StartLine *int   `json:"startLine,omitempty" yaml:"startLine,omitempty"`
	EndLine   *int   `json:"endLine,omitempty" yaml:"endLine,omitempty"`
	Column    *int   `json:"column,omitempty" yaml:"column,omitempty"`
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Field     string `json:"field" yaml:"field"`
}

// Kind implements RuleConfig.
func (*PositionBased) Kind() RuleKind { return RulePositionBased }

// FieldKeys implements RuleConfig.
func (c *PositionBased) FieldKeys() []string { return []string{c.Field} }

// Regex applies Pattern to the whole text. Named groups are field keys.
type Regex struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Repeat  bool   `json:"repeat,omitempty" yaml:"repeat,omitempty"`
}

// Kind implements RuleConfig.
func (*Regex) Kind() RuleKind { return RuleRegex }

// FieldKeys implements RuleConfig. Regex keys come from the compiled
// pattern's group names.
func (*Regex) FieldKeys() []string { return nil }

// ParseRule is one named extraction step of a template.
type ParseRule struct {
	Config         RuleConfig      `json:"-" yaml:"-"`
	Name           string          `json:"-" yaml:"-"`
	Transform      Transform       `json:"-" yaml:"-"`
	SkipConditions []SkipCondition `json:"-" yaml:"-"`
}

// Kind returns the rule's kind, or "" when it has no config.
func (r ParseRule) Kind() RuleKind {
	if r.Config == nil {
		return ""
	}
	return r.Config.Kind()
}

func newRuleConfig(kind RuleKind) (RuleConfig, error) {
	switch kind {
	case RuleLinePattern:
		return &LinePattern{}, nil
	case RuleKeywordExtraction:
		return &KeywordExtraction{}, nil
	case RulePositionBased:
		return &PositionBased{}, nil
	case RuleRegex:
		return &Regex{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleKind, kind)
	}
}

type parseRuleJSON struct {
	Name           string          `json:"name"`
	Type           RuleKind        `json:"type"`
	Config         json.RawMessage `json:"config"`
	SkipConditions []SkipCondition `json:"skipConditions,omitempty"`
	Transform      Transform       `json:"transform,omitempty"`
}

// MarshalJSON encodes the rule as {name, type, config, ...}.
func (r ParseRule) MarshalJSON() ([]byte, error) {
	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return nil, err
	}
	return json.Marshal(parseRuleJSON{
		Name:           r.Name,
		Type:           r.Kind(),
		Config:         cfg,
		SkipConditions: r.SkipConditions,
		Transform:      r.Transform,
	})
}

// UnmarshalJSON decodes the config according to the rule's type.
func (r *ParseRule) UnmarshalJSON(data []byte) error {
	var wire parseRuleJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	cfg, err := newRuleConfig(wire.Type)
	if err != nil {
		return fmt.Errorf("rule %q: %w", wire.Name, err)
	}
	if len(wire.Config) > 0 {
		if err := json.Unmarshal(wire.Config, cfg); err != nil {
			return fmt.Errorf("rule %q config: %w", wire.Name, err)
		}
	}
	*r = ParseRule{
		Name:           wire.Name,
		Config:         cfg,
		SkipConditions: wire.SkipConditions,
		Transform:      wire.Transform,
	}
	return nil
}

type parseRuleYAML struct {
	Name           string          `yaml:"name"`
	Type           RuleKind        `yaml:"type"`
	Config         yaml.Node       `yaml:"config"`
	SkipConditions []SkipCondition `yaml:"skipConditions,omitempty"`
	Transform      Transform       `yaml:"transform,omitempty"`
}

// MarshalYAML encodes the rule as {name, type, config, ...}.
func (r ParseRule) MarshalYAML() (any, error) {
	var cfg yaml.Node
	if err := cfg.Encode(r.Config); err != nil {
		return nil, err
	}
	return parseRuleYAML{
		Name:           r.Name,
		Type:           r.Kind(),
		Config:         cfg,
		SkipConditions: r.SkipConditions,
		Transform:      r.Transform,
	}, nil
}

// UnmarshalYAML decodes the config according to the rule's type.
func (r *ParseRule) UnmarshalYAML(node *yaml.Node) error {
	var wire parseRuleYAML
	if err := node.Decode(&wire); err != nil {
		return err
	}
	cfg, err := newRuleConfig(wire.Type)
	if err != nil {
		return fmt.Errorf("rule %q: %w", wire.Name, err)
	}
	if !wire.Config.IsZero() {
		if err := wire.Config.Decode(cfg); err != nil {
			return fmt.Errorf("rule %q config: %w", wire.Name, err)
		}
	}
	*r = ParseRule{
		Name:           wire.Name,
		Config:         cfg,
		SkipConditions: wire.SkipConditions,
		Transform:      wire.Transform,
	}
	return nil
}
