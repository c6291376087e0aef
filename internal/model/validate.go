package model

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"github.com/Veraticus/guild-ledger/internal/common"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the template is well-formed: struct constraints hold,
// every field a rule or the output structure references is declared, and the
// output format matches the module. Pattern compile errors are left to the
// extraction engine, which reports them as rule execution failures.
func (t *Template) Validate() error {
	var result *multierror.Error

	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result = multierror.Append(result, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			result = multierror.Append(result, err)
		}
	}

	if t.OutputFormat.Type != t.Module {
		result = multierror.Append(result,
			fmt.Errorf("output format type %q does not match module %q", t.OutputFormat.Type, t.Module))
	}

	for _, key := range sortedKeys(t.FieldMapping) {
		if err := validateFieldConfig(key, t.FieldMapping[key]); err != nil {
			result = multierror.Append(result, err)
		}
	}

	seen := make(map[string]bool, len(t.ParseRules))
	for i, rule := range t.ParseRules {
		if rule.Name == "" {
			result = multierror.Append(result, fmt.Errorf("parse rule %d has no name", i))
		} else if seen[rule.Name] {
			result = multierror.Append(result, fmt.Errorf("parse rule %q is declared twice", rule.Name))
		}
		seen[rule.Name] = true
		for _, err := range t.validateRule(rule) {
			result = multierror.Append(result, fmt.Errorf("parse rule %q: %w", rule.Name, err))
		}
	}

	for _, err := range t.validateStructure() {
		result = multierror.Append(result, fmt.Errorf("output structure: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		result.ErrorFormat = formatProblems
		return &common.Error{
			Kind:   common.KindInvalidTemplate,
			Detail: fmt.Sprintf("template %q", t.Name),
			Err:    result,
		}
	}
	return nil
}

func formatProblems(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func validateFieldConfig(key string, fc FieldConfig) error {
	if !fc.Type.Valid() {
		return fmt.Errorf("field %q has unknown type %q", key, fc.Type)
	}
	v := fc.Validation
	if v == nil {
		return nil
	}
	if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
		return fmt.Errorf("field %q: min %v is greater than max %v", key, *v.Min, *v.Max)
	}
	if v.Pattern != "" {
		if _, err := regexp.Compile(v.Pattern); err != nil {
			return fmt.Errorf("field %q: validation pattern: %w", key, err)
		}
	}
	return nil
}

func (t *Template) requireField(key string) error {
	if key == "" {
		return errors.New("empty field key")
	}
	if _, ok := t.FieldMapping[key]; !ok {
		return fmt.Errorf("field %q is not in the field mapping", key)
	}
	return nil
}

func (t *Template) validateRule(rule ParseRule) []error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if !rule.Transform.Valid() {
		add(fmt.Errorf("unknown transform %q", rule.Transform))
	}
	for i, sc := range rule.SkipConditions {
		if sc.Contains == "" && sc.Pattern == "" {
			add(fmt.Errorf("skip condition %d is empty", i))
		}
	}

	switch cfg := rule.Config.(type) {
	case *LinePattern:
		if cfg.Pattern == "" {
			add(errors.New("line pattern is empty"))
		}
		if len(cfg.Fields) == 0 {
			add(errors.New("line pattern maps no fields"))
		}
		for _, f := range cfg.Fields {
			add(t.requireField(f))
		}
		if re, err := regexp.Compile(cfg.Pattern); err == nil && re.NumSubexp() < len(cfg.Fields) {
			add(fmt.Errorf("pattern has %d groups for %d fields", re.NumSubexp(), len(cfg.Fields)))
		}
	case *KeywordExtraction:
		if len(cfg.Keywords) == 0 {
			add(errors.New("no keywords"))
		}
		if len(cfg.Keywords) != len(cfg.Fields) {
			add(fmt.Errorf("%d keywords for %d fields", len(cfg.Keywords), len(cfg.Fields)))
		}
		for _, f := range cfg.Fields {
			add(t.requireField(f))
		}
	case *PositionBased:
		add(t.requireField(cfg.Field))
		if cfg.StartLine != nil && *cfg.StartLine < 1 {
			add(errors.New("startLine must be at least 1"))
		}
		if cfg.StartLine != nil && cfg.EndLine != nil && *cfg.EndLine < *cfg.StartLine {
			add(errors.New("endLine is before startLine"))
		}
		if cfg.Column != nil && *cfg.Column < 1 {
			add(errors.New("column must be at least 1"))
		}
	case *Regex:
		if cfg.Pattern == "" {
			add(errors.New("regex pattern is empty"))
			break
		}
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			break
		}
		named := 0
		for _, name := range re.SubexpNames() {
			if name == "" {
				continue
			}
			named++
			add(t.requireField(name))
		}
		if named == 0 {
			add(errors.New("regex has no named groups"))
		}
	case nil:
		add(errors.New("rule has no config"))
	default:
		add(fmt.Errorf("unsupported rule config %T", cfg))
	}
	return errs
}

func (t *Template) validateStructure() []error {
	var errs []error
	s := t.OutputFormat.Structure
	shape, ok := ShapeOf(t.Module)
	if !ok {
		return nil
	}

	if err := t.requireField(s.Date); err != nil {
		errs = append(errs, fmt.Errorf("date: %w", err))
	} else if fc := t.FieldMapping[s.Date]; fc.Type != FieldDate {
		errs = append(errs, fmt.Errorf("date field %q has type %q", s.Date, fc.Type))
	}

	for _, attr := range sortedKeys(s.Fields) {
		if !shape.Fields[attr] {
			errs = append(errs, fmt.Errorf("%s has no attribute %q", t.Module, attr))
			continue
		}
		if err := t.requireField(s.Fields[attr]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", attr, err))
		}
	}

	lists := make([]string, 0, len(s.Lists))
	for name := range s.Lists {
		lists = append(lists, string(name))
	}
	sort.Strings(lists)
	for _, name := range lists {
		spec := s.Lists[ListName(name)]
		allowed, ok := shape.Lists[ListName(name)]
		if !ok {
			errs = append(errs, fmt.Errorf("%s has no list %q", t.Module, name))
			continue
		}
		if _, ok := spec.Fields["name"]; !ok {
			errs = append(errs, fmt.Errorf("list %q does not map name", name))
		}
		if spec.MaxItems > 0 && spec.MinItems > spec.MaxItems {
			errs = append(errs, fmt.Errorf("list %q: minItems %d exceeds maxItems %d", name, spec.MinItems, spec.MaxItems))
		}
		for _, attr := range spec.SortedAttrs() {
			if !allowed[attr] {
				errs = append(errs, fmt.Errorf("list %q has no attribute %q", name, attr))
				continue
			}
			if err := t.requireField(spec.Fields[attr]); err != nil {
				errs = append(errs, fmt.Errorf("list %q %s: %w", name, attr, err))
			}
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
