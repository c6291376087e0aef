// Package extract runs a template's parse rules against recognized text.
package extract

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

// Warning is a soft problem that did not stop extraction.
type Warning struct {
	Rule    string
	Field   string
	Message string
}

// Result holds raw field values keyed by field key. Scalar fields use the
// first value; list fields use all of them.
type Result struct {
	Values     map[string][]string
	Unresolved []string
	Warnings   []Warning
}

// First returns the first raw value of a field.
func (r *Result) First(key string) (string, bool) {
	vals := r.Values[key]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

type compiledRule struct {
	rule  model.ParseRule
	re    *regexp.Regexp
	skips []*regexp.Regexp
}

// Extractor is a template with every pattern compiled.
type Extractor struct {
	tmpl  *model.Template
	rules []compiledRule
}

// Compile validates the template and compiles every pattern it carries. No
// rule runs until all of them compile.
func Compile(tmpl *model.Template) (*Extractor, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	e := &Extractor{tmpl: tmpl, rules: make([]compiledRule, 0, len(tmpl.ParseRules))}
	for _, rule := range tmpl.ParseRules {
		cr := compiledRule{rule: rule}

		var pattern string
		switch cfg := rule.Config.(type) {
		case *model.LinePattern:
			pattern = cfg.Pattern
		case *model.Regex:
			pattern = cfg.Pattern
		}
		if pattern != "" {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, common.RuleError(common.KindRuleExecutionFailure, rule.Name, "compile pattern", err)
			}
			cr.re = re
		}

		for _, sc := range rule.SkipConditions {
			if sc.Pattern == "" {
				cr.skips = append(cr.skips, nil)
				continue
			}
			re, err := regexp.Compile(sc.Pattern)
			if err != nil {
				return nil, common.RuleError(common.KindRuleExecutionFailure, rule.Name, "compile skip pattern", err)
			}
			cr.skips = append(cr.skips, re)
		}
		e.rules = append(e.rules, cr)
	}
	return e, nil
}

// Extract compiles the template and runs it once.
func Extract(ctx context.Context, tmpl *model.Template, text model.RecognizedText) (*Result, error) {
	e, err := Compile(tmpl)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, text)
}

// Template returns the template the extractor was compiled from.
func (e *Extractor) Template() *model.Template {
	return e.tmpl
}

// Run applies the rules in declared order. A rule that yields values for a
// field replaces whatever earlier rules produced for it; a rule that yields
// nothing leaves earlier values alone.
func (e *Extractor) Run(ctx context.Context, text model.RecognizedText) (*Result, error) {
	lines := text.OrderedLines()
	res := &Result{Values: make(map[string][]string)}

	for _, cr := range e.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		produced := cr.apply(lines)
		keys := make([]string, 0, len(produced))
		for k := range produced {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			vals := produced[key]
			if len(vals) == 0 {
				continue
			}
			if cr.rule.Transform != model.TransformNone {
				for i, v := range vals {
					out, err := applyTransform(cr.rule.Transform, v)
					if err != nil {
						res.Warnings = append(res.Warnings, Warning{
							Rule:    cr.rule.Name,
							Field:   key,
							Message: err.Error(),
						})
						continue
					}
					vals[i] = out
				}
			}
			if _, replaced := res.Values[key]; replaced {
				slog.Debug("rule overrides earlier value", "rule", cr.rule.Name, "field", key)
			}
			res.Values[key] = vals
		}
	}

	for key := range e.tmpl.FieldMapping {
		if len(res.Values[key]) == 0 {
			res.Unresolved = append(res.Unresolved, key)
		}
	}
	sort.Strings(res.Unresolved)

	slog.Debug("extraction finished",
		"template", e.tmpl.Name,
		"lines", len(lines),
		"fields", len(res.Values),
		"unresolved", len(res.Unresolved),
		"warnings", len(res.Warnings))
	return res, nil
}

func (cr compiledRule) skipped(line string) bool {
	for i, sc := range cr.rule.SkipConditions {
		if sc.Contains != "" && strings.Contains(line, sc.Contains) {
			return true
		}
		if re := cr.skips[i]; re != nil && re.MatchString(line) {
			return true
		}
	}
	return false
}

func (cr compiledRule) apply(lines []string) map[string][]string {
	out := make(map[string][]string)

	switch cfg := cr.rule.Config.(type) {
	case *model.LinePattern:
		groups := make([]int, len(cfg.Fields))
		for i := range groups {
			groups[i] = i + 1
		}
		var matches [][]*string
		for _, line := range lines {
			if cr.skipped(line) {
				continue
			}
			loc := cr.re.FindStringSubmatchIndex(line)
			if loc == nil {
				continue
			}
			matches = append(matches, submatches(line, loc))
			if !cfg.Repeat {
				break
			}
		}
		collect(out, cfg.Fields, groups, matches)

	case *model.KeywordExtraction:
		for i, kw := range cfg.Keywords {
			for _, line := range lines {
				if cr.skipped(line) {
					continue
				}
				idx := strings.Index(line, kw)
				if idx < 0 {
					continue
				}
				rest := strings.TrimLeft(line[idx+len(kw):], " \t:-")
				rest = strings.TrimSpace(rest)
				if rest != "" {
					out[cfg.Fields[i]] = []string{rest}
				}
				break
			}
		}

	case *model.PositionBased:
		start, end := 1, len(lines)
		if cfg.StartLine != nil {
			start = *cfg.StartLine
		}
		if cfg.EndLine != nil && *cfg.EndLine < end {
			end = *cfg.EndLine
		}
		for n := start; n <= end; n++ {
			line := lines[n-1]
			if strings.TrimSpace(line) == "" || cr.skipped(line) {
				continue
			}
			v := strings.TrimSpace(line)
			if cfg.Column != nil {
				cells := splitCells(line, cfg.Delimiter)
				v = ""
				if c := *cfg.Column; c <= len(cells) {
					v = cells[c-1]
				}
			}
			out[cfg.Field] = append(out[cfg.Field], v)
		}

	case *model.Regex:
		kept := make([]string, 0, len(lines))
		for _, line := range lines {
			if !cr.skipped(line) {
				kept = append(kept, line)
			}
		}
		blob := strings.Join(kept, "\n")

		var locs [][]int
		if cfg.Repeat {
			locs = cr.re.FindAllStringSubmatchIndex(blob, -1)
		} else if loc := cr.re.FindStringSubmatchIndex(blob); loc != nil {
			locs = [][]int{loc}
		}
		matches := make([][]*string, len(locs))
		for i, loc := range locs {
			matches[i] = submatches(blob, loc)
		}

		var keys []string
		var groups []int
		for i, name := range cr.re.SubexpNames() {
			if name != "" {
				keys = append(keys, name)
				groups = append(groups, i)
			}
		}
		collect(out, keys, groups, matches)
	}
	return out
}

// submatches returns the trimmed text of every group of one match, with
// nil for a group that took no part in it.
func submatches(s string, loc []int) []*string {
	out := make([]*string, len(loc)/2)
	for i := range out {
		if loc[2*i] < 0 {
			continue
		}
		v := strings.TrimSpace(s[loc[2*i]:loc[2*i+1]])
		out[i] = &v
	}
	return out
}

// collect appends group groups[i] of every match to field keys[i]. A field
// whose group took part in no match produces nothing. Once a group took part
// in some match, the matches it missed keep an empty slot so list columns
// stay aligned row by row.
func collect(out map[string][]string, keys []string, groups []int, matches [][]*string) {
	for i, key := range keys {
		var vals []string
		took := false
		for _, m := range matches {
			g := groups[i]
			if g < len(m) && m[g] != nil {
				took = true
				vals = append(vals, *m[g])
				continue
			}
			vals = append(vals, "")
		}
		if took {
			out[key] = append(out[key], vals...)
		}
	}
}

func splitCells(line, delim string) []string {
	if delim == "" {
		return strings.Fields(line)
	}
	cells := strings.Split(line, delim)
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
