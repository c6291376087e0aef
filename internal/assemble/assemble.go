// Package assemble maps coerced fields onto a module's record shape.
package assemble

import (
	"fmt"
	"sort"

	"github.com/Veraticus/guild-ledger/internal/coerce"
	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

// Output is an assembled import. Event modules set Record; the guild module
// sets Roster.
type Output struct {
	Record model.Record
	Roster *model.RosterSnapshot
	Module model.Module
}

// Key returns the day the output is keyed by.
func (o *Output) Key() model.Date {
	if o.Record != nil {
		return o.Record.Key()
	}
	if o.Roster != nil {
		return o.Roster.Date
	}
	return model.Date{}
}

// row is one positional list item: member attribute -> coerced value.
type row map[string]coerce.Value

func (r row) str(attr string) string {
	v, ok := r[attr]
	if !ok || !v.Valid {
		return ""
	}
	return v.String()
}

func (r row) int(attr string) (int, error) {
	v, ok := r[attr]
	if !ok || !v.Valid {
		return 0, nil
	}
	return toInt(attr, v)
}

func toInt(attr string, v coerce.Value) (int, error) {
	if v.Type != model.FieldNumber {
		n, err := coerce.ParseNumber(v.String())
		if err != nil {
			return 0, common.NewError(common.KindTypeCoercion, attr, fmt.Sprintf("%q is not a number", v.Raw), err)
		}
		v = coerce.Value{Type: model.FieldNumber, Number: n, Raw: v.Raw, Valid: true}
	}
	if !v.IsInteger() {
		return 0, common.NewError(common.KindTypeCoercion, attr, fmt.Sprintf("%q is not a whole number", v.Raw), nil)
	}
	return v.Int(), nil
}

type assembler struct {
	tmpl   *model.Template
	fields *coerce.Fields
	s      model.Structure
}

// Assemble builds the module-typed output. Required fields are checked
// first, then the date, then list cardinality.
func Assemble(tmpl *model.Template, fields *coerce.Fields) (*Output, error) {
	a := &assembler{tmpl: tmpl, fields: fields, s: tmpl.OutputFormat.Structure}

	if err := a.checkRequired(); err != nil {
		return nil, err
	}

	dv, ok := fields.First(a.s.Date)
	if !ok {
		return nil, common.NewError(common.KindUnresolvedRequiredField, a.s.Date, "record date", nil)
	}
	date := dv.Date
	if dv.Type != model.FieldDate {
		d, err := model.ParseDate(dv.String())
		if err != nil {
			return nil, common.NewError(common.KindTypeCoercion, a.s.Date, "record date", err)
		}
		date = d
	}

	out := &Output{Module: tmpl.Module}
	var err error
	switch tmpl.Module {
	case model.ModuleKVM:
		out.Record, err = a.kvm(date)
	case model.ModuleGVG:
		out.Record, err = a.gvg(date)
	case model.ModuleAA:
		out.Record, err = a.aa(date)
	case model.ModuleGuild:
		out.Roster, err = a.guild(date)
	default:
		err = common.NewError(common.KindInvalidTemplate, "", fmt.Sprintf("unknown module %q", tmpl.Module), nil)
	}
	if err != nil {
		return nil, err
	}

	if out.Record != nil {
		if verr := out.Record.Validate(); verr != nil {
			return nil, common.NewError(common.KindValidationFailed, "", "assembled record", verr)
		}
	}
	return out, nil
}

func (a *assembler) checkRequired() error {
	keys := make([]string, 0, len(a.tmpl.FieldMapping))
	for k, fc := range a.tmpl.FieldMapping {
		if fc.Required {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := a.fields.First(k); !ok {
			return common.NewError(common.KindUnresolvedRequiredField, k, a.tmpl.FieldMapping[k].Name, nil)
		}
	}
	return nil
}

func (a *assembler) scalar(attr string) (coerce.Value, bool) {
	key, ok := a.s.Fields[attr]
	if !ok {
		return coerce.Value{}, false
	}
	return a.fields.First(key)
}

func (a *assembler) text(attr string) string {
	v, ok := a.scalar(attr)
	if !ok {
		return ""
	}
	return v.String()
}

func (a *assembler) int(attr string) (int, error) {
	v, ok := a.scalar(attr)
	if !ok {
		return 0, nil
	}
	return toInt(attr, v)
}

// rows builds list items positionally. Every extracted field must yield the
// same number of values and the count must respect the list's bounds. An
// optional field that was not extracted, or only took its default, is filled
// in on every row instead of setting the count.
func (a *assembler) rows(list model.ListName) ([]row, error) {
	spec, ok := a.s.Lists[list]
	if !ok {
		return nil, nil
	}

	attrs := spec.SortedAttrs()
	fill := make(map[string]coerce.Value)
	count, from := -1, ""
	for _, attr := range attrs {
		key := spec.Fields[attr]
		vals := a.fields.Values[key]
		if !a.tmpl.FieldMapping[key].Required {
			switch {
			case len(vals) == 0:
				fill[attr] = coerce.Value{Type: a.tmpl.FieldMapping[key].Type}
				continue
			case len(vals) == 1 && a.fields.Defaulted[key]:
				fill[attr] = vals[0]
				continue
			}
		}
		if count == -1 {
			count, from = len(vals), attr
			continue
		}
		if len(vals) != count {
			return nil, &common.Error{
				Kind:   common.KindAssemblyCardinality,
				Field:  key,
				Detail: fmt.Sprintf("list %s: %s has %d values, %s has %d", list, attr, len(vals), from, count),
			}
		}
	}
	if count < 0 {
		count = 0
	}
	if count < spec.MinItems || (spec.MaxItems > 0 && count > spec.MaxItems) {
		return nil, &common.Error{
			Kind:   common.KindAssemblyCardinality,
			Detail: fmt.Sprintf("list %s has %d items, allowed %d..%s", list, count, spec.MinItems, maxLabel(spec.MaxItems)),
		}
	}

	rows := make([]row, count)
	for i := range rows {
		r := make(row, len(attrs))
		for _, attr := range attrs {
			if v, ok := fill[attr]; ok {
				r[attr] = v
				continue
			}
			r[attr] = a.fields.Values[spec.Fields[attr]][i]
		}
		rows[i] = r
	}
	return rows, nil
}

func maxLabel(n int) string {
	if n <= 0 {
		return "∞"
	}
	return fmt.Sprint(n)
}

func (a *assembler) kvm(date model.Date) (model.Record, error) {
	rec := &model.KVMRecord{Date: date, EventType: a.text("event_type")}

	var err error
	if rec.TotalParticipants, err = a.int("total_participants"); err != nil {
		return nil, err
	}

	rows, err := a.rows(model.ListNonParticipants)
	if err != nil {
		return nil, err
	}
	rec.NonParticipants = make([]model.KVMMemberData, 0, len(rows))
	for _, r := range rows {
		m := model.KVMMemberData{Name: r.str("name"), Position: r.str("position")}
		if m.Rank, err = r.int("rank"); err != nil {
			return nil, err
		}
		if m.Points, err = r.int("points"); err != nil {
			return nil, err
		}
		rec.NonParticipants = append(rec.NonParticipants, m)
	}
	return rec, nil
}

func (a *assembler) gvgList(list model.ListName) ([]model.GVGMemberData, error) {
	rows, err := a.rows(list)
	if err != nil {
		return nil, err
	}
	members := make([]model.GVGMemberData, 0, len(rows))
	for _, r := range rows {
		m := model.GVGMemberData{Name: r.str("name"), Class: r.str("class")}
		if m.Kills, err = r.int("kills"); err != nil {
			return nil, err
		}
		if m.Contribution, err = r.int("contribution"); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (a *assembler) gvg(date model.Date) (model.Record, error) {
	rec := &model.GVGRecord{Date: date, EventType: a.text("event_type")}

	var err error
	if rec.Participants, err = a.gvgList(model.ListParticipants); err != nil {
		return nil, err
	}
	if rec.NonParticipants, err = a.gvgList(model.ListNonParticipants); err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *assembler) aa(date model.Date) (model.Record, error) {
	rec := &model.AARecord{Date: date, Activity: a.text("activity")}

	var err error
	if rec.TotalParticipants, err = a.int("total_participants"); err != nil {
		return nil, err
	}

	rows, err := a.rows(model.ListParticipants)
	if err != nil {
		return nil, err
	}
	rec.Participants = make([]model.AAMemberData, 0, len(rows))
	for _, r := range rows {
		m := model.AAMemberData{Name: r.str("name")}
		if m.Rank, err = r.int("rank"); err != nil {
			return nil, err
		}
		if m.Score, err = r.int("score"); err != nil {
			return nil, err
		}
		rec.Participants = append(rec.Participants, m)
	}
	return rec, nil
}

func (a *assembler) guild(date model.Date) (*model.RosterSnapshot, error) {
	rows, err := a.rows(model.ListMembers)
	if err != nil {
		return nil, err
	}
	snap := &model.RosterSnapshot{Date: date, Members: make([]model.RosterEntry, 0, len(rows))}
	for i, r := range rows {
		e := model.RosterEntry{Name: r.str("name"), Class: r.str("class")}
		if e.Name == "" {
			return nil, common.NewError(common.KindValidationFailed, "name",
				fmt.Sprintf("roster row %d", i), model.ErrEmptyName)
		}
		if v, ok := r["level"]; ok && v.Valid {
			lvl, err := toInt("level", v)
			if err != nil {
				return nil, err
			}
			e.Level = &lvl
		}
		snap.Members = append(snap.Members, e)
	}
	return snap, nil
}
