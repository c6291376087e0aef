package model

import "sort"

// Structure maps field keys onto a module's record shape.
type Structure struct {
	// Fields maps record attributes (event_type, activity, ...) to field keys.
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	// Lists maps member lists to the field keys forming one row each.
	Lists map[ListName]ListSpec `json:"lists,omitempty" yaml:"lists,omitempty"`
	// Date is the field key holding the record's day.
	Date string `json:"date" yaml:"date"`
}

// ListSpec describes one repeated member group. Item i is built from value i
// of every mapped field. MaxItems of zero means unbounded.
type ListSpec struct {
	Fields   map[string]string `json:"fields" yaml:"fields"`
	MinItems int               `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems int               `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
}

// SortedAttrs returns the list's member attributes in a stable order.
func (s ListSpec) SortedAttrs() []string {
	attrs := make([]string, 0, len(s.Fields))
	for a := range s.Fields {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)
	return attrs
}

// Shape lists the record attributes and member lists a module accepts.
type Shape struct {
	Fields map[string]bool
	Lists  map[ListName]map[string]bool
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

var shapes = map[Module]Shape{
	ModuleKVM: {
		Fields: set("event_type", "total_participants"),
		Lists: map[ListName]map[string]bool{
			ListNonParticipants: set("name", "rank", "position", "points"),
		},
	},
	ModuleGVG: {
		Fields: set("event_type"),
		Lists: map[ListName]map[string]bool{
			ListParticipants:    set("name", "class", "kills", "contribution"),
			ListNonParticipants: set("name", "class", "kills", "contribution"),
		},
	},
	ModuleAA: {
		Fields: set("activity", "total_participants"),
		Lists: map[ListName]map[string]bool{
			ListParticipants: set("name", "rank", "score"),
		},
	},
	ModuleGuild: {
		Fields: set(),
		Lists: map[ListName]map[string]bool{
			ListMembers: set("name", "level", "class"),
		},
	},
}

// ShapeOf returns the accepted shape of a module.
func ShapeOf(m Module) (Shape, bool) {
	s, ok := shapes[m]
	return s, ok
}
