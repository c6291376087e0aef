package testutil

import (
	"github.com/Veraticus/guild-ledger/internal/model"
)

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

// KVMTemplate returns a template for a KVM result screen:
//
//	Date: 2024/03/01
//	Event: Kingdom vs Kingdom
//	Participants: 42
//	1 Alice Knight 1200
//	2 Bob Mage 900
func KVMTemplate() *model.Template {
	return &model.Template{
		ID:     "tmpl-kvm",
		Name:   "KVM result screen",
		Module: model.ModuleKVM,
		FieldMapping: map[string]model.FieldConfig{
			"date":       {Name: "Event date", Type: model.FieldDate, Required: true},
			"event_type": {Name: "Event type", Type: model.FieldString, DefaultValue: strPtr("KVM")},
			"total":      {Name: "Participants", Type: model.FieldNumber, Validation: &model.ValidationRule{Min: floatPtr(0)}},
			"rank":       {Name: "Rank", Type: model.FieldNumber, Required: true, Validation: &model.ValidationRule{Min: floatPtr(1)}},
			"name":       {Name: "Name", Type: model.FieldString, Required: true},
			"position":   {Name: "Position", Type: model.FieldString},
			"points":     {Name: "Points", Type: model.FieldNumber},
		},
		ParseRules: []model.ParseRule{
			{
				Name:      "date",
				Config:    &model.Regex{Pattern: `Date:\s*(?P<date>\d{4}[-/.]\d{2}[-/.]\d{2})`},
				Transform: model.TransformDate,
			},
			{
				Name: "header",
				Config: &model.KeywordExtraction{
					Keywords: []string{"Event:", "Participants:"},
					Fields:   []string{"event_type", "total"},
				},
				Transform: model.TransformTrim,
			},
			{
				Name: "rows",
				Config: &model.LinePattern{
					Pattern: `^(\d+)\s+(\S+)\s+(\S+)\s+(\d+)$`,
					Fields:  []string{"rank", "name", "position", "points"},
					Repeat:  true,
				},
				SkipConditions: []model.SkipCondition{{Contains: "Rank Name"}},
			},
		},
		OutputFormat: model.OutputFormat{
			Type: model.ModuleKVM,
			Structure: model.Structure{
				Date: "date",
				Fields: map[string]string{
					"event_type":         "event_type",
					"total_participants": "total",
				},
				Lists: map[model.ListName]model.ListSpec{
					model.ListNonParticipants: {
						Fields: map[string]string{
							"rank":     "rank",
							"name":     "name",
							"position": "position",
							"points":   "points",
						},
					},
				},
			},
		},
		IsDefault: true,
	}
}

// KVMText is recognized text matching KVMTemplate.
const KVMText = `KVM Result
Date: 2024/03/01
Event: Kingdom vs Kingdom
Participants: 42
Rank Name Position Points
1 Alice Knight 1200
2 Bob Mage 900`

// GVGTemplate returns a template for a GVG battle screen where joined
// members are prefixed with "+" and absent members with "-".
func GVGTemplate() *model.Template {
	return &model.Template{
		ID:     "tmpl-gvg",
		Name:   "GVG battle screen",
		Module: model.ModuleGVG,
		FieldMapping: map[string]model.FieldConfig{
			"date":        {Name: "Battle date", Type: model.FieldDate, Required: true},
			"event_type":  {Name: "Battle", Type: model.FieldString, DefaultValue: strPtr("GVG")},
			"p_name":      {Name: "Participant", Type: model.FieldString},
			"p_class":     {Name: "Participant class", Type: model.FieldString},
			"p_kills":     {Name: "Kills", Type: model.FieldNumber},
			"p_contrib":   {Name: "Contribution", Type: model.FieldNumber},
			"absent_name": {Name: "Absent", Type: model.FieldString},
		},
		ParseRules: []model.ParseRule{
			{
				Name:      "date",
				Config:    &model.Regex{Pattern: `(?P<date>\d{4}-\d{2}-\d{2})`},
				Transform: model.TransformDate,
			},
			{
				Name:   "battle",
				Config: &model.KeywordExtraction{Keywords: []string{"Battle:"}, Fields: []string{"event_type"}},
			},
			{
				Name: "joined",
				Config: &model.LinePattern{
					Pattern: `^\+\s*(\S+)\s+(\S+)\s+(\d+)\s+(\d+)$`,
					Fields:  []string{"p_name", "p_class", "p_kills", "p_contrib"},
					Repeat:  true,
				},
			},
			{
				Name: "absent",
				Config: &model.LinePattern{
					Pattern: `^-\s*(\S+)$`,
					Fields:  []string{"absent_name"},
					Repeat:  true,
				},
			},
		},
		OutputFormat: model.OutputFormat{
			Type: model.ModuleGVG,
			Structure: model.Structure{
				Date:   "date",
				Fields: map[string]string{"event_type": "event_type"},
				Lists: map[model.ListName]model.ListSpec{
					model.ListParticipants: {
						Fields: map[string]string{
							"name":         "p_name",
							"class":        "p_class",
							"kills":        "p_kills",
							"contribution": "p_contrib",
						},
						MinItems: 1,
					},
					model.ListNonParticipants: {
						Fields: map[string]string{"name": "absent_name"},
					},
				},
			},
		},
	}
}

// GVGText is recognized text matching GVGTemplate.
const GVGText = `2024-04-12
Battle: Fortress Siege
+ Alice Knight 5 300
+ Carol Priest 1 450
- Bob`

// AATemplate returns a template for an AA activity ranking screen laid out
// as a whitespace table starting on line 3.
func AATemplate() *model.Template {
	return &model.Template{
		ID:     "tmpl-aa",
		Name:   "AA ranking table",
		Module: model.ModuleAA,
		FieldMapping: map[string]model.FieldConfig{
			"date":     {Name: "Date", Type: model.FieldDate, Required: true},
			"activity": {Name: "Activity", Type: model.FieldString, Required: true},
			"rank":     {Name: "Rank", Type: model.FieldNumber},
			"name":     {Name: "Name", Type: model.FieldString},
			"score":    {Name: "Score", Type: model.FieldNumber},
		},
		ParseRules: []model.ParseRule{
			{
				Name:   "header",
				Config: &model.LinePattern{Pattern: `^(.+?)\s+(\d{4}-\d{2}-\d{2})$`, Fields: []string{"activity", "date"}},
			},
			{Name: "rank", Config: &model.PositionBased{StartLine: intPtr(3), Column: intPtr(1), Field: "rank"}},
			{Name: "name", Config: &model.PositionBased{StartLine: intPtr(3), Column: intPtr(2), Field: "name"}},
			{Name: "score", Config: &model.PositionBased{StartLine: intPtr(3), Column: intPtr(3), Field: "score"}, Transform: model.TransformDigits},
		},
		OutputFormat: model.OutputFormat{
			Type: model.ModuleAA,
			Structure: model.Structure{
				Date:   "date",
				Fields: map[string]string{"activity": "activity"},
				Lists: map[model.ListName]model.ListSpec{
					model.ListParticipants: {
						Fields: map[string]string{"rank": "rank", "name": "name", "score": "score"},
					},
				},
			},
		},
	}
}

// AAText is recognized text matching AATemplate.
const AAText = `Arena Assault 2024-05-20
Rank Name Score
1 Alice 9,800
2 Dave 7,150`

// GuildTemplate returns a template for a guild roster screen.
func GuildTemplate() *model.Template {
	return &model.Template{
		ID:     "tmpl-guild",
		Name:   "Guild roster",
		Module: model.ModuleGuild,
		FieldMapping: map[string]model.FieldConfig{
			"date":  {Name: "Snapshot date", Type: model.FieldDate, Required: true},
			"name":  {Name: "Name", Type: model.FieldString, Required: true},
			"level": {Name: "Level", Type: model.FieldNumber, Validation: &model.ValidationRule{Min: floatPtr(1), Max: floatPtr(200)}},
			"class": {Name: "Class", Type: model.FieldString, Validation: &model.ValidationRule{Enum: []string{"Knight", "Mage", "Priest", "Archer"}}},
		},
		ParseRules: []model.ParseRule{
			{Name: "date", Config: &model.Regex{Pattern: `Roster (?P<date>\S+)`}, Transform: model.TransformDate},
			{
				Name: "members",
				Config: &model.LinePattern{
					Pattern: `^(\S+)\s+Lv\.?\s*(\d+)\s+(\S+)$`,
					Fields:  []string{"name", "level", "class"},
					Repeat:  true,
				},
			},
		},
		OutputFormat: model.OutputFormat{
			Type: model.ModuleGuild,
			Structure: model.Structure{
				Date: "date",
				Lists: map[model.ListName]model.ListSpec{
					model.ListMembers: {
						Fields:   map[string]string{"name": "name", "level": "level", "class": "class"},
						MinItems: 1,
					},
				},
			},
		},
	}
}

// GuildText is recognized text matching GuildTemplate.
const GuildText = `Roster 2024.06.01
Alice Lv.60 Knight
Erin Lv 12 Archer`
