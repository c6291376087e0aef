package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/testutil"
)

func TestTemplate_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(*model.Template)
		name    string
		wantErr string
	}{
		{
			name:   "well formed kvm template",
			mutate: func(*model.Template) {},
		},
		{
			name: "output type differs from module",
			mutate: func(tmpl *model.Template) {
				tmpl.OutputFormat.Type = model.ModuleAA
			},
			wantErr: `does not match module "kvm"`,
		},
		{
			name: "rule references undeclared field",
			mutate: func(tmpl *model.Template) {
				tmpl.ParseRules[1].Config = &model.KeywordExtraction{
					Keywords: []string{"Event:"},
					Fields:   []string{"missing"},
				}
			},
			wantErr: `field "missing" is not in the field mapping`,
		},
		{
			name: "unknown field type",
			mutate: func(tmpl *model.Template) {
				fc := tmpl.FieldMapping["points"]
				fc.Type = "float"
				tmpl.FieldMapping["points"] = fc
			},
			wantErr: `unknown type "float"`,
		},
		{
			name: "regex group not declared",
			mutate: func(tmpl *model.Template) {
				tmpl.ParseRules[0].Config = &model.Regex{Pattern: `Day (?P<day>\d+)`}
			},
			wantErr: `field "day" is not in the field mapping`,
		},
		{
			name: "keyword and field counts differ",
			mutate: func(tmpl *model.Template) {
				tmpl.ParseRules[1].Config = &model.KeywordExtraction{
					Keywords: []string{"Event:", "Participants:"},
					Fields:   []string{"event_type"},
				}
			},
			wantErr: "2 keywords for 1 fields",
		},
		{
			name: "structure attribute not in module shape",
			mutate: func(tmpl *model.Template) {
				tmpl.OutputFormat.Structure.Fields["activity"] = "event_type"
			},
			wantErr: `kvm has no attribute "activity"`,
		},
		{
			name: "list without name",
			mutate: func(tmpl *model.Template) {
				delete(tmpl.OutputFormat.Structure.Lists[model.ListNonParticipants].Fields, "name")
			},
			wantErr: `does not map name`,
		},
		{
			name: "missing template name",
			mutate: func(tmpl *model.Template) {
				tmpl.Name = ""
			},
			wantErr: `Template.Name: failed "required"`,
		},
		{
			name: "rule without config",
			mutate: func(tmpl *model.Template) {
				tmpl.ParseRules[0].Config = nil
			},
			wantErr: "rule has no config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := testutil.KVMTemplate()
			tt.mutate(tmpl)

			err := tmpl.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidTemplate)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTemplate_FixturesValidate(t *testing.T) {
	for _, tmpl := range []*model.Template{
		testutil.KVMTemplate(),
		testutil.GVGTemplate(),
		testutil.AATemplate(),
		testutil.GuildTemplate(),
	} {
		assert.NoError(t, tmpl.Validate(), tmpl.Name)
	}
}

func TestParseRule_JSONRoundTrip(t *testing.T) {
	tmpl := testutil.KVMTemplate()

	data, err := json.Marshal(tmpl)
	require.NoError(t, err)

	var decoded model.Template
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded.ParseRules, len(tmpl.ParseRules))
	for i, rule := range decoded.ParseRules {
		assert.Equal(t, tmpl.ParseRules[i].Name, rule.Name)
		assert.Equal(t, tmpl.ParseRules[i].Kind(), rule.Kind())
		assert.Equal(t, tmpl.ParseRules[i].Config, rule.Config)
		assert.Equal(t, tmpl.ParseRules[i].Transform, rule.Transform)
	}
	assert.Equal(t, tmpl.FieldMapping, decoded.FieldMapping)
	assert.Equal(t, tmpl.OutputFormat, decoded.OutputFormat)
}

func TestParseRule_YAML(t *testing.T) {
	src := `
name: columns
type: position_based
transform: trim
skipConditions:
  - contains: "Rank"
config:
  startLine: 3
  column: 2
  field: name
`
	var rule model.ParseRule
	require.NoError(t, yaml.Unmarshal([]byte(src), &rule))

	assert.Equal(t, "columns", rule.Name)
	assert.Equal(t, model.RulePositionBased, rule.Kind())
	assert.Equal(t, model.TransformTrim, rule.Transform)
	assert.Equal(t, []model.SkipCondition{{Contains: "Rank"}}, rule.SkipConditions)

	cfg, ok := rule.Config.(*model.PositionBased)
	require.True(t, ok)
	require.NotNil(t, cfg.StartLine)
	assert.Equal(t, 3, *cfg.StartLine)
	assert.Nil(t, cfg.EndLine)
	assert.Equal(t, "name", cfg.Field)

	out, err := yaml.Marshal(rule)
	require.NoError(t, err)
	var again model.ParseRule
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.Equal(t, rule, again)
}

func TestParseRule_UnknownType(t *testing.T) {
	var rule model.ParseRule
	err := json.Unmarshal([]byte(`{"name":"x","type":"fuzzy","config":{}}`), &rule)
	assert.ErrorIs(t, err, model.ErrUnknownRuleKind)

	err = yaml.Unmarshal([]byte("name: x\ntype: fuzzy\n"), &rule)
	assert.ErrorIs(t, err, model.ErrUnknownRuleKind)
}

func TestDate(t *testing.T) {
	d := model.MustParseDate("2024-03-01")
	assert.Equal(t, "2024-03-01", d.String())
	assert.True(t, d.Before(model.MustParseDate("2024-03-02")))
	assert.True(t, d.Equal(model.DayOf(time.Date(2024, 3, 1, 23, 59, 0, 0, time.FixedZone("X", 9*3600)))))

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01"`, string(data))

	var back model.Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(d))

	_, err = model.ParseDate("03/01/2024")
	assert.Error(t, err)
}

func TestGuildMember_EligibleOn(t *testing.T) {
	joined := time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)
	m := model.GuildMember{Name: "B", CreatedAt: &joined}

	assert.False(t, m.EligibleOn(model.MustParseDate("2024-03-01")))
	assert.True(t, m.EligibleOn(model.MustParseDate("2024-06-01")))
	assert.True(t, m.EligibleOn(model.MustParseDate("2024-07-01")))

	assert.True(t, model.GuildMember{Name: "A"}.EligibleOn(model.MustParseDate("2000-01-01")))
}

func TestRecord_Rename(t *testing.T) {
	rec := &model.KVMRecord{
		Date:            model.MustParseDate("2024-03-01"),
		NonParticipants: []model.KVMMemberData{{Name: "Alcie"}},
	}

	require.NoError(t, rec.Rename(model.ListNonParticipants, 0, "Alice"))
	assert.Equal(t, []string{"Alice"}, rec.Names(model.ListNonParticipants))

	assert.ErrorIs(t, rec.Rename(model.ListParticipants, 0, "x"), model.ErrUnknownList)
	assert.ErrorIs(t, rec.Rename(model.ListNonParticipants, 3, "x"), model.ErrIndexOutRange)

	gvg := &model.GVGRecord{
		Date:         model.MustParseDate("2024-03-01"),
		Participants: []model.GVGMemberData{{Name: "A"}, {Name: " "}},
	}
	assert.ErrorIs(t, gvg.Validate(), model.ErrEmptyName)
	assert.ErrorIs(t, (&model.AARecord{}).Validate(), model.ErrMissingDate)
}

func TestRecord_ParticipantCount(t *testing.T) {
	aa := &model.AARecord{Participants: []model.AAMemberData{{Name: "A"}, {Name: "B"}}}
	assert.Equal(t, 2, aa.ParticipantCount())
	aa.TotalParticipants = 30
	assert.Equal(t, 30, aa.ParticipantCount())

	gvg := &model.GVGRecord{Participants: []model.GVGMemberData{{Name: "A"}}}
	assert.Equal(t, 1, gvg.ParticipantCount())
}
