package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/testutil"
)

func TestExtract_Fixtures(t *testing.T) {
	tests := []struct {
		tmpl *model.Template
		want map[string][]string
		name string
		text string
	}{
		{
			name: "kvm result screen",
			tmpl: testutil.KVMTemplate(),
			text: testutil.KVMText,
			want: map[string][]string{
				"date":       {"2024-03-01"},
				"event_type": {"Kingdom vs Kingdom"},
				"total":      {"42"},
				"rank":       {"1", "2"},
				"name":       {"Alice", "Bob"},
				"position":   {"Knight", "Mage"},
				"points":     {"1200", "900"},
			},
		},
		{
			name: "gvg battle screen",
			tmpl: testutil.GVGTemplate(),
			text: testutil.GVGText,
			want: map[string][]string{
				"date":        {"2024-04-12"},
				"event_type":  {"Fortress Siege"},
				"p_name":      {"Alice", "Carol"},
				"p_class":     {"Knight", "Priest"},
				"p_kills":     {"5", "1"},
				"p_contrib":   {"300", "450"},
				"absent_name": {"Bob"},
			},
		},
		{
			name: "aa table with digits transform",
			tmpl: testutil.AATemplate(),
			text: testutil.AAText,
			want: map[string][]string{
				"activity": {"Arena Assault"},
				"date":     {"2024-05-20"},
				"rank":     {"1", "2"},
				"name":     {"Alice", "Dave"},
				"score":    {"9800", "7150"},
			},
		},
		{
			name: "guild roster with dotted date",
			tmpl: testutil.GuildTemplate(),
			text: testutil.GuildText,
			want: map[string][]string{
				"date":  {"2024-06-01"},
				"name":  {"Alice", "Erin"},
				"level": {"60", "12"},
				"class": {"Knight", "Archer"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Extract(context.Background(), tt.tmpl, model.TextFromString(tt.text))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Values)
			assert.Empty(t, res.Unresolved)
			assert.Empty(t, res.Warnings)
		})
	}
}

func eventTemplate(rules ...model.ParseRule) *model.Template {
	tmpl := testutil.KVMTemplate()
	tmpl.ParseRules = append([]model.ParseRule{tmpl.ParseRules[0]}, rules...)
	tmpl.OutputFormat.Structure.Lists = nil
	return tmpl
}

func TestExtract_LastApplicableRuleWins(t *testing.T) {
	keyword := model.ParseRule{
		Name:   "keyword",
		Config: &model.KeywordExtraction{Keywords: []string{"Event:"}, Fields: []string{"event_type"}},
	}

	tests := []struct {
		name   string
		second model.ParseRule
		want   string
	}{
		{
			name: "later match replaces earlier value",
			second: model.ParseRule{
				Name:   "banner",
				Config: &model.LinePattern{Pattern: `^=== (.+) ===$`, Fields: []string{"event_type"}},
			},
			want: "Siege",
		},
		{
			name: "later rule without match keeps earlier value",
			second: model.ParseRule{
				Name:   "banner",
				Config: &model.LinePattern{Pattern: `^### (.+) ###$`, Fields: []string{"event_type"}},
			},
			want: "Kingdom vs Kingdom",
		},
		{
			name: "later regex with an absent optional group keeps earlier value",
			second: model.ParseRule{
				Name:   "dated",
				Config: &model.Regex{Pattern: `Date: (?P<date>\d{4}-\d{2}-\d{2})(?: (?P<event_type>[A-Z]+))?`},
			},
			want: "Kingdom vs Kingdom",
		},
		{
			name: "later line pattern with an absent optional group keeps earlier value",
			second: model.ParseRule{
				Name:   "dated",
				Config: &model.LinePattern{Pattern: `^Date: (\S+)(?: (\S+))?$`, Fields: []string{"date", "event_type"}},
			},
			want: "Kingdom vs Kingdom",
		},
	}

	text := model.TextFromString("Date: 2024-03-01\nEvent: Kingdom vs Kingdom\n=== Siege ===")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Extract(context.Background(), eventTemplate(keyword, tt.second), text)
			require.NoError(t, err)
			got, ok := res.First("event_type")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_RepeatedOptionalGroupStaysAligned(t *testing.T) {
	tmpl := eventTemplate(model.ParseRule{
		Name: "rows",
		Config: &model.Regex{
			Pattern: `(?m)^(?P<name>\w+)(?: \((?P<position>\w+)\))?(?: #(?P<points>\d+))?$`,
			Repeat:  true,
		},
	})

	res, err := Extract(context.Background(), tmpl, model.TextFromString("Alice (Leader)\nBob\nCarol (Officer)"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, res.Values["name"])
	assert.Equal(t, []string{"Leader", "", "Officer"}, res.Values["position"])
	assert.NotContains(t, res.Values, "points")
}

func TestExtract_RegexMissThenKeywordMatch(t *testing.T) {
	tmpl := eventTemplate(
		model.ParseRule{Name: "regex", Config: &model.Regex{Pattern: `Mode=(?P<event_type>\w+)`}},
		model.ParseRule{
			Name:   "keyword",
			Config: &model.KeywordExtraction{Keywords: []string{"Event:"}, Fields: []string{"event_type"}},
		},
	)

	res, err := Extract(context.Background(), tmpl, model.TextFromString(testutil.KVMText))
	require.NoError(t, err)
	assert.Equal(t, []string{"Kingdom vs Kingdom"}, res.Values["event_type"])
}

func TestExtract_CompileFailureAbortsBeforeAnyRule(t *testing.T) {
	tests := []struct {
		name string
		rule model.ParseRule
	}{
		{
			name: "bad line pattern",
			rule: model.ParseRule{
				Name:   "broken",
				Config: &model.LinePattern{Pattern: `^(\d+`, Fields: []string{"rank"}},
			},
		},
		{
			name: "bad skip pattern",
			rule: model.ParseRule{
				Name:           "broken",
				Config:         &model.KeywordExtraction{Keywords: []string{"Event:"}, Fields: []string{"event_type"}},
				SkipConditions: []model.SkipCondition{{Pattern: `[a-`}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(context.Background(), eventTemplate(tt.rule), model.TextFromString(testutil.KVMText))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrRuleExecutionFailure)

			var pe *common.Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "broken", pe.Rule)
		})
	}
}

func TestExtract_InvalidTemplate(t *testing.T) {
	tmpl := testutil.KVMTemplate()
	tmpl.OutputFormat.Type = model.ModuleGVG

	_, err := Extract(context.Background(), tmpl, model.TextFromString(testutil.KVMText))
	assert.ErrorIs(t, err, common.ErrInvalidTemplate)
}

func TestExtract_SkipConditions(t *testing.T) {
	rule := model.ParseRule{
		Name:           "rows",
		Config:         &model.LinePattern{Pattern: `^(\d+)\s+(\S+)\s+(\S+)\s+(\d+)$`, Fields: []string{"rank", "name", "position", "points"}, Repeat: true},
		SkipConditions: []model.SkipCondition{{Contains: "Guest"}, {Pattern: `^9\d\s`}},
	}
	text := model.TextFromString("Date: 2024-03-01\n1 Alice Knight 10\n2 Guest Mage 5\n95 Zed Rogue 1\n3 Bob Mage 7")

	res, err := Extract(context.Background(), eventTemplate(rule), text)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, res.Values["name"])
}

func TestExtract_TransformFailureKeepsRawValue(t *testing.T) {
	rule := model.ParseRule{
		Name:      "when",
		Config:    &model.KeywordExtraction{Keywords: []string{"When:"}, Fields: []string{"event_type"}},
		Transform: model.TransformDate,
	}
	text := model.TextFromString("Date: 2024-03-01\nWhen: 03/01/2024")

	res, err := Extract(context.Background(), eventTemplate(rule), text)
	require.NoError(t, err)
	assert.Equal(t, []string{"03/01/2024"}, res.Values["event_type"])
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "when", res.Warnings[0].Rule)
	assert.Equal(t, "event_type", res.Warnings[0].Field)
}

func TestExtract_Unresolved(t *testing.T) {
	res, err := Extract(context.Background(), eventTemplate(), model.TextFromString("Date: 2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"event_type", "name", "points", "position", "rank", "total"}, res.Unresolved)
}

func TestExtract_PositionBasedDelimiter(t *testing.T) {
	tmpl := testutil.AATemplate()
	tmpl.ParseRules = []model.ParseRule{
		tmpl.ParseRules[0],
		{Name: "name", Config: &model.PositionBased{StartLine: intPtr(2), EndLine: intPtr(3), Column: intPtr(2), Delimiter: "|", Field: "name"}},
		{Name: "score", Config: &model.PositionBased{StartLine: intPtr(2), Column: intPtr(5), Delimiter: "|", Field: "score"}},
	}
	text := model.TextFromString("Arena 2024-05-20\n1 | Alice Smith | 10\n2 | Dave | 20\n3 | Eve | 30")

	res, err := Extract(context.Background(), tmpl, text)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Smith", "Dave"}, res.Values["name"])
	assert.Equal(t, []string{"", "", ""}, res.Values["score"])
}

func TestExtract_RegexRepeat(t *testing.T) {
	tmpl := testutil.AATemplate()
	tmpl.ParseRules = []model.ParseRule{
		tmpl.ParseRules[0],
		{Name: "pairs", Config: &model.Regex{Pattern: `(?P<name>[A-Z][a-z]+)=(?P<score>\d+)`, Repeat: true}},
	}
	text := model.TextFromString("Arena 2024-05-20\nAlice=10 Dave=20\nEve=30")

	res, err := Extract(context.Background(), tmpl, text)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Dave", "Eve"}, res.Values["name"])
	assert.Equal(t, []string{"10", "20", "30"}, res.Values["score"])
}

func TestExtract_Regions(t *testing.T) {
	text := model.RecognizedText{Regions: []model.Region{
		{Text: "Kingdom vs Kingdom", X: 80, Y: 31, Height: 10},
		{Text: "Date: 2024/03/01", X: 0, Y: 0, Height: 10},
		{Text: "Event:", X: 0, Y: 30, Height: 12},
	}}
	assert.Equal(t, []string{"Date: 2024/03/01", "Event: Kingdom vs Kingdom"}, text.OrderedLines())

	res, err := Extract(context.Background(), eventTemplate(model.ParseRule{
		Name:   "keyword",
		Config: &model.KeywordExtraction{Keywords: []string{"Event:"}, Fields: []string{"event_type"}},
	}), text)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01"}, res.Values["date"])
	assert.Equal(t, []string{"Kingdom vs Kingdom"}, res.Values["event_type"])
}

func TestExtract_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, testutil.KVMTemplate(), model.TextFromString(testutil.KVMText))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyTransform(t *testing.T) {
	tests := []struct {
		transform model.Transform
		in        string
		want      string
		wantErr   bool
	}{
		{transform: model.TransformTrim, in: "  a b ", want: "a b"},
		{transform: model.TransformUpper, in: "knight", want: "KNIGHT"},
		{transform: model.TransformLower, in: "KNIGHT", want: "knight"},
		{transform: model.TransformDigits, in: "1,234 pts", want: "1234"},
		{transform: model.TransformDigits, in: "none", want: "none", wantErr: true},
		{transform: model.TransformDate, in: "2024/03/01", want: "2024-03-01"},
		{transform: model.TransformDate, in: "2024.3.1", want: "2024-03-01"},
		{transform: model.TransformDate, in: "20240301", want: "2024-03-01"},
		{transform: model.TransformDate, in: "01/03/2024", want: "01/03/2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.transform)+"/"+tt.in, func(t *testing.T) {
			got, err := applyTransform(tt.transform, tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func intPtr(i int) *int { return &i }
