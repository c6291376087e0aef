package exchange

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/guild-ledger/internal/model"
)

func sampleRecords() map[model.Module][]model.Record {
	return map[model.Module][]model.Record{
		model.ModuleKVM: {
			&model.KVMRecord{
				Date:              model.MustParseDate("2024-03-08"),
				EventType:         "KVM",
				TotalParticipants: 28,
				NonParticipants:   []model.KVMMemberData{{Name: "Bob", Position: "Mage", Rank: 2, Points: 900}},
			},
			&model.KVMRecord{Date: model.MustParseDate("2024-03-01"), EventType: "KVM", TotalParticipants: 30},
		},
		model.ModuleGVG: {
			&model.GVGRecord{
				Date:            model.MustParseDate("2024-04-12"),
				EventType:       "Fortress Siege",
				Participants:    []model.GVGMemberData{{Name: "Alice", Class: "Knight", Kills: 5, Contribution: 300}},
				NonParticipants: []model.GVGMemberData{{Name: "Bob"}},
			},
		},
		model.ModuleAA: {
			&model.AARecord{
				Date:         model.MustParseDate("2024-05-20"),
				Activity:     "Arena Assault",
				Participants: []model.AAMemberData{{Name: "Alice", Rank: 1, Score: 9800}, {Name: "Dave", Rank: 2, Score: 7150}},
			},
		},
	}
}

func TestExportImport_ByteIdentical(t *testing.T) {
	for module, records := range sampleRecords() {
		for _, format := range []Format{FormatJSON, FormatYAML} {
			t.Run(string(module)+"/"+string(format), func(t *testing.T) {
				var first bytes.Buffer
				require.NoError(t, Export(&first, format, module, records))

				doc, err := Import(bytes.NewReader(first.Bytes()), format)
				require.NoError(t, err)
				assert.Equal(t, module, doc.Module)
				assert.Len(t, doc.Records, len(records))

				var second bytes.Buffer
				require.NoError(t, Export(&second, format, doc.Module, doc.Records))
				assert.Equal(t, first.String(), second.String())
			})
		}
	}
}

func TestExport_OrdersByDate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatJSON, model.ModuleKVM, sampleRecords()[model.ModuleKVM]))

	doc, err := Import(&buf, FormatJSON)
	require.NoError(t, err)
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "2024-03-01", doc.Records[0].Key().String())
	assert.Equal(t, "2024-03-08", doc.Records[1].Key().String())
}

func TestExport_ModuleMismatch(t *testing.T) {
	err := Export(&bytes.Buffer{}, FormatJSON, model.ModuleAA, sampleRecords()[model.ModuleKVM])
	assert.ErrorIs(t, err, ErrModuleMismatch)

	err = Export(&bytes.Buffer{}, FormatJSON, model.ModuleGuild, nil)
	assert.ErrorIs(t, err, model.ErrUnknownModule)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		input   string
		format  Format
	}{
		{name: "xlsx", input: "", format: FormatXLSX, wantErr: ErrExportOnly},
		{name: "unknown module", input: `{"module":"guild","records":[{}]}`, format: FormatJSON, wantErr: model.ErrUnknownModule},
		{name: "unknown format", input: "", format: "csv", wantErr: ErrUnknownFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tt.input), tt.format)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := Import(strings.NewReader(`{"module":"kvm","records":[{"date":"03/01/2024"}]}`), FormatJSON)
	assert.Error(t, err)
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatXLSX, model.ModuleGVG, sampleRecords()[model.ModuleGVG]))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{summarySheet, "participants", "non_participants"}, f.GetSheetList())

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-04-12", "gvg", "1"}, rows[1])

	rows, err = f.GetRows("non_participants")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-04-12", "1", "Bob"}, rows[1])
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"out.json":    FormatJSON,
		"out.YAML":    FormatYAML,
		"dir/out.yml": FormatYAML,
		"report.xlsx": FormatXLSX,
	}
	for path, want := range tests {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("out.csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
