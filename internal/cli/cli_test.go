package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/guild-ledger/internal/ledger"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
)

func TestInterruptHandler(t *testing.T) {
	var out bytes.Buffer
	h := NewInterruptHandler(&out, "Import", "Already stored records are kept")
	ctx := h.HandleInterrupts(context.Background())

	assert.False(t, h.WasInterrupted())
	require.NoError(t, ctx.Err())

	h.Interrupt()
	h.Interrupt()

	assert.True(t, h.WasInterrupted())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Contains(t, out.String(), "Import interrupted")
	assert.Contains(t, out.String(), "Already stored records are kept")
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("interrupted")))
}

func TestInterruptHandler_NilWriter(t *testing.T) {
	h := NewInterruptHandler(nil, "Watch", "")
	assert.NotNil(t, h.writer)
}

func TestEntryLabel(t *testing.T) {
	alice := &model.GuildMember{ID: "m1", Name: "Alice"}
	tests := []struct {
		name     string
		entry    roster.Entry
		contains []string
	}{
		{
			name:     "matched",
			entry:    roster.Entry{SourceName: "Alice", Member: alice},
			contains: []string{"Alice"},
		},
		{
			name:     "matched by normalized name",
			entry:    roster.Entry{SourceName: "ALICE", Member: alice},
			contains: []string{"ALICE", "(Alice)"},
		},
		{
			name:     "derived",
			entry:    roster.Entry{SourceName: "Alice", Member: alice, Derived: true, Index: -1},
			contains: []string{DerivedIcon, "Alice"},
		},
		{
			name:     "unmatched",
			entry:    roster.Entry{SourceName: "Zed"},
			contains: []string{"Zed", ErrorIcon},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label := EntryLabel(tt.entry)
			for _, s := range tt.contains {
				assert.Contains(t, label, s)
			}
		})
	}
}

func TestRenderView(t *testing.T) {
	members := []model.GuildMember{{ID: "m1", Name: "Alice"}, {ID: "m2", Name: "Bob"}}
	rec := &model.KVMRecord{
		Date:            model.MustParseDate("2024-03-01"),
		NonParticipants: []model.KVMMemberData{{Name: "Bob"}, {Name: "Zed"}},
	}

	out := RenderView(roster.Build(members, rec))
	assert.Contains(t, out, "KVM 2024-03-01")
	assert.Contains(t, out, "Participants (1)")
	assert.Contains(t, out, "Non-participants (2)")
	assert.Contains(t, out, "2 eligible members")
	assert.Contains(t, out, "1 unmatched")
}

func TestRenderRecordsAndStatistics(t *testing.T) {
	rec := &model.GVGRecord{
		Date:         model.MustParseDate("2024-03-02"),
		Participants: []model.GVGMemberData{{Name: "Alice"}, {Name: "Bob"}},
	}
	out := RenderRecords([]model.Record{rec})
	assert.Contains(t, out, "2024-03-02")
	assert.Contains(t, out, "gvg")

	empty := RenderStatistics(ledger.Statistics{Module: model.ModuleAA, Average: decimal.Zero})
	assert.Contains(t, empty, "No aa records stored")

	stats := RenderStatistics(ledger.Statistics{
		Module:            model.ModuleGVG,
		Records:           2,
		TotalParticipants: 55,
		Average:           decimal.RequireFromString("27.5"),
		First:             model.MustParseDate("2024-03-01"),
		Last:              model.MustParseDate("2024-03-02"),
	})
	assert.Contains(t, stats, "27.50")
	assert.Contains(t, stats, "2024-03-01 to 2024-03-02")
}
