package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/guild-ledger/internal/model"
)

func TestRosterBuilder_Seed(t *testing.T) {
	db := SetupTestDB(t).Seed(NewRosterBuilder(t).
		WithBasicRoster().
		WithMember("Erin", "2024-03-05"))

	members, err := db.Storage.ListMembers(context.Background())
	require.NoError(t, err)
	assert.Len(t, members, 5)

	erin := db.MustMember("Erin")
	require.NotNil(t, erin.CreatedAt)
	assert.False(t, erin.EligibleOn(model.MustParseDate("2024-03-01")))
	assert.True(t, erin.EligibleOn(model.MustParseDate("2024-03-05")))
}

func TestFixtureTemplatesValidate(t *testing.T) {
	for _, tmpl := range []*model.Template{KVMTemplate(), GVGTemplate(), AATemplate(), GuildTemplate()} {
		t.Run(string(tmpl.Module), func(t *testing.T) {
			require.NoError(t, tmpl.Validate())
		})
	}

	db := SetupTestDB(t)
	db.SaveTemplates(KVMTemplate(), GVGTemplate())
	def, err := db.Storage.GetDefaultTemplate(context.Background(), model.ModuleKVM)
	require.NoError(t, err)
	assert.Equal(t, "tmpl-kvm", def.ID)
}

func TestEligibleAfter(t *testing.T) {
	d := model.MustParseDate("2024-03-01")
	m := model.GuildMember{Name: "Late", CreatedAt: EligibleAfter(d)}
	assert.False(t, m.EligibleOn(d))
}
