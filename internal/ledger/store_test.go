package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/ledger"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/testutil"
)

func newStore(t *testing.T, module model.Module) *ledger.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	s, err := ledger.New(db.Storage, module)
	require.NoError(t, err)
	return s
}

func kvm(date string, total int, names ...string) *model.KVMRecord {
	rec := &model.KVMRecord{Date: model.MustParseDate(date), EventType: "KVM", TotalParticipants: total}
	for i, n := range names {
		rec.NonParticipants = append(rec.NonParticipants, model.KVMMemberData{Name: n, Rank: i + 1})
	}
	return rec
}

func TestNew_RejectsGuildModule(t *testing.T) {
	_, err := ledger.New(testutil.SetupTestDB(t).Storage, model.ModuleGuild)
	assert.ErrorIs(t, err, model.ErrUnknownModule)
}

func TestStore_IdempotentReimport(t *testing.T) {
	s := newStore(t, model.ModuleKVM)
	ctx := context.Background()
	rec := kvm("2024-03-01", 30, "Bob", "Carol")

	require.NoError(t, s.Upsert(ctx, rec))
	require.NoError(t, s.Upsert(ctx, kvm("2024-03-01", 30, "Bob", "Carol")))

	dates, err := s.Dates(ctx)
	require.NoError(t, err)
	assert.Len(t, dates, 1)

	got, err := s.Get(ctx, rec.Date)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestStore_GVGDisjointness(t *testing.T) {
	s := newStore(t, model.ModuleGVG)
	ctx := context.Background()

	rec := &model.GVGRecord{
		Date:            model.MustParseDate("2024-04-12"),
		Participants:    []model.GVGMemberData{{Name: "Alice"}, {Name: "Bob"}},
		NonParticipants: []model.GVGMemberData{{Name: " ALICE "}},
	}
	err := s.Upsert(ctx, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidationFailed)
	assert.Contains(t, err.Error(), "Alice")

	_, err = s.Get(ctx, rec.Date)
	assert.ErrorIs(t, err, common.ErrNotFound)

	rec.NonParticipants[0].Name = "Carol"
	require.NoError(t, s.Upsert(ctx, rec))
}

func TestStore_Check(t *testing.T) {
	s := newStore(t, model.ModuleKVM)

	tests := []struct {
		rec  model.Record
		name string
	}{
		{name: "nil", rec: nil},
		{name: "wrong module", rec: &model.AARecord{Date: model.MustParseDate("2024-05-20")}},
		{name: "missing date", rec: &model.KVMRecord{}},
		{name: "empty name", rec: kvm("2024-03-01", 0, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Check(tt.rec)
			assert.Equal(t, common.KindValidationFailed, common.KindOf(err))
		})
	}
}

func TestStore_BulkImport(t *testing.T) {
	s := newStore(t, model.ModuleKVM)
	ctx := context.Background()

	records := []model.Record{
		kvm("2024-03-01", 30, "Bob"),
		kvm("2024-03-08", 30, ""),
		kvm("2024-03-15", 28, "Carol"),
		kvm("2024-03-01", 31, "Dave"),
	}
	outcomes, err := s.BulkImport(ctx, records)
	require.Error(t, err)
	require.Len(t, outcomes, 4)

	assert.True(t, outcomes[0].OK())
	assert.False(t, outcomes[1].OK())
	assert.ErrorIs(t, outcomes[1].Err, common.ErrValidationFailed)
	assert.Equal(t, "2024-03-08", outcomes[1].Date.String())
	assert.True(t, outcomes[2].OK())
	assert.True(t, outcomes[3].OK())

	got, err := s.Get(ctx, model.MustParseDate("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Dave"}, got.Names(model.ListNonParticipants), "later records win in caller order")

	dates, err := s.Dates(ctx)
	require.NoError(t, err)
	assert.Len(t, dates, 2)
}

func TestStore_BulkImportCanceled(t *testing.T) {
	s := newStore(t, model.ModuleKVM)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := s.BulkImport(ctx, []model.Record{kvm("2024-03-01", 1, "Bob")})
	require.Error(t, err)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
}

func TestStore_StatisticsAfterDelete(t *testing.T) {
	s := newStore(t, model.ModuleKVM)
	ctx := context.Background()

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Records)
	assert.True(t, stats.First.IsZero())
	assert.Equal(t, "0", stats.Average.String())

	for _, rec := range []model.Record{
		kvm("2024-03-01", 30),
		kvm("2024-03-08", 25),
		kvm("2024-03-15", 26),
	} {
		require.NoError(t, s.Upsert(ctx, rec))
	}

	stats, err = s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 81, stats.TotalParticipants)
	assert.Equal(t, "27", stats.Average.String())
	assert.Equal(t, "2024-03-01", stats.First.String())
	assert.Equal(t, "2024-03-15", stats.Last.String())

	require.NoError(t, s.Delete(ctx, model.MustParseDate("2024-03-15")))

	stats, err = s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 55, stats.TotalParticipants)
	assert.Equal(t, "27.5", stats.Average.String())
	assert.Equal(t, "2024-03-08", stats.Last.String())
}

type memberList []model.GuildMember

func (m memberList) ListMembers(context.Context) ([]model.GuildMember, error) { return m, nil }

func (m memberList) RenameMember(context.Context, string, string) error { return nil }

type unreachableRoster struct{ memberList }

func (unreachableRoster) ListMembers(context.Context) ([]model.GuildMember, error) {
	return nil, errors.New("connection refused")
}

func TestStore_StatisticsDerivesMissingKVMTotal(t *testing.T) {
	ctx := context.Background()
	joined := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)
	members := memberList{
		{ID: "m1", Name: "Alice"},
		{ID: "m2", Name: "Bob"},
		{ID: "m3", Name: "Carol"},
		{ID: "m4", Name: "Dave", CreatedAt: &joined},
	}

	s := newStore(t, model.ModuleKVM)
	for _, rec := range []model.Record{
		kvm("2024-03-01", 0, "Bob"),
		kvm("2024-03-08", 0),
		kvm("2024-03-15", 20, "Carol"),
	} {
		require.NoError(t, s.Upsert(ctx, rec))
	}

	t.Run("without roster", func(t *testing.T) {
		stats, err := s.Statistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 20, stats.TotalParticipants)
	})

	t.Run("with roster", func(t *testing.T) {
		stats, err := s.WithRoster(members).Statistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Records)
		assert.Equal(t, 2+4+20, stats.TotalParticipants)
		assert.Equal(t, "8.67", stats.Average.String())
	})

	t.Run("roster failure", func(t *testing.T) {
		_, err := s.WithRoster(unreachableRoster{}).Statistics(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	})
}

type failingPersistence struct {
	ledger.Persistence
	err error
}

func (f failingPersistence) Upsert(context.Context, model.Record) error { return f.err }

func (f failingPersistence) ListRecords(context.Context, model.Module) ([]model.Record, error) {
	return nil, f.err
}

func TestStore_StoreUnavailable(t *testing.T) {
	cause := errors.New("disk on fire")
	s, err := ledger.New(failingPersistence{err: cause}, model.ModuleKVM)
	require.NoError(t, err)
	ctx := context.Background()

	err = s.Upsert(ctx, kvm("2024-03-01", 1))
	assert.True(t, cerrors.Is(err, common.ErrStoreUnavailable))
	assert.Equal(t, common.KindStoreUnavailable, common.KindOf(err))
	assert.Equal(t, cause.Error(), err.Error())

	_, err = s.Statistics(ctx)
	assert.Equal(t, common.KindStoreUnavailable, common.KindOf(err))
}
