package roster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

type memSource struct {
	err     error
	members map[string]model.GuildMember
	mu      sync.Mutex
}

func newMemSource(members ...model.GuildMember) *memSource {
	s := &memSource{members: make(map[string]model.GuildMember)}
	for _, m := range members {
		s.members[m.ID] = m
	}
	return s
}

func (s *memSource) ListMembers(context.Context) ([]model.GuildMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.GuildMember, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out, nil
}

func (s *memSource) RenameMember(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return common.ErrNotFound
	}
	m.Name = name
	s.members[id] = m
	return nil
}

func (s *memSource) SaveMember(_ context.Context, m *model.GuildMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = *m
	return nil
}

func member(id, name, created string) model.GuildMember {
	m := model.GuildMember{ID: id, Name: name}
	if created != "" {
		t := model.MustParseDate(created).Time()
		m.CreatedAt = &t
	}
	return m
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.SourceName)
	}
	return out
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{a: "Alice", b: "alice", same: true},
		{a: "  Alice   Smith ", b: "alice smith", same: true},
		{a: "ＡＬＩＣＥ", b: "alice", same: true},
		{a: "Alice", b: "Alicia", same: false},
		{a: "Ålice", b: "Alice", same: false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.same, SameName(tt.a, tt.b))
		})
	}
	assert.Equal(t, "", NormalizeName(" \t "))
}

func TestBuild_DerivedParticipants(t *testing.T) {
	roster := []model.GuildMember{
		member("a", "A", "2024-01-01"),
		member("b", "B", "2024-06-01"),
	}
	rec := &model.KVMRecord{
		Date:            model.MustParseDate("2024-03-01"),
		NonParticipants: []model.KVMMemberData{{Name: "A"}},
	}

	v := Build(roster, rec)
	assert.Empty(t, v.Participants)
	assert.Equal(t, []string{"A"}, names(v.NonParticipants))
	assert.Empty(t, v.Unmatched)
	assert.Equal(t, 1, v.Eligible)

	rec.Date = model.MustParseDate("2024-06-01")
	v = Build(roster, rec)
	assert.Equal(t, []string{"B"}, names(v.Participants))
	assert.True(t, v.Participants[0].Derived)
	assert.Equal(t, -1, v.Participants[0].Index)
}

func TestBuild_Modules(t *testing.T) {
	roster := []model.GuildMember{
		member("a", "Alice", ""),
		member("b", "Bob", ""),
		member("c", "Carol", ""),
	}
	day := model.MustParseDate("2024-04-12")

	t.Run("aa derives non-participants", func(t *testing.T) {
		v := Build(roster, &model.AARecord{
			Date:         day,
			Participants: []model.AAMemberData{{Name: "alice"}, {Name: "Zed"}},
		})
		assert.Equal(t, []string{"alice", "Zed"}, names(v.Participants))
		assert.Equal(t, []string{"Bob", "Carol"}, names(v.NonParticipants))
		require.Len(t, v.Unmatched, 1)
		assert.Equal(t, "Zed", v.Unmatched[0].SourceName)
		assert.Equal(t, 1, v.Unmatched[0].Index)

		issues := v.Issues()
		require.Len(t, issues, 1)
		assert.ErrorIs(t, issues[0], common.ErrUnmatchedName)
	})

	t.Run("gvg uses both stored lists", func(t *testing.T) {
		v := Build(roster, &model.GVGRecord{
			Date:            day,
			Participants:    []model.GVGMemberData{{Name: "Alice"}},
			NonParticipants: []model.GVGMemberData{{Name: "BOB"}},
		})
		assert.Equal(t, []string{"Alice"}, names(v.Participants))
		assert.Equal(t, []string{"BOB"}, names(v.NonParticipants))
		require.True(t, v.NonParticipants[0].Matched())
		assert.Equal(t, "b", v.NonParticipants[0].Member.ID)
		assert.Empty(t, v.Unmatched)
	})
}

func TestReconciler_RosterUnavailable(t *testing.T) {
	src := newMemSource()
	src.err = errors.New("disk gone")

	_, err := NewReconciler(NewDirectory(src)).Reconcile(context.Background(), &model.KVMRecord{Date: model.MustParseDate("2024-03-01")})
	require.Error(t, err)
	assert.Equal(t, common.KindStoreUnavailable, common.KindOf(err))
	assert.Contains(t, err.Error(), "disk gone")
}

func TestDirectory_PublishOnChange(t *testing.T) {
	ctx := context.Background()
	src := newMemSource(member("a", "Alice", ""))
	dir := NewDirectory(src)

	var got [][]model.GuildMember
	cancel := dir.Subscribe(func(m []model.GuildMember) { got = append(got, m) })

	members, err := dir.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
	require.Len(t, got, 1, "first load publishes")

	require.NoError(t, dir.Refresh(ctx))
	assert.Len(t, got, 1, "unchanged roster is not republished")

	require.NoError(t, dir.RenameMember(ctx, "a", "Alicia"))
	require.Len(t, got, 2)
	assert.Equal(t, "Alicia", got[1][0].Name)

	cancel()
	_, err = dir.AddMember(ctx, model.GuildMember{Name: "Bob"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	members, err = dir.ListMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alicia", "Bob"}, []string{members[0].Name, members[1].Name})
	assert.NotEmpty(t, members[1].ID)
	assert.NotNil(t, members[1].CreatedAt)
}

func TestDirectory_RejectsUnusableNames(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		act  func(*Directory) error
		want error
		name string
	}{
		{
			name: "add duplicate",
			act: func(d *Directory) error {
				_, err := d.AddMember(ctx, model.GuildMember{Name: " ALICE "})
				return err
			},
			want: common.ErrDuplicateEntry,
		},
		{
			name: "add empty",
			act: func(d *Directory) error {
				_, err := d.AddMember(ctx, model.GuildMember{Name: "  "})
				return err
			},
			want: model.ErrEmptyName,
		},
		{
			name: "rename onto another member",
			act:  func(d *Directory) error { return d.RenameMember(ctx, "b", "alice") },
			want: common.ErrDuplicateEntry,
		},
		{
			name: "rename to empty",
			act:  func(d *Directory) error { return d.RenameMember(ctx, "b", "") },
			want: model.ErrEmptyName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newMemSource(member("a", "Alice", ""), member("b", "Bob", ""))
			dir := NewDirectory(src)

			err := tt.act(dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, common.ErrValidationFailed)
			assert.NotErrorIs(t, err, common.ErrStoreUnavailable)

			members, err := dir.ListMembers(ctx)
			require.NoError(t, err)
			assert.Len(t, members, 2)
			assert.Equal(t, "Bob", members[1].Name)
		})
	}

	t.Run("re-saving a member under its own ID", func(t *testing.T) {
		dir := NewDirectory(newMemSource(member("a", "Alice", "")))
		require.NoError(t, dir.RenameMember(ctx, "a", "alice"))
		_, err := dir.AddMember(ctx, model.GuildMember{ID: "a", Name: "Alice", Class: "Knight"})
		require.NoError(t, err)
	})
}

func TestDirectory_Independent(t *testing.T) {
	ctx := context.Background()
	one := NewDirectory(newMemSource(member("a", "Alice", "")))
	two := NewDirectory(newMemSource(member("z", "Zed", "")))

	calls := 0
	one.Subscribe(func([]model.GuildMember) { calls++ })

	m, err := two.ListMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Zed", m[0].Name)
	assert.Zero(t, calls)
}

func TestDirectory_MergeSnapshot(t *testing.T) {
	ctx := context.Background()
	lvl := 10
	src := newMemSource(model.GuildMember{ID: "a", Name: "Alice", Level: &lvl, Class: "Knight"})
	dir := NewDirectory(src)

	sixty, twelve := 60, 12
	res, err := dir.MergeSnapshot(ctx, &model.RosterSnapshot{
		Date: model.MustParseDate("2024-06-01"),
		Members: []model.RosterEntry{
			{Name: "ALICE", Level: &sixty},
			{Name: "Erin", Level: &twelve, Class: "Archer"},
			{Name: "  "},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Erin"}, res.Added)
	assert.Equal(t, []string{"Alice"}, res.Updated)

	members, err := dir.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, 60, *members[0].Level)
	assert.Equal(t, "Knight", members[0].Class)
	assert.Equal(t, "Erin", members[1].Name)
	require.NotNil(t, members[1].CreatedAt)
	assert.True(t, members[1].EligibleOn(model.MustParseDate("2024-06-01")))
	assert.False(t, members[1].EligibleOn(model.MustParseDate("2024-05-31")))

	res, err = dir.MergeSnapshot(ctx, &model.RosterSnapshot{
		Date:    model.MustParseDate("2024-06-02"),
		Members: []model.RosterEntry{{Name: "Erin", Level: &twelve}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Updated)
}

func TestSuggest(t *testing.T) {
	roster := []model.GuildMember{member("a", "Alice", ""), member("b", "Bartholomew", "")}

	m, score := Suggest(roster, "Alcie", 0.5)
	require.NotNil(t, m)
	assert.Equal(t, "a", m.ID)
	assert.InDelta(t, 0.6, score, 0.001)

	m, _ = Suggest(roster, "Xy", 0.5)
	assert.Nil(t, m)
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, []string{"bob"}, Overlap([]string{"Alice", "bob"}, []string{"BOB ", "Carol"}))
	assert.Empty(t, Overlap([]string{"Alice"}, nil))
}

func TestEligible_SameDayDifferentZone(t *testing.T) {
	joined := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	m := model.GuildMember{Name: "Late", CreatedAt: &joined}
	assert.Len(t, Eligible([]model.GuildMember{m}, model.MustParseDate("2024-03-01")), 1)
}
