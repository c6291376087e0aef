package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/guild-ledger/internal/model"
)

// MemberSaver is the storage the builder seeds.
type MemberSaver interface {
	SaveMember(ctx context.Context, m *model.GuildMember) error
}

// RosterBuilder constructs roster members with a fluent API.
//
//	members, err := testutil.NewRosterBuilder(t).
//		WithMember("Alice", "").
//		WithMember("Erin", "2024-03-05").
//		Build(ctx, store)
type RosterBuilder struct {
	t       *testing.T
	members []model.GuildMember
}

// NewRosterBuilder creates an empty roster builder.
func NewRosterBuilder(t *testing.T) *RosterBuilder {
	t.Helper()
	return &RosterBuilder{t: t}
}

// WithMember adds a member. A non-empty joined date sets the member's
// roster entry day; an empty one makes the member eligible for every event.
func (b *RosterBuilder) WithMember(name, joined string) *RosterBuilder {
	b.t.Helper()
	m := model.GuildMember{
		ID:   fmt.Sprintf("member-%d", len(b.members)+1),
		Name: name,
	}
	if joined != "" {
		d, err := model.ParseDate(joined)
		if err != nil {
			b.t.Fatalf("invalid joined date for %q: %v", name, err)
		}
		at := d.Time()
		m.CreatedAt = &at
	}
	b.members = append(b.members, m)
	return b
}

// WithMembers adds members that are eligible for every event.
func (b *RosterBuilder) WithMembers(names ...string) *RosterBuilder {
	for _, n := range names {
		b.WithMember(n, "")
	}
	return b
}

// WithBasicRoster adds the members named by the sample fixtures.
func (b *RosterBuilder) WithBasicRoster() *RosterBuilder {
	return b.WithMembers("Alice", "Bob", "Carol", "Dave")
}

// Members returns the built members without storing them.
func (b *RosterBuilder) Members() []model.GuildMember {
	out := make([]model.GuildMember, len(b.members))
	copy(out, b.members)
	return out
}

// Build stores the members and returns them.
func (b *RosterBuilder) Build(ctx context.Context, store MemberSaver) ([]model.GuildMember, error) {
	members := b.Members()
	for i := range members {
		if err := store.SaveMember(ctx, &members[i]); err != nil {
			return nil, fmt.Errorf("failed to seed member %q: %w", members[i].Name, err)
		}
	}
	return members, nil
}

// EligibleAfter is a helper for members joining after a fixture date.
func EligibleAfter(d model.Date) *time.Time {
	at := d.Time().AddDate(0, 0, 1)
	return &at
}
