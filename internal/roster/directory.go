package roster

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

// Roster is the read side the reconciler needs, plus the one write it makes.
type Roster interface {
	ListMembers(ctx context.Context) ([]model.GuildMember, error)
	RenameMember(ctx context.Context, id, name string) error
}

// Source is the persistence behind a Directory.
type Source interface {
	Roster
	SaveMember(ctx context.Context, member *model.GuildMember) error
}

// Directory caches a roster source and publishes the member list to
// subscribers whenever it changes. Directories are independent of each
// other; nothing is shared at package level.
type Directory struct {
	src     Source
	subs    map[int]func([]model.GuildMember)
	members []model.GuildMember
	mu      sync.RWMutex
	nextSub int
	loaded  bool
}

// NewDirectory creates a directory over src. Members load on first use.
func NewDirectory(src Source) *Directory {
	return &Directory{
		src:  src,
		subs: make(map[int]func([]model.GuildMember)),
	}
}

// ListMembers returns a copy of the cached roster, loading it on first use.
func (d *Directory) ListMembers(ctx context.Context) ([]model.GuildMember, error) {
	d.mu.RLock()
	if d.loaded {
		out := cloneMembers(d.members)
		d.mu.RUnlock()
		return out, nil
	}
	d.mu.RUnlock()

	if err := d.Refresh(ctx); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneMembers(d.members), nil
}

// Refresh reloads the roster from the source and notifies subscribers when
// the member list changed.
func (d *Directory) Refresh(ctx context.Context) error {
	members, err := d.src.ListMembers(ctx)
	if err != nil {
		return common.MarkUnavailable(fmt.Errorf("failed to list roster: %w", err))
	}
	sortMembers(members)

	d.mu.Lock()
	changed := !d.loaded || !reflect.DeepEqual(d.members, members)
	d.members = members
	d.loaded = true
	subs := make([]func([]model.GuildMember), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	if changed {
		for _, fn := range subs {
			fn(cloneMembers(members))
		}
	}
	return nil
}

// Subscribe registers fn to receive the roster after each change. The
// returned function cancels the subscription.
func (d *Directory) Subscribe(fn func([]model.GuildMember)) func() {
	d.mu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

// RenameMember renames a member at the source and republishes the roster.
// The new name must not normalize to empty or to another member's name.
func (d *Directory) RenameMember(ctx context.Context, id, name string) error {
	if err := d.checkName(ctx, id, name); err != nil {
		return err
	}
	if err := d.src.RenameMember(ctx, id, name); err != nil {
		return common.MarkUnavailable(fmt.Errorf("failed to rename member %s: %w", id, err))
	}
	slog.Info("renamed roster member", "id", id, "name", name)
	return d.Refresh(ctx)
}

// AddMember saves a member. A missing ID is generated and a missing
// CreatedAt defaults to now. A member saved under an existing ID replaces
// it; a new ID whose name normalizes to an existing member's is rejected.
func (d *Directory) AddMember(ctx context.Context, member model.GuildMember) (*model.GuildMember, error) {
	if err := d.checkName(ctx, member.ID, member.Name); err != nil {
		return nil, err
	}
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.CreatedAt == nil {
		now := time.Now()
		member.CreatedAt = &now
	}
	if err := d.src.SaveMember(ctx, &member); err != nil {
		return nil, common.MarkUnavailable(fmt.Errorf("failed to save member %q: %w", member.Name, err))
	}
	if err := d.Refresh(ctx); err != nil {
		return nil, err
	}
	return &member, nil
}

// checkName rejects a name that is empty once normalized or that belongs to
// a member other than id.
func (d *Directory) checkName(ctx context.Context, id, name string) error {
	key := NormalizeName(name)
	if key == "" {
		return common.NewError(common.KindValidationFailed, "name",
			fmt.Sprintf("%q is not a usable member name", name), model.ErrEmptyName)
	}
	members, err := d.ListMembers(ctx)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.ID != id && NormalizeName(m.Name) == key {
			return common.NewError(common.KindValidationFailed, "name",
				fmt.Sprintf("%q is already on the roster as %q (%s)", name, m.Name, m.ID), common.ErrDuplicateEntry)
		}
	}
	return nil
}

// MergeResult reports what a roster snapshot merge changed.
type MergeResult struct {
	Added   []string
	Updated []string
}

// MergeSnapshot folds a recognized roster screen into the roster. Names are
// matched by normalized equality; unknown names become new members who
// joined on the snapshot date, known ones get their level and class updated.
func (d *Directory) MergeSnapshot(ctx context.Context, snap *model.RosterSnapshot) (*MergeResult, error) {
	existing, err := d.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*model.GuildMember, len(existing))
	for i := range existing {
		key := NormalizeName(existing[i].Name)
		if _, dup := index[key]; !dup {
			index[key] = &existing[i]
		}
	}

	joined := snap.Date.Time()
	res := &MergeResult{}
	for _, entry := range snap.Members {
		key := NormalizeName(entry.Name)
		if key == "" {
			continue
		}

		if m, ok := index[key]; ok {
			if !entryChanges(m, entry) {
				continue
			}
			if entry.Level != nil {
				lvl := *entry.Level
				m.Level = &lvl
			}
			if entry.Class != "" {
				m.Class = entry.Class
			}
			if err := d.src.SaveMember(ctx, m); err != nil {
				return res, common.MarkUnavailable(fmt.Errorf("failed to update member %q: %w", m.Name, err))
			}
			res.Updated = append(res.Updated, m.Name)
			continue
		}

		m := &model.GuildMember{
			ID:        uuid.NewString(),
			Name:      entry.Name,
			Class:     entry.Class,
			Level:     entry.Level,
			CreatedAt: &joined,
		}
		if err := d.src.SaveMember(ctx, m); err != nil {
			return res, common.MarkUnavailable(fmt.Errorf("failed to add member %q: %w", m.Name, err))
		}
		index[key] = m
		res.Added = append(res.Added, m.Name)
	}

	slog.Info("merged roster snapshot",
		"date", snap.Date.String(),
		"added", len(res.Added),
		"updated", len(res.Updated))

	if len(res.Added)+len(res.Updated) == 0 {
		return res, nil
	}
	return res, d.Refresh(ctx)
}

func entryChanges(m *model.GuildMember, e model.RosterEntry) bool {
	if e.Level != nil && (m.Level == nil || *m.Level != *e.Level) {
		return true
	}
	return e.Class != "" && e.Class != m.Class
}

// sortMembers orders by explicit sort key, then name, then ID.
func sortMembers(members []model.GuildMember) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		switch {
		case a.Sort != nil && b.Sort != nil && *a.Sort != *b.Sort:
			return *a.Sort < *b.Sort
		case a.Sort != nil && b.Sort == nil:
			return true
		case a.Sort == nil && b.Sort != nil:
			return false
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func cloneMembers(in []model.GuildMember) []model.GuildMember {
	if in == nil {
		return nil
	}
	out := make([]model.GuildMember, len(in))
	copy(out, in)
	return out
}
