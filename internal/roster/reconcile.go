package roster

import (
	"context"
	"fmt"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

// Entry is one name of a reconciled view. Stored entries point back into the
// record through List and Index; derived entries come from the roster and
// have Index -1.
type Entry struct {
	Member     *model.GuildMember
	SourceName string
	List       model.ListName
	Index      int
	Derived    bool
}

// Matched reports whether the entry resolved to a roster member.
func (e Entry) Matched() bool { return e.Member != nil }

// View is a record reconciled against the roster as of the record's date.
type View struct {
	Date            model.Date
	Module          model.Module
	Participants    []Entry
	NonParticipants []Entry
	// Unmatched are stored entries with no roster member of the same
	// normalized name.
	Unmatched []Entry
	// Eligible is the number of members on the roster on Date.
	Eligible int
}

// Issues returns one informational UnmatchedName error per unmatched entry.
func (v *View) Issues() []error {
	errs := make([]error, 0, len(v.Unmatched))
	for _, e := range v.Unmatched {
		errs = append(errs, common.NewError(common.KindUnmatchedName, string(e.List),
			fmt.Sprintf("%q at %s[%d] has no roster match", e.SourceName, e.List, e.Index), nil))
	}
	return errs
}

// Entries returns the view's list by name.
func (v *View) Entries(list model.ListName) []Entry {
	switch list {
	case model.ListParticipants:
		return v.Participants
	case model.ListNonParticipants:
		return v.NonParticipants
	default:
		return nil
	}
}

// Eligible returns the members on the roster on day: those with no join
// time, or who joined on or before it.
func Eligible(members []model.GuildMember, day model.Date) []model.GuildMember {
	out := make([]model.GuildMember, 0, len(members))
	for _, m := range members {
		if m.EligibleOn(day) {
			out = append(out, m)
		}
	}
	return out
}

// Reconciler derives participant views from records and a roster. It keeps
// no state between calls.
type Reconciler struct {
	roster Roster
}

// NewReconciler creates a reconciler reading from roster.
func NewReconciler(roster Roster) *Reconciler {
	return &Reconciler{roster: roster}
}

// Reconcile matches the record's stored names against the roster and
// derives the list the module does not store.
func (r *Reconciler) Reconcile(ctx context.Context, rec model.Record) (*View, error) {
	members, err := r.roster.ListMembers(ctx)
	if err != nil {
		return nil, common.MarkUnavailable(fmt.Errorf("failed to load roster: %w", err))
	}
	return Build(members, rec), nil
}

// Build reconciles rec against an already loaded roster.
func Build(members []model.GuildMember, rec model.Record) *View {
	day := rec.Key()
	eligible := Eligible(members, day)

	index := make(map[string]*model.GuildMember, len(members))
	for i := range members {
		key := NormalizeName(members[i].Name)
		if _, dup := index[key]; !dup {
			index[key] = &members[i]
		}
	}

	v := &View{Date: day, Module: rec.Module(), Eligible: len(eligible)}

	stored := func(list model.ListName) []Entry {
		names := rec.Names(list)
		entries := make([]Entry, len(names))
		for i, name := range names {
			e := Entry{SourceName: name, List: list, Index: i, Member: index[NormalizeName(name)]}
			if e.Member == nil {
				v.Unmatched = append(v.Unmatched, e)
			}
			entries[i] = e
		}
		return entries
	}

	// derive returns eligible members whose name is not in exclude.
	derive := func(list model.ListName, exclude []string) []Entry {
		skip := make(map[string]bool, len(exclude))
		for _, n := range exclude {
			skip[NormalizeName(n)] = true
		}
		var entries []Entry
		for i := range eligible {
			m := &eligible[i]
			if skip[NormalizeName(m.Name)] {
				continue
			}
			entries = append(entries, Entry{SourceName: m.Name, List: list, Index: -1, Member: m, Derived: true})
		}
		return entries
	}

	switch rec.Module() {
	case model.ModuleKVM:
		v.NonParticipants = stored(model.ListNonParticipants)
		v.Participants = derive(model.ListParticipants, rec.Names(model.ListNonParticipants))
	case model.ModuleAA:
		v.Participants = stored(model.ListParticipants)
		v.NonParticipants = derive(model.ListNonParticipants, rec.Names(model.ListParticipants))
	default:
		v.Participants = stored(model.ListParticipants)
		v.NonParticipants = stored(model.ListNonParticipants)
	}
	return v
}

// Suggest returns the roster member closest to an unmatched name, when one
// is at least minScore similar. It is a hint for corrections and never
// used for matching.
func Suggest(members []model.GuildMember, name string, minScore float64) (*model.GuildMember, float64) {
	key := NormalizeName(name)
	var best *model.GuildMember
	bestScore := 0.0
	for i := range members {
		s := similarity(key, NormalizeName(members[i].Name))
		if s > bestScore {
			best, bestScore = &members[i], s
		}
	}
	if best == nil || bestScore < minScore {
		return nil, 0
	}
	return best, bestScore
}

// Overlap returns the names of a that share a normalized name with b.
func Overlap(a, b []string) []string {
	keys := make(map[string]bool, len(b))
	for _, n := range b {
		keys[NormalizeName(n)] = true
	}
	var out []string
	for _, n := range a {
		if keys[NormalizeName(n)] {
			out = append(out, n)
		}
	}
	return out
}
