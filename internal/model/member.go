package model

import "time"

// PartyAssignment places a member in a party of one party type.
type PartyAssignment struct {
	PartyID       string `json:"partyId" yaml:"partyId"`
	IsPartyLeader bool   `json:"isPartyLeader" yaml:"isPartyLeader"`
}

// GuildMember is one roster entry. CreatedAt is when the member joined the
// roster; members without it are eligible for every event date.
type GuildMember struct {
	CreatedAt *time.Time                 `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	Level     *int                       `json:"level,omitempty" yaml:"level,omitempty"`
	Sort      *int                       `json:"sort,omitempty" yaml:"sort,omitempty"`
	PartyDic  map[string]PartyAssignment `json:"partyDic,omitempty" yaml:"partyDic,omitempty"`
	ID        string                     `json:"id" yaml:"id"`
	Name      string                     `json:"name" yaml:"name" validate:"required"`
	Class     string                     `json:"class,omitempty" yaml:"class,omitempty"`
}

// EligibleOn reports whether the member was on the roster on the given day.
func (m GuildMember) EligibleOn(day Date) bool {
	if m.CreatedAt == nil || m.CreatedAt.IsZero() {
		return true
	}
	return !DayOf(*m.CreatedAt).After(day)
}

// RosterEntry is one member row recovered from a guild roster screenshot.
type RosterEntry struct {
	Level *int   `json:"level,omitempty" yaml:"level,omitempty"`
	Name  string `json:"name" yaml:"name"`
	Class string `json:"class,omitempty" yaml:"class,omitempty"`
}

// RosterSnapshot is the assembled output of a guild template. It is merged
// into the roster rather than stored as an event record.
type RosterSnapshot struct {
	Date    Date          `json:"date" yaml:"date"`
	Members []RosterEntry `json:"members" yaml:"members"`
}
