package model

import (
	"errors"
	"fmt"
	"strings"
)

// ListName names a member list inside an event record.
type ListName string

// Member lists carried by records and roster snapshots.
const (
	ListParticipants    ListName = "participants"
	ListNonParticipants ListName = "non_participants"
	ListMembers         ListName = "members"
)

// Record errors.
var (
	ErrMissingDate   = errors.New("record has no date")
	ErrEmptyName     = errors.New("member entry has an empty name")
	ErrUnknownList   = errors.New("record has no such list")
	ErrIndexOutRange = errors.New("list index out of range")
)

// Record is a date-keyed event record of one module.
type Record interface {
	// Module is the event module the record belongs to.
	Module() Module
	// Key is the calendar day the record is stored under.
	Key() Date
	// Lists are the member lists the record stores explicitly.
	Lists() []ListName
	// Names returns the source names of one stored list, in order.
	Names(list ListName) []string
	// Rename replaces the name of one entry of a stored list.
	Rename(list ListName, index int, name string) error
	// ParticipantCount is the participant total used by statistics.
	ParticipantCount() int
	// Validate checks the record's own structure.
	Validate() error
}

// KVMMemberData is one ranked row of a KVM result screen.
type KVMMemberData struct {
	Name     string `json:"name" yaml:"name"`
	Position string `json:"position" yaml:"position"`
	Rank     int    `json:"rank" yaml:"rank"`
	Points   int    `json:"points" yaml:"points"`
}

// KVMRecord stores only non-participants; participants are derived from the
// roster at read time.
type KVMRecord struct {
	Date              Date            `json:"date" yaml:"date"`
	EventType         string          `json:"event_type" yaml:"event_type"`
	NonParticipants   []KVMMemberData `json:"non_participants" yaml:"non_participants"`
	TotalParticipants int             `json:"total_participants" yaml:"total_participants"`
}

// Module implements Record.
func (r *KVMRecord) Module() Module { return ModuleKVM }

// Key implements Record.
func (r *KVMRecord) Key() Date { return r.Date }

// Lists implements Record.
func (r *KVMRecord) Lists() []ListName { return []ListName{ListNonParticipants} }

// Names implements Record.
func (r *KVMRecord) Names(list ListName) []string {
	if list != ListNonParticipants {
		return nil
	}
	names := make([]string, len(r.NonParticipants))
	for i, m := range r.NonParticipants {
		names[i] = m.Name
	}
	return names
}

// Rename implements Record.
func (r *KVMRecord) Rename(list ListName, index int, name string) error {
	if list != ListNonParticipants {
		return fmt.Errorf("%w: kvm %s", ErrUnknownList, list)
	}
	if index < 0 || index >= len(r.NonParticipants) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutRange, index, len(r.NonParticipants))
	}
	r.NonParticipants[index].Name = name
	return nil
}

// ParticipantCount implements Record.
func (r *KVMRecord) ParticipantCount() int { return r.TotalParticipants }

// Validate implements Record.
func (r *KVMRecord) Validate() error {
	if r.Date.IsZero() {
		return ErrMissingDate
	}
	return validateNames(ListNonParticipants, r.Names(ListNonParticipants))
}

// GVGMemberData is one row of a GVG battle result.
type GVGMemberData struct {
	Name         string `json:"name" yaml:"name"`
	Class        string `json:"class,omitempty" yaml:"class,omitempty"`
	Kills        int    `json:"kills" yaml:"kills"`
	Contribution int    `json:"contribution" yaml:"contribution"`
}

// GVGRecord stores both lists; they must not share a normalized name.
type GVGRecord struct {
	Date            Date            `json:"date" yaml:"date"`
	EventType       string          `json:"event_type" yaml:"event_type"`
	Participants    []GVGMemberData `json:"participants" yaml:"participants"`
	NonParticipants []GVGMemberData `json:"non_participants" yaml:"non_participants"`
}

// Module implements Record.
func (r *GVGRecord) Module() Module { return ModuleGVG }

// Key implements Record.
func (r *GVGRecord) Key() Date { return r.Date }

// Lists implements Record.
func (r *GVGRecord) Lists() []ListName {
	return []ListName{ListParticipants, ListNonParticipants}
}

func (r *GVGRecord) list(list ListName) ([]GVGMemberData, bool) {
	switch list {
	case ListParticipants:
		return r.Participants, true
	case ListNonParticipants:
		return r.NonParticipants, true
	default:
		return nil, false
	}
}

// Names implements Record.
func (r *GVGRecord) Names(list ListName) []string {
	rows, _ := r.list(list)
	names := make([]string, len(rows))
	for i, m := range rows {
		names[i] = m.Name
	}
	return names
}

// Rename implements Record.
func (r *GVGRecord) Rename(list ListName, index int, name string) error {
	rows, ok := r.list(list)
	if !ok {
		return fmt.Errorf("%w: gvg %s", ErrUnknownList, list)
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutRange, index, len(rows))
	}
	rows[index].Name = name
	return nil
}

// ParticipantCount implements Record.
func (r *GVGRecord) ParticipantCount() int { return len(r.Participants) }

// Validate implements Record.
func (r *GVGRecord) Validate() error {
	if r.Date.IsZero() {
		return ErrMissingDate
	}
	if err := validateNames(ListParticipants, r.Names(ListParticipants)); err != nil {
		return err
	}
	return validateNames(ListNonParticipants, r.Names(ListNonParticipants))
}

// AAMemberData is one ranked row of an AA activity screen.
type AAMemberData struct {
	Name  string `json:"name" yaml:"name"`
	Rank  int    `json:"rank" yaml:"rank"`
	Score int    `json:"score" yaml:"score"`
}

// AARecord stores only participants; non-participants are derived from the
// roster at read time.
type AARecord struct {
	Date              Date           `json:"date" yaml:"date"`
	Activity          string         `json:"activity" yaml:"activity"`
	Participants      []AAMemberData `json:"participants" yaml:"participants"`
	TotalParticipants int            `json:"total_participants" yaml:"total_participants"`
}

// Module implements Record.
func (r *AARecord) Module() Module { return ModuleAA }

// Key implements Record.
func (r *AARecord) Key() Date { return r.Date }

// Lists implements Record.
func (r *AARecord) Lists() []ListName { return []ListName{ListParticipants} }

// Names implements Record.
func (r *AARecord) Names(list ListName) []string {
	if list != ListParticipants {
		return nil
	}
	names := make([]string, len(r.Participants))
	for i, m := range r.Participants {
		names[i] = m.Name
	}
	return names
}

// Rename implements Record.
func (r *AARecord) Rename(list ListName, index int, name string) error {
	if list != ListParticipants {
		return fmt.Errorf("%w: aa %s", ErrUnknownList, list)
	}
	if index < 0 || index >= len(r.Participants) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutRange, index, len(r.Participants))
	}
	r.Participants[index].Name = name
	return nil
}

// ParticipantCount implements Record. An unset total falls back to the
// stored list length.
func (r *AARecord) ParticipantCount() int {
	if r.TotalParticipants > 0 {
		return r.TotalParticipants
	}
	return len(r.Participants)
}

// Validate implements Record.
func (r *AARecord) Validate() error {
	if r.Date.IsZero() {
		return ErrMissingDate
	}
	return validateNames(ListParticipants, r.Names(ListParticipants))
}

func validateNames(list ListName, names []string) error {
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: %s[%d]", ErrEmptyName, list, i)
		}
	}
	return nil
}

// NewRecord returns an empty record of the given event module.
func NewRecord(module Module) (Record, error) {
	switch module {
	case ModuleKVM:
		return &KVMRecord{}, nil
	case ModuleGVG:
		return &GVGRecord{}, nil
	case ModuleAA:
		return &AARecord{}, nil
	default:
		return nil, fmt.Errorf("%w: %q has no event record", ErrUnknownModule, module)
	}
}
