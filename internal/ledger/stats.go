package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
)

// Statistics aggregates every stored record of a module. First and Last
// are zero when the store is empty.
type Statistics struct {
	First             model.Date      `json:"first" yaml:"first"`
	Last              model.Date      `json:"last" yaml:"last"`
	Average           decimal.Decimal `json:"average" yaml:"average"`
	Module            model.Module    `json:"module" yaml:"module"`
	Records           int             `json:"records" yaml:"records"`
	TotalParticipants int             `json:"total_participants" yaml:"total_participants"`
}

// Statistics reads the store and aggregates it. Nothing is cached. A KVM
// record without a total counts the participants derived from the roster
// when the store has one.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{Module: s.module, Average: decimal.Zero}

	records, err := s.List(ctx)
	if err != nil {
		return stats, err
	}

	var members []model.GuildMember
	loaded := false
	for _, rec := range records {
		stats.Records++

		n := rec.ParticipantCount()
		if n == 0 && rec.Module() == model.ModuleKVM && s.roster != nil {
			if !loaded {
				if members, err = s.roster.ListMembers(ctx); err != nil {
					return stats, common.MarkUnavailable(fmt.Errorf("failed to load roster: %w", err))
				}
				loaded = true
			}
			n = len(roster.Build(members, rec).Participants)
		}
		stats.TotalParticipants += n

		d := rec.Key()
		if stats.First.IsZero() || d.Before(stats.First) {
			stats.First = d
		}
		if stats.Last.IsZero() || d.After(stats.Last) {
			stats.Last = d
		}
	}

	if stats.Records > 0 {
		stats.Average = decimal.NewFromInt(int64(stats.TotalParticipants)).
			DivRound(decimal.NewFromInt(int64(stats.Records)), 2)
	}
	return stats, nil
}
