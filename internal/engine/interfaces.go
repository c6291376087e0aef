package engine

import (
	"context"

	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
)

// Templates looks up the template an import runs with.
type Templates interface {
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
	GetDefaultTemplate(ctx context.Context, module model.Module) (*model.Template, error)
}

// Directory is the roster the engine reconciles against. Besides reading it,
// the engine renames members for derived-participant corrections and merges
// guild roster imports.
type Directory interface {
	roster.Roster
	MergeSnapshot(ctx context.Context, snap *model.RosterSnapshot) (*roster.MergeResult, error)
}
