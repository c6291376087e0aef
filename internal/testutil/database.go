// Package testutil provides shared fixtures for guild-ledger tests: an
// isolated database, a roster builder and sample templates with matching
// recognized text.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Members []model.GuildMember
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.Seed(testutil.NewRosterBuilder(t).WithMember("Alice", ""))
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// Seed writes the builder's roster into the database.
func (db *TestDB) Seed(b *RosterBuilder) *TestDB {
	db.t.Helper()
	members, err := b.Build(context.Background(), db.Storage)
	if err != nil {
		db.t.Fatalf("failed to seed roster: %v", err)
	}
	db.Members = append(db.Members, members...)
	return db
}

// SaveTemplates stores templates, failing the test on error.
func (db *TestDB) SaveTemplates(templates ...*model.Template) {
	db.t.Helper()
	for _, tmpl := range templates {
		if err := db.Storage.SaveTemplate(context.Background(), tmpl); err != nil {
			db.t.Fatalf("failed to save template %q: %v", tmpl.Name, err)
		}
	}
}

// MustMember returns the seeded member with the given name or fails the test.
func (db *TestDB) MustMember(name string) model.GuildMember {
	db.t.Helper()
	for _, m := range db.Members {
		if m.Name == name {
			return m
		}
	}
	db.t.Fatalf("member %q not seeded", name)
	return model.GuildMember{}
}
