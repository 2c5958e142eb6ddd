// Package testutil provides test database setup with seeded promotions.
package testutil

import (
	"context"
	"testing"

	"github.com/coupn-app/coupn/internal/service"
	"github.com/coupn-app/coupn/internal/storage"
	"github.com/coupn-app/coupn/internal/testutil/promotions"
)

// DefaultUser owns promotions seeded by SetupTestDB.
const DefaultUser = "test-user"

// TestDB represents a test database with its seeded promotions.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	UserID     string
	Promotions promotions.Set
}

// SetupTestDB creates a migrated in-memory database seeded with set for
// DefaultUser. It is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		promotions.NewBuilder(t).
//			WithFixture(promotions.FixtureDemo).
//			Build(),
//	)
func SetupTestDB(t *testing.T, set promotions.Set) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Promotions: set})
}

// SetupTestDBWithBuilder creates a test database seeded through a builder.
func SetupTestDBWithBuilder(t *testing.T, configure func(promotions.Builder) promotions.Builder) *TestDB {
	t.Helper()

	builder := promotions.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}
	return SetupTestDB(t, builder.Build())
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.PromotionStore) error
	UserID         string
	Promotions     promotions.Set
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	if opts.UserID == "" {
		opts.UserID = DefaultUser
	}

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	seeded := promotions.Set{}
	if len(opts.Promotions) > 0 {
		b := promotions.NewBuilder(t)
		for _, p := range opts.Promotions {
			b = b.WithPromotion(p)
		}
		seeded, err = b.Seed(ctx, store, opts.UserID)
		if err != nil {
			t.Fatalf("failed to seed promotions: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage:    store,
		Promotions: seeded,
		UserID:     opts.UserID,
		t:          t,
	}
}

// MustList returns the stored promotions for the database's user.
func (db *TestDB) MustList() promotions.Set {
	db.t.Helper()
	list, err := db.Storage.ListPromotions(context.Background(), db.UserID)
	if err != nil {
		db.t.Fatalf("failed to list promotions: %v", err)
	}
	return list
}
