// Package storetest opens migrated SQLite databases for repository and
// handler tests.
package storetest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"smartcampus/internal/store"
)

var seq atomic.Int64

// OpenSQLite returns a fresh, migrated in-memory database. The test is
// skipped when the sqlite3 driver is unusable (for example built without cgo).
func OpenSQLite(t testing.TB) *store.DB {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:campus_test_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := store.NewDB(ctx, store.DriverSQLite, dsn)
	if err != nil {
		t.Skipf("sqlite unavailable, skipping: %v", err)
	}
	if _, err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
