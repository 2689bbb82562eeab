package pgstore

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/contentforge/taskengine/internal/platform/logger"
)

// newTestDB opens a fresh in-memory sqlite database and migrates the task
// engine's tables, adapted from the teacher's testutil.DB (Postgres +
// TEST_POSTGRES_DSN skip-if-unset) to an in-memory backend so this
// package's own tests need no external service, per SPEC_FULL.md §6.1.
func newTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open in-memory sqlite db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get sqlite connection pool: %v", err)
	}
	// Closing the last connection discards the shared-cache in-memory
	// database, so the next test starts from an empty one.
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := Migrate(db); err != nil {
		tb.Fatalf("failed to migrate task engine tables: %v", err)
	}
	return db
}

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return log
}
