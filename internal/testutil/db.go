package testutil

import (
	"testing"

	"task-tracker/backend/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated in-memory sqlite database that lives for the
// duration of the test. A single connection keeps every query on the same
// in-memory database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:       database.DriverSQLite,
		DSN:          "file::memory:?_foreign_keys=on",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     logger.Silent,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return pool.DB
}
