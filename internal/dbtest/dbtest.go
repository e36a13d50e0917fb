// Package dbtest opens a migrated in-memory sqlite database for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shinyyama/marketplace-backend/internal/config"
	"github.com/shinyyama/marketplace-backend/internal/db"
	"gorm.io/gorm"
)

// Open returns a fresh database private to t. Each test gets its own named
// in-memory file so parallel packages never share state.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBPath:   fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name),
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		t.Fatalf("dbtest: connect: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("dbtest: migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
