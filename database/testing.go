package database

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/junaidrashid-git/eshop/config"
	"github.com/junaidrashid-git/eshop/logger"
	"gorm.io/gorm"
)

var testDBSeq int64

// OpenTest returns a migrated, private in-memory SQLite database that is
// closed when the test ends.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	url := fmt.Sprintf("%sfile:%s_%d?mode=memory&cache=shared&_foreign_keys=1",
		sqlitePrefix, name, atomic.AddInt64(&testDBSeq, 1))

	db, err := Open(config.DatabaseConfig{URL: url, MaxOpenConns: 1, MaxIdleConns: 1}, logger.Discard())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
