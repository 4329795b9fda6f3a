//go:build !no_sqlite && cgo

package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/codespace/pkg/configs"
)

// mattn/go-sqlite3 的参数写作 _busy_timeout=...
func sqliteDSN(cfg *configs.DBConfig) string {
	if cfg.IsMemory() {
		return configs.SQLiteMemory
	}

	return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", cfg.SQLitePath(), cfg.BusyTimeoutMS)
}

func init() {
	RegisterDialectorFactory(configs.SQLite, func(cfg *configs.DBConfig) gorm.Dialector {
		return sqlite.Open(sqliteDSN(cfg))
	})
}
