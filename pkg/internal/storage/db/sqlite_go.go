//go:build !no_sqlite && !cgo

package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/codespace/pkg/configs"
)

// 纯 Go 驱动用 _pragma=name(value) 传参.
func sqliteDSN(cfg *configs.DBConfig) string {
	if cfg.IsMemory() {
		return configs.SQLiteMemory
	}

	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		cfg.SQLitePath(), cfg.BusyTimeoutMS)
}

func init() {
	RegisterDialectorFactory(configs.SQLite, func(cfg *configs.DBConfig) gorm.Dialector {
		return sqlite.Open(sqliteDSN(cfg))
	})
}
