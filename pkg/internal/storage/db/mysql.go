//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/codespace/pkg/configs"
)

func init() {
	open := func(cfg *configs.DBConfig) gorm.Dialector {
		return mysql.New(mysql.Config{DSN: cfg.GetDSN(), DefaultStringSize: 512})
	}

	RegisterDialectorFactory(configs.MySQL, open)
	RegisterDialectorFactory(configs.MariaDB, open)
}
