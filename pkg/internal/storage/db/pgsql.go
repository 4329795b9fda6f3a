//go:build !no_postgres

package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yeisme/codespace/pkg/configs"
)

func init() {
	open := func(cfg *configs.DBConfig) gorm.Dialector {
		return postgres.New(postgres.Config{DSN: cfg.GetDSN()})
	}

	for _, t := range []configs.DBType{configs.PostgreSQL, configs.Postgres, configs.Pg} {
		RegisterDialectorFactory(t, open)
	}
}
