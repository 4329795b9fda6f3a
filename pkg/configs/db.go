package configs

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type DBType string

const (
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgre"
	Pg         DBType = "pg"
	MySQL      DBType = "mysql"
	MariaDB    DBType = "mariadb"
	SQLite     DBType = "sqlite"
)

const (
	DefaultDatabaseHost        = "localhost"
	DefaultDatabasePort        = 5432
	DefaultDatabaseUser        = "postgres"
	DefaultDatabaseName        = "codespace"
	DefaultDatabaseSSLMode     = "disable"
	DefaultMaxOpenConns        = 0 // 0 不限制
	DefaultMaxIdleConns        = 5
	DefaultConnMaxLifetimeMins = 30
	DefaultSQLiteBusyTimeoutMS = 5000

	SQLiteMemory = ":memory:"
)

// DBConfig 工作区登记表所在的数据库.
type DBConfig struct {
	Type         DBType `mapstructure:"type"           rule:"oneof=postgresql postgre pg mysql mariadb sqlite"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"           rule:"min=1,max=65535"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"       rule:"required"`
	SSLMode      string `mapstructure:"sslmode"        rule:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns int    `mapstructure:"max_open_conns" rule:"min=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" rule:"min=0"`
	// 连接最长存活分钟数，0 不限制
	ConnMaxLifetimeMins int `mapstructure:"conn_max_lifetime_mins" rule:"min=0"`
	// SQLite 写锁等待时间
	BusyTimeoutMS int `mapstructure:"busy_timeout_ms" rule:"min=0"`
}

// GetDBType 数据库类型的展示名.
func (c *DBConfig) GetDBType() string {
	switch c.Type {
	case PostgreSQL, Postgres, Pg:
		return "PostgreSQL"
	case MySQL, MariaDB:
		return "MySQL"
	case SQLite:
		return "SQLite"
	default:
		return "Unknown"
	}
}

func (c *DBConfig) GetConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMins) * time.Minute
}

// IsMemory SQLite 内存库. 每条连接各自一份数据，连接池只能开一条.
func (c *DBConfig) IsMemory() bool {
	return c.Type == SQLite && c.Database == SQLiteMemory
}

// GetDSN 服务端数据库的连接串. SQLite 的 DSN 由驱动拼接，参数格式因驱动而异.
func (c *DBConfig) GetDSN() string {
	switch c.Type {
	case PostgreSQL, Postgres, Pg:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
	case MySQL, MariaDB:
		q := url.Values{"charset": {"utf8mb4"}, "parseTime": {"true"}, "loc": {"UTC"}}

		return fmt.Sprintf("%s:%s@tcp(%s)/%s?%s",
			c.User, c.Password, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database, q.Encode())
	case SQLite:
		return c.SQLitePath()
	default:
		return ""
	}
}

// SQLitePath 数据库文件，不带参数.
func (c *DBConfig) SQLitePath() string {
	if c.Database == SQLiteMemory {
		return SQLiteMemory
	}

	return "file:" + c.Database + ".db"
}

func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.type", SQLite)
	v.SetDefault("db.host", DefaultDatabaseHost)
	v.SetDefault("db.port", DefaultDatabasePort)
	v.SetDefault("db.user", DefaultDatabaseUser)
	v.SetDefault("db.password", "")
	v.SetDefault("db.database", DefaultDatabaseName)
	v.SetDefault("db.sslmode", DefaultDatabaseSSLMode)
	v.SetDefault("db.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("db.max_idle_conns", DefaultMaxIdleConns)
	v.SetDefault("db.conn_max_lifetime_mins", DefaultConnMaxLifetimeMins)
	v.SetDefault("db.busy_timeout_ms", DefaultSQLiteBusyTimeoutMS)
}
