package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DefaultDriver = "sqlite"
	DefaultDSN    = "file:states.db"
	DefaultTable  = "all_states_history"
)

// Config describes how to reach the database
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`

	// mysql connection settings, used when DSN is empty
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Dialect returns the SQL dialect for the configured driver
func (c Config) Dialect() Dialect {
	return Dialect(c.driver())
}

// TableName returns the configured table, or DefaultTable
func (c Config) TableName() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

func (c Config) driver() string {
	if c.Driver == "" {
		return DefaultDriver
	}
	return strings.ToLower(c.Driver)
}

// GetDSN returns the data source name for the configured driver
func (c Config) GetDSN() (string, error) {
	switch c.driver() {
	case "sqlite":
		if c.DSN == "" {
			return DefaultDSN, nil
		}
		return c.DSN, nil

	case "mysql":
		if c.DSN != "" {
			return c.DSN, nil
		}
		if c.Host == "" || c.Database == "" {
			return "", fmt.Errorf("mysql requires host and database when no dsn is given")
		}
		port := c.Port
		if port == 0 {
			port = 3306
		}
		cfg := mysql.NewConfig()
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
		cfg.DBName = c.Database
		return cfg.FormatDSN(), nil

	default:
		return "", fmt.Errorf("unsupported store driver: %q", c.Driver)
	}
}

// Open opens and pings the database described by cfg
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := cfg.GetDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.driver(), err)
	}

	// every connection to an in-memory sqlite database is a separate database
	if cfg.driver() == "sqlite" && isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.driver(), err)
	}

	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// TableExists reports whether table is present in the current database.
// Errors reaching the catalog are returned, never read as absence.
func TableExists(ctx context.Context, db *sql.DB, dialect Dialect, table string) (bool, error) {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`
	if dialect == DialectMySQL {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	}

	var count int
	if err := db.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", table, err)
	}
	return count > 0, nil
}
