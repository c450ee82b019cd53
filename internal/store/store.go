// Package store persists items and applies bulk label rewrites.
package store

import (
	"fmt"
	"net/url"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ppiankov/categora/internal/model"
)

// Open connects to the database named by dsn and migrates the schema.
// postgres:// and postgresql:// URLs select Postgres, mysql:// selects MySQL
// (a go-sql-driver DSN or a user:pass@host/db URL), anything else is SQLite.
// SQLAlchemy URLs such as sqlite:///tasks.db and postgresql+psycopg2://...
// are accepted as well.
func Open(dsn string) (*gorm.DB, error) {
	dialector := dialectorFor(dsn)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&model.Item{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	scheme, rest, hasScheme := strings.Cut(dsn, "://")
	if !hasScheme {
		scheme, rest = "sqlite", dsn
	}
	// "postgresql+psycopg2" style driver suffixes name a client library, not a database
	if i := strings.IndexByte(scheme, '+'); i >= 0 {
		scheme = scheme[:i]
	}

	switch scheme {
	case "postgres", "postgresql":
		return postgres.Open(scheme + "://" + rest)
	case "mysql":
		return mysql.Open(mysqlDSN(rest))
	default:
		path := rest
		if hasScheme {
			// sqlite:///rel.db is relative, sqlite:////abs.db is absolute
			path = strings.TrimPrefix(rest, "/")
		}
		if path == "" {
			path = "categora.db"
		}
		return sqlite.Open(path)
	}
}

// mysqlDSN accepts either a go-sql-driver DSN or URL style
// user:pass@host:port/db and returns the former.
func mysqlDSN(rest string) string {
	if strings.Contains(rest, "@tcp(") || strings.Contains(rest, "@unix(") {
		return rest
	}
	u, err := url.Parse("mysql://" + rest)
	if err != nil || u.Host == "" {
		return rest
	}
	dsn := ""
	if u.User != nil {
		dsn = u.User.String() + "@"
	}
	dsn += "tcp(" + u.Host + ")" + u.Path
	if u.RawQuery != "" {
		dsn += "?" + u.RawQuery
	}
	return dsn
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
