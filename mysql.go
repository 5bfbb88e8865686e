//go:build !sqlite

package main

// mysql support

import (
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const defaultDSN = "pub:pub@tcp(127.0.0.1:3306)/pub"

func newDialector(dsn string) gorm.Dialector {
	return mysql.New(mysql.Config{
		// times are stored in UTC so published timestamps compare equal across servers.
		DSN:                       mergeOptions(dsn, "charset=utf8mb4&parseTime=True&loc=UTC"),
		SkipInitializeWithVersion: false, // auto configure based on currently MySQL version
	})
}

// merge options appends the options to the DSN if they are not already present.
func mergeOptions(dsn, options string) string {
	var missing []string
	for _, opt := range strings.Split(options, "&") {
		key, _, _ := strings.Cut(opt, "=")
		if !strings.Contains(dsn, key+"=") {
			missing = append(missing, opt)
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + strings.Join(missing, "&")
	}
	return dsn + "?" + strings.Join(missing, "&")
}

func configureDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// SetMaxIdleConns sets the maximum number of connections in the idle connection pool.
	sqlDB.SetMaxIdleConns(10)

	// SetMaxOpenConns sets the maximum number of open connections to the database.
	sqlDB.SetMaxOpenConns(100)

	// SetConnMaxLifetime sets the maximum amount of time a connection may be reused.
	sqlDB.SetConnMaxLifetime(time.Hour)

	return nil
}
