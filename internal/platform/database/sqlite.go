package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"sstaudit/internal/platform/config"
)

func New(cfg config.DatabaseConfig) (*sql.DB, error) {
	// Foreign keys are off by default in sqlite; the cascade deletes on
	// organization children depend on them.
	db, err := sql.Open("sqlite3", cfg.Path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
