// Package database opens the MySQL ledger store and applies its schema migrations.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationsTable is the schema version table of this service
const MigrationsTable = "learnmarket_schema_migrations"

// Connect opens a pooled connection to the database and pings it
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// MigrationSource returns the file source URL of the migrations directory.
// An explicit dir wins; otherwise migrations/ is looked up in the working directory and its parents.
func MigrationSource(dir string) string {
	if dir != "" {
		return "file://" + dir
	}
	for _, candidate := range []string{"migrations", "../migrations", "../../migrations"} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return "file://" + candidate
		}
	}
	return "file://migrations"
}

// Migrate applies every pending up migration from source.
// It returns the schema version after the run and whether anything was applied.
func Migrate(db *sql.DB, source string) (uint, bool, error) {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "mysql", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	applied := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return 0, false, fmt.Errorf("failed to run migrations: %w", err)
		}
		applied = false
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, applied, fmt.Errorf("failed to read schema version: %w", err)
	}

	return version, applied, nil
}
