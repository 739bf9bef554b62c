package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// schema is valid for both MySQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ingredients (
		owner_id   VARCHAR(64)   NOT NULL,
		name       VARCHAR(255)  NOT NULL,
		amount     DECIMAL(12,2) NOT NULL DEFAULT 0,
		unit       VARCHAR(64)   NOT NULL,
		version    INT           NOT NULL DEFAULT 1,
		updated_at DATETIME      NOT NULL,
		PRIMARY KEY (owner_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS ingredient_measurements (
		name                  VARCHAR(255)  NOT NULL PRIMARY KEY,
		reference_mass        DECIMAL(12,4) NOT NULL,
		reference_mass_unit   VARCHAR(64)   NOT NULL,
		reference_volume      DECIMAL(12,4) NOT NULL,
		reference_volume_unit VARCHAR(64)   NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cooked_recipes (
		id         VARCHAR(36) NOT NULL PRIMARY KEY,
		owner_id   VARCHAR(64) NOT NULL,
		recipe_id  VARCHAR(64) NOT NULL,
		created_at DATETIME    NOT NULL
	)`,
}

// Migrate creates missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// DriverName maps a dialect to the database/sql driver registered for it.
func DriverName(d Dialect) (string, error) {
	switch d {
	case DialectMySQL:
		return "mysql", nil
	case DialectSQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported database driver %q", d)
}
