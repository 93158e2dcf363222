// Package database provides functions to migrate the database.
package database

import (
	"github.com/golang-migrate/migrate/v4"
)

// MigrateUp applies all pending migrations.
func MigrateUp(connString string) error {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
