package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	// file source driver for reading migrations from disk
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/realtoken-app/go-realtoken/service/logger"
)

// RunMigrations applies every pending migration in dir against the given database
func RunMigrations(client *sql.DB, dir string) error {
	driver, err := postgres.WithInstance(client, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}

	logger.For(nil).Infof("migrations in %s up to date", dir)
	return nil
}
