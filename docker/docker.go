package docker

import (
	"database/sql"
	"fmt"
	"time"

	// pgx registered as a database/sql driver
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/ory/dockertest"
)

// StartPostgres runs a disposable postgres container for integration tests and waits
// until it accepts connections. Callers are responsible for purging the resource.
func StartPostgres() (*dockertest.Resource, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("error connecting to docker: %w", err)
	}

	resource, err := pool.Run("postgres", "14-alpine", []string{
		"POSTGRES_USER=postgres",
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=postgres",
	})
	if err != nil {
		return nil, fmt.Errorf("error starting postgres container: %w", err)
	}
	resource.Expire(300)

	pool.MaxWait = time.Minute
	if err := pool.Retry(func() error {
		db, err := sql.Open("pgx", fmt.Sprintf("user=postgres password=postgres dbname=postgres host=localhost port=%s", resource.GetPort("5432/tcp")))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		resource.Close()
		return nil, fmt.Errorf("error waiting for postgres container: %w", err)
	}

	return resource, nil
}
