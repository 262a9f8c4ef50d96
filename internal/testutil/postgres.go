//go:build integration || e2e

package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/notekeeper/apiserver/config"
	"github.com/notekeeper/apiserver/internal/db"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const postgresImage = "postgres:16-alpine"

// PostgresConfig is the connection config of the container started by
// StartPostgres, minus the mapped host and port.
var PostgresConfig = config.DatabaseConfig{
	User:     "notekeeper",
	Password: "password",
	DBName:   "notekeeper_test",
}

// StartPostgres runs a disposable PostgreSQL container and applies the
// schema migrations. Call terminate when done with it.
func StartPostgres(ctx context.Context) (cfg config.DatabaseConfig, terminate func(), err error) {
	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     PostgresConfig.User,
			"POSTGRES_PASSWORD": PostgresConfig.Password,
			"POSTGRES_DB":       PostgresConfig.DBName,
		},
		WaitingFor: wait.ForAll(
			// The entrypoint restarts the server once after initdb.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return config.DatabaseConfig{}, nil, fmt.Errorf("start postgres: %w", err)
	}
	terminate = func() {
		_ = container.Terminate(context.Background())
	}

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return config.DatabaseConfig{}, nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		terminate()
		return config.DatabaseConfig{}, nil, err
	}

	cfg = PostgresConfig
	cfg.Host = host
	cfg.Port = port.Int()

	if err := db.MigrateUp(db.DSN(cfg)); err != nil {
		terminate()
		return config.DatabaseConfig{}, nil, err
	}
	return cfg, terminate, nil
}

// ResetTables empties every domain table and restarts the id sequences.
func ResetTables(t *testing.T, conn *sql.DB) {
	t.Helper()
	const query = `TRUNCATE notes, tasks, categories, users, sessions RESTART IDENTITY CASCADE`
	if _, err := conn.ExecContext(context.Background(), query); err != nil {
		t.Fatalf("reset tables: %v", err)
	}
}
