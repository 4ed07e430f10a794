// Package testutil provides shared helpers for envgen's Postgres integration
// tests.
//
// A single PostgreSQL container is started on first use and shared by every
// test in the process. Each DB call gets its own database cloned from a
// migrated template, so tests can run in parallel without seeing each
// other's rows. Set DATABASE_URL to use an existing server instead.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pthm/envgen/pkg/migrator"
)

const templateName = "envgen_template"

var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error

	templateOnce sync.Once
	templateErr  error
)

// adminDSN returns the DSN of the shared server, starting the container on
// first use.
func adminDSN() (string, error) {
	singletonOnce.Do(func() {
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			singletonDSN = dsn
			return
		}

		ctx := context.Background()
		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}
		// Container is not stored - ryuk will handle cleanup automatically
		singletonDSN = dsn
	})
	return singletonDSN, singletonErr
}

// ensureTemplate creates the template database with the store migrated.
func ensureTemplate(admin string) error {
	templateOnce.Do(func() {
		if err := exec(admin, "DROP DATABASE IF EXISTS "+templateName); err != nil {
			templateErr = fmt.Errorf("failed to drop stale template: %w", err)
			return
		}
		if err := exec(admin, "CREATE DATABASE "+templateName); err != nil {
			templateErr = fmt.Errorf("failed to create template database: %w", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := sql.Open("pgx", ReplaceDBName(admin, templateName))
		if err != nil {
			templateErr = err
			return
		}
		defer func() { _ = db.Close() }()
		if err := migrator.Migrate(ctx, db); err != nil {
			templateErr = fmt.Errorf("failed to migrate template: %w", err)
			return
		}
	})
	return templateErr
}

// DB returns a connection to a fresh database with the envgen tables in
// place. The database is dropped when the test completes.
func DB(tb testing.TB) *sql.DB {
	tb.Helper()

	admin, err := adminDSN()
	require.NoError(tb, err, "failed to start PostgreSQL")
	require.NoError(tb, ensureTemplate(admin), "failed to create template database")

	name := uniqueDBName("test")
	require.NoError(tb, exec(admin, fmt.Sprintf("CREATE DATABASE %s WITH TEMPLATE %s", name, templateName)))
	return open(tb, admin, name)
}

// EmptyDB returns a connection to a fresh database with no tables.
func EmptyDB(tb testing.TB) *sql.DB {
	tb.Helper()

	admin, err := adminDSN()
	require.NoError(tb, err, "failed to start PostgreSQL")

	name := uniqueDBName("empty")
	require.NoError(tb, exec(admin, "CREATE DATABASE "+name))
	return open(tb, admin, name)
}

// DSN returns the connection string of a fresh migrated database, for tests
// that drive the CLI rather than a *sql.DB.
func DSN(tb testing.TB) string {
	tb.Helper()
	db := DB(tb)
	var name string
	require.NoError(tb, db.QueryRow("SELECT current_database()").Scan(&name))
	admin, _ := adminDSN()
	return ReplaceDBName(admin, name)
}

func open(tb testing.TB, admin, name string) *sql.DB {
	tb.Helper()
	db, err := sql.Open("pgx", ReplaceDBName(admin, name))
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, db.Ping(), "failed to ping test database")

	tb.Cleanup(func() {
		_ = db.Close()
		_ = exec(admin, fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", name))
	})
	return db
}

func exec(dsn, query string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = db.ExecContext(ctx, query)
	return err
}

func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// ReplaceDBName returns dsn pointing at database name.
func ReplaceDBName(dsn, name string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn
	}
	u.Path = "/" + strings.TrimPrefix(name, "/")
	return u.String()
}
