// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"technexus/internal/database"
	"technexus/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "technexus")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "technexus")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testUser creates a throwaway user with a profile and removes it (and
// everything it owns) when the test ends.
func testUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()
	ctx := context.Background()
	email := fmt.Sprintf("%s-%d@test.technexus.local", username, time.Now().UnixNano())

	u, err := NewUserStore(db).Create(ctx, email, "", models.UserMetadata{Username: username})
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	if username != "" {
		if _, err := NewProfileStore(db).CreateProfile(ctx, models.Profile{ID: u.ID, Username: username}); err != nil {
			t.Fatalf("create test profile: %v", err)
		}
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	})
	return u
}
