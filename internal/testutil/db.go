package testutil

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vrsandeep/serieswatch/internal/db"
)

// SetupTestDB creates an in-memory SQLite database and applies all migrations.
// It returns the database connection, ready for use in tests.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.InitDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// Every connection to ":memory:" is its own database, so pin the pool
	// to a single connection.
	database.SetMaxOpenConns(1)

	// Attach a cleanup function to automatically close the DB when the test completes.
	t.Cleanup(func() {
		database.Close()
	})

	if err := db.RunMigrations(database, zerolog.Nop()); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return database
}
