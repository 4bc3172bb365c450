package testutil

import (
	"database/sql"
	"testing"
	"time"
)

// CreateUser inserts a user row and returns its id.
func CreateUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO users (username, created_at) VALUES (?, ?)", username, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create user %q: %v", username, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// CreateSeries inserts a local series row and returns its id.
func CreateSeries(t *testing.T, db *sql.DB, title string) int64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO series (title, created_at) VALUES (?, ?)", title, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create series %q: %v", title, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// CreateBook inserts a library book belonging to seriesID. An empty asin
// is stored as NULL.
func CreateBook(t *testing.T, db *sql.DB, seriesID int64, title, asin, sequence string) int64 {
	t.Helper()
	var asinVal any
	if asin != "" {
		asinVal = asin
	}
	res, err := db.Exec(
		"INSERT INTO books (series_id, title, asin, sequence, library_path, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		seriesID, title, asinVal, sequence, "/library/"+title, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("Failed to create book %q: %v", title, err)
	}
	id, _ := res.LastInsertId()
	return id
}
