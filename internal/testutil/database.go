package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration-test database. Expects a MySQL
// instance on localhost:3306 with a database named 'palantir_test';
// tests are skipped when it is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/palantir_test"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// SetupTestTables creates the tables the session store needs.
func SetupTestTables(t *testing.T, db *sql.DB) {
	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS Sessions (
		id INT NOT NULL PRIMARY KEY,
		accessToken TEXT NOT NULL,
		refreshToken TEXT NOT NULL,
		userData JSON,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

	if _, err := db.Exec(createSessionsTable); err != nil {
		t.Logf("failed to create table Sessions: %v", err)
	}
}

// CleanupTestDB empties the test tables and closes the connection.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	if _, err := db.Exec("DELETE FROM Sessions"); err != nil {
		t.Logf("failed to clean table Sessions: %v", err)
	}

	db.Close()
}
