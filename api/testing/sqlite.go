package apitesting

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/polarlink/cabinet/api/config"
	"github.com/polarlink/cabinet/billing"
	"github.com/stretchr/testify/require"
)

// SetupTestBilling opens a fresh in-memory billing database with the full
// migrated schema and installs it as the global handle for the test's
// lifetime. Each call gets an isolated database.
func SetupTestBilling(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)

	// The in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, billing.Migrate(ctx, slog.Default(), db))

	prev := config.DB
	config.DB = db
	t.Cleanup(func() {
		config.DB = prev
		_ = db.Close()
	})

	return db
}
