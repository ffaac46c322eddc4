package config

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/polarlink/cabinet/billing"
)

// DB is the global billing database handle
var DB *sql.DB

// Config holds the billing database configuration
type DBConfig struct {
	Path string
}

// cfg holds the parsed configuration
var cfg DBConfig

// Path returns the configured database path
func Path() string {
	return cfg.Path
}

// Load initializes configuration from environment variables, opens the
// billing database and applies pending migrations.
func Load(ctx context.Context, log *slog.Logger) error {
	cfg.Path = os.Getenv("CABINET_DB_PATH")
	if cfg.Path == "" {
		cfg.Path = "cabinet.db"
	}

	log.Info("opening billing database", "path", cfg.Path)

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("failed to open billing database: %w", err)
	}

	// SQLite serializes writes; a single connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping billing database: %w", err)
	}

	if err := billing.Migrate(ctx, log, db); err != nil {
		return fmt.Errorf("failed to migrate billing database: %w", err)
	}

	DB = db
	log.Info("billing database ready")

	return nil
}

// Close closes the billing database handle
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
