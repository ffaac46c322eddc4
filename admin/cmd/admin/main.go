package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"
	_ "modernc.org/sqlite"

	"github.com/polarlink/cabinet/billing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	dbPathFlag := flag.String("db-path", "cabinet.db", "Path to the billing database (or set CABINET_DB_PATH env var)")

	// Commands
	migrateFlag := flag.Bool("migrate", false, "Run billing database migrations using goose")
	migrateStatusFlag := flag.Bool("migrate-status", false, "Show billing database migration status")
	seedDemoFlag := flag.Bool("seed-demo", false, "Insert a small demo dataset (users, devices, billing records)")

	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

	if envPath := os.Getenv("CABINET_DB_PATH"); envPath != "" {
		*dbPathFlag = envPath
	}

	if !*migrateFlag && !*migrateStatusFlag && !*seedDemoFlag {
		flag.Usage()
		return fmt.Errorf("no command specified")
	}

	ctx := context.Background()

	db, err := sql.Open("sqlite", *dbPathFlag+"?_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("failed to open billing database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if *migrateFlag {
		if err := billing.Migrate(ctx, log, db); err != nil {
			return err
		}
	}

	if *migrateStatusFlag {
		if err := billing.MigrationStatus(ctx, log, db); err != nil {
			return err
		}
	}

	if *seedDemoFlag {
		if err := seedDemo(ctx, log, db); err != nil {
			return err
		}
	}

	return nil
}

// seedDemo inserts a small consistent dataset for local development. The
// migrations must have been applied first.
func seedDemo(ctx context.Context, log *slog.Logger, db *sql.DB) error {
	log.Info("seeding demo dataset")

	statements := []string{
		`INSERT INTO users (id, username, company, role) VALUES
			(1, 'operator', '', 'operator'),
			(2, 'a.petrov', 'Arctic Research Station', 'client'),
			(3, 'j.larsen', 'Nordic Shipping', 'client')`,
		`INSERT INTO tariffs (id, service_type_id, name, price_per_unit, monthly_fee) VALUES
			(1, 1, 'SBD Basic', 0.90, 10.0),
			(2, 2, 'Voice Standard', 1.20, 15.0),
			(3, 3, 'Broadband Pro', 0.05, 99.0)`,
		`INSERT INTO agreements (id, user_id, tariff_id, start_date, status) VALUES
			(1, 2, 1, '2025-01-01', 'active'),
			(2, 2, 3, '2025-02-01', 'active'),
			(3, 3, 2, '2024-11-15', 'active')`,
		`INSERT INTO devices (imei, user_id, device_type, model, activated_at) VALUES
			('356938035643809', 2, 'tracker', 'RockBLOCK 9603', '2025-01-05'),
			('490154203237518', 2, 'terminal', 'Explorer 710', '2025-02-03'),
			('358065019104263', 3, 'phone', 'IsatPhone 2', '2024-11-20')`,
		`INSERT INTO billing_records (agreement_id, imei, service_type_id, billing_date, usage_amount, amount, paid) VALUES
			(1, '356938035643809', 1, '2025-05-02', 42.5, 38.25, 1),
			(1, '356938035643809', 1, '2025-05-14', 61.0, 54.90, 1),
			(2, '490154203237518', 3, '2025-05-10', 2048.0, 102.40, 0),
			(3, '358065019104263', 2, '2025-05-07', 34.0, 40.80, 1)`,
		`INSERT INTO sessions (imei, service_type_id, session_start, session_end, usage_amount) VALUES
			('356938035643809', 1, '2025-05-02T10:15:00Z', '2025-05-02T10:16:00Z', 42.5),
			('490154203237518', 3, '2025-05-10T08:00:00Z', '2025-05-10T09:30:00Z', 2048.0)`,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed statement failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	log.Info("demo dataset seeded")
	return nil
}
