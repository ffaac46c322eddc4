package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/polarlink/cabinet/agent/pkg/sqlgen"
	"github.com/polarlink/cabinet/api/config"
	"github.com/polarlink/cabinet/api/metrics"
)

// BillingSchemaFetcher implements sqlgen.SchemaFetcher against the live
// billing database.
type BillingSchemaFetcher struct{}

// NewBillingSchemaFetcher creates a new BillingSchemaFetcher.
func NewBillingSchemaFetcher() *BillingSchemaFetcher {
	return &BillingSchemaFetcher{}
}

// FetchSchema introspects tables, columns and foreign keys from SQLite and
// formats them as readable text for the generation prompt.
func (f *BillingSchemaFetcher) FetchSchema(ctx context.Context) (string, error) {
	start := time.Now()
	rows, err := config.DB.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name NOT LIKE 'goose_%'
		ORDER BY name
	`)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordBillingQuery(duration, err)
		return "", fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()
	metrics.RecordBillingQuery(duration, nil)

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, table := range tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(table + ":\n")

		if err := f.writeColumns(ctx, &sb, table); err != nil {
			return "", err
		}
		if err := f.writeForeignKeys(ctx, &sb, table); err != nil {
			return "", err
		}
	}

	return sb.String(), nil
}

func (f *BillingSchemaFetcher) writeColumns(ctx context.Context, sb *strings.Builder, table string) error {
	rows, err := config.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return fmt.Errorf("failed to fetch columns for %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return err
		}
		sb.WriteString("  - " + name + " (" + colType)
		if pk > 0 {
			sb.WriteString(", primary key")
		}
		sb.WriteString(")\n")
	}
	return rows.Err()
}

func (f *BillingSchemaFetcher) writeForeignKeys(ctx context.Context, sb *strings.Builder, table string) error {
	rows, err := config.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return fmt.Errorf("failed to fetch foreign keys for %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, seq            int
			refTable, from, to string
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		sb.WriteString("  FK: " + from + " -> " + refTable + "." + to + "\n")
	}
	return rows.Err()
}

// DBUsageLogger implements sqlgen.UsageLogger, persisting each generation
// attempt into the usage_log table and the prometheus counters.
type DBUsageLogger struct {
	log *slog.Logger
}

// NewDBUsageLogger creates a new DBUsageLogger.
func NewDBUsageLogger(log *slog.Logger) *DBUsageLogger {
	return &DBUsageLogger{log: log}
}

// LogUsage records one generation attempt. Failures to persist are logged
// and swallowed, generation must not fail on accounting.
func (l *DBUsageLogger) LogUsage(ctx context.Context, question, tenant string, usage sqlgen.Usage) {
	succeeded := 0
	if usage.Succeeded {
		succeeded = 1
	}

	start := time.Now()
	_, err := config.DB.ExecContext(ctx, `
		INSERT INTO usage_log (id, question, tenant, model, duration_ms, input_tokens, output_tokens, succeeded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), question, tenant, usage.Model, usage.Duration.Milliseconds(),
		usage.InputTokens, usage.OutputTokens, succeeded)
	metrics.RecordBillingQuery(time.Since(start), err)
	if err != nil {
		l.log.Warn("failed to persist usage log entry", "error", err)
	}
}
