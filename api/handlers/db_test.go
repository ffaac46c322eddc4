package handlers_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/polarlink/cabinet/agent/pkg/sqlgen"
	"github.com/polarlink/cabinet/api/handlers"
	apitesting "github.com/polarlink/cabinet/api/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillingSchemaFetcher_FetchSchema(t *testing.T) {
	apitesting.SetupTestBilling(t)

	fetcher := handlers.NewBillingSchemaFetcher()
	schema, err := fetcher.FetchSchema(t.Context())
	require.NoError(t, err)

	// Every billing table shows up with its columns.
	for _, table := range []string{"users", "service_types", "tariffs", "agreements", "devices", "sessions", "billing_records"} {
		assert.Contains(t, schema, table+":")
	}
	assert.Contains(t, schema, "- billing_date")
	assert.Contains(t, schema, "- usage_amount")
	assert.Contains(t, schema, "- company")

	// Foreign keys are described for the prompt.
	assert.Contains(t, schema, "FK: service_type_id -> service_types.id")
	assert.Contains(t, schema, "FK: agreement_id -> agreements.id")

	// Goose bookkeeping stays out of the prompt.
	assert.NotContains(t, schema, "goose_db_version")
}

func TestDBUsageLogger_LogUsage(t *testing.T) {
	db := apitesting.SetupTestBilling(t)

	logger := handlers.NewDBUsageLogger(slog.Default())
	logger.LogUsage(t.Context(), "SBD traffic for May", "Arctic Research Station", sqlgen.Usage{
		Model:        "claude-haiku-4-5",
		Duration:     1200 * time.Millisecond,
		InputTokens:  850,
		OutputTokens: 120,
		Succeeded:    true,
	})

	var (
		question, tenant, model         string
		durationMs, inTokens, outTokens int64
		succeeded                       int
	)
	err := db.QueryRow(`SELECT question, tenant, model, duration_ms, input_tokens, output_tokens, succeeded FROM usage_log`).
		Scan(&question, &tenant, &model, &durationMs, &inTokens, &outTokens, &succeeded)
	require.NoError(t, err)

	assert.Equal(t, "SBD traffic for May", question)
	assert.Equal(t, "Arctic Research Station", tenant)
	assert.Equal(t, "claude-haiku-4-5", model)
	assert.Equal(t, int64(1200), durationMs)
	assert.Equal(t, int64(850), inTokens)
	assert.Equal(t, int64(120), outTokens)
	assert.Equal(t, 1, succeeded)
}

func TestDBUsageLogger_RecordsFailures(t *testing.T) {
	db := apitesting.SetupTestBilling(t)

	logger := handlers.NewDBUsageLogger(slog.Default())
	logger.LogUsage(t.Context(), "anything", "", sqlgen.Usage{Succeeded: false})

	var succeeded int
	err := db.QueryRow(`SELECT succeeded FROM usage_log`).Scan(&succeeded)
	require.NoError(t, err)
	assert.Equal(t, 0, succeeded)
}
