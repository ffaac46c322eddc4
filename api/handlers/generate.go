package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/polarlink/cabinet/agent/pkg/sqlgen"
	"github.com/polarlink/cabinet/api/metrics"
)

// generateModel is the model used for SQL generation.
const generateModel = anthropic.ModelClaudeHaiku4_5

const generateMaxTokens = 1024

// userFacingGenerationError is the only generation failure text shown to
// callers. Details stay in the logs.
const userFacingGenerationError = "Query generation failed. Please rephrase your question."

type GenerateRequest struct {
	Question string `json:"question"`
	Tenant   string `json:"tenant,omitempty"`
}

type GenerateResponse struct {
	SQL   string `json:"sql,omitempty"`
	Error string `json:"error,omitempty"`
}

// requestUsage decorates DBUsageLogger with the model and token counts
// captured from the Anthropic callback for this request.
type requestUsage struct {
	inner        *DBUsageLogger
	model        string
	inputTokens  int64
	outputTokens int64
}

func (u *requestUsage) LogUsage(ctx context.Context, question, tenant string, usage sqlgen.Usage) {
	usage.Model = u.model
	usage.InputTokens = u.inputTokens
	usage.OutputTokens = u.outputTokens
	u.inner.LogUsage(ctx, question, tenant, usage)
}

// GenerateSQL handles POST /api/sql/generate. It turns a free-text billing
// question into a single SELECT over the billing schema, scoped to the
// caller's tenant (empty tenant means operator scope).
func GenerateSQL(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	}

	// Require Anthropic API key
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		slog.Error("ANTHROPIC_API_KEY is not set")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GenerateResponse{Error: "AI service is not configured. Please contact the administrator."})
		return
	}

	usage := &requestUsage{
		inner: NewDBUsageLogger(slog.Default()),
		model: string(generateModel),
	}
	gen := sqlgen.NewAnthropicGenerator(generateModel, generateMaxTokens, func(input, output int64, duration time.Duration, err error) {
		metrics.RecordAnthropicRequest("messages", duration, err)
		if err == nil {
			metrics.RecordAnthropicTokens(input, output)
		}
		usage.inputTokens = input
		usage.outputTokens = output
	})

	pipeline, err := sqlgen.New(sqlgen.Config{
		Logger:    slog.Default(),
		Generator: gen,
		Schema:    NewBillingSchemaFetcher(),
		Usage:     usage,
	})
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GenerateResponse{Error: internalError("Failed to build generation pipeline", err)})
		return
	}

	sql, err := pipeline.Generate(r.Context(), req.Question, req.Tenant)
	if err != nil {
		var genErr *sqlgen.GenerationError
		var emptyErr *sqlgen.EmptyOutputError
		if errors.As(err, &genErr) || errors.As(err, &emptyErr) {
			slog.Error("SQL generation failed", "error", err, "tenant", req.Tenant)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(GenerateResponse{Error: userFacingGenerationError})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GenerateResponse{Error: internalError("Failed to generate SQL", err)})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GenerateResponse{SQL: sql})
}
