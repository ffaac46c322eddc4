package sqlgen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Generator is the interface for the LLM backend that produces candidate SQL.
type Generator interface {
	// Complete sends a system prompt and a user prompt and returns the raw
	// response text. Implementations must respect ctx cancellation.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SchemaFetcher retrieves a textual description of the billing schema.
type SchemaFetcher interface {
	// FetchSchema returns a formatted string describing the database schema.
	FetchSchema(ctx context.Context) (string, error)
}

// Usage holds telemetry for a single generation request.
type Usage struct {
	Model        string
	Duration     time.Duration
	InputTokens  int64
	OutputTokens int64
	Succeeded    bool
}

// UsageLogger records generation telemetry. It is an external collaborator:
// recording is best-effort and never affects the pipeline result.
type UsageLogger interface {
	LogUsage(ctx context.Context, question, tenant string, usage Usage)
}

// Config holds the configuration for a Pipeline. It is an immutable value:
// concurrent callers with different configurations never interfere.
type Config struct {
	Logger    *slog.Logger
	Generator Generator
	Schema    SchemaFetcher
	Usage     UsageLogger     // optional
	Clock     clockwork.Clock // optional, defaults to the real clock
	Timeout   time.Duration   // bound on the Generator call (default 60s)
}

// GenerationError indicates the Generator call failed, timed out, or
// returned nothing. No SQL is produced and nothing is retried here.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "query generation failed"
	}
	return fmt.Sprintf("query generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// EmptyOutputError indicates the cleaned Generator response was empty or
// implausibly short. Callers treat it the same as a GenerationError.
type EmptyOutputError struct {
	Cleaned string
}

func (e *EmptyOutputError) Error() string {
	return fmt.Sprintf("generator returned no usable SQL (%d chars after cleanup)", len(e.Cleaned))
}
