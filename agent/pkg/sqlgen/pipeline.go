package sqlgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTimeout bounds the Generator call when the Config does not
// specify one.
const DefaultTimeout = 60 * time.Second

// Pipeline turns a free-text question into a SQL query over the billing
// schema: prompt construction, one Generator call, then the ordered repair
// sequence. It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	cfg Config
}

// New creates a Pipeline from an immutable Config.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("schema fetcher is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Pipeline{cfg: cfg}, nil
}

// logInfo logs an info message if a logger is configured.
func (p *Pipeline) logInfo(msg string, args ...any) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Info(msg, args...)
	}
}

// logWarn logs a warning if a logger is configured.
func (p *Pipeline) logWarn(msg string, args ...any) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Warn(msg, args...)
	}
}

// Generate produces the final SQL for a question. An empty tenant means
// operator scope across all tenants. On failure it returns a typed
// *GenerationError or *EmptyOutputError and no SQL.
func (p *Pipeline) Generate(ctx context.Context, question, tenant string) (string, error) {
	schema, err := p.cfg.Schema.FetchSchema(ctx)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to fetch schema: %w", err)}
	}

	systemPrompt := BuildSystemPrompt(schema, tenant, p.cfg.Clock.Now())

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := p.cfg.Clock.Now()
	raw, err := p.cfg.Generator.Complete(genCtx, systemPrompt, question)
	duration := p.cfg.Clock.Since(start)

	if p.cfg.Usage != nil {
		p.cfg.Usage.LogUsage(ctx, question, tenant, Usage{
			Duration:  duration,
			Succeeded: err == nil,
		})
	}
	if err != nil {
		// Nothing arrived, so there is nothing to repair.
		return "", &GenerationError{Err: err}
	}

	cleaned := CleanResponse(raw)
	if len(cleaned) < minCleanedLength {
		return "", &EmptyOutputError{Cleaned: cleaned}
	}

	sql := p.Repair(cleaned, tenant)

	p.logInfo("sqlgen: generated query",
		"tenant", tenant,
		"duration", duration,
		"chars", len(sql))

	return sql, nil
}

// repairPass is a named pure text transformation. Each pass is a no-op when
// its trigger pattern is absent.
type repairPass struct {
	name string
	fn   func(string) string
}

// repairSequence returns the ordered repair passes for a tenant context.
// Re-applying the full sequence to its own output is a fixed point.
func repairSequence(tenant string) []repairPass {
	return []repairPass{
		{"scope", func(s string) string { return EnforceScope(s, tenant) }},
		{"dates", NormalizeDates},
		{"aggregation", GuardAggregation},
		{"granularity", GuardGranularity},
	}
}

// Repair applies the ordered repair passes to cleaned query text. A pass
// that panics on malformed input fails soft: its input is kept and the
// remaining passes still run.
func (p *Pipeline) Repair(sql, tenant string) string {
	out := sql
	for _, pass := range repairSequence(tenant) {
		out = p.applyPass(pass, out)
	}
	return strings.TrimSpace(out)
}

func (p *Pipeline) applyPass(pass repairPass, sql string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			p.logWarn("sqlgen: repair pass failed, keeping input", "pass", pass.name, "panic", r)
			out = sql
		}
	}()
	return pass.fn(sql)
}
