package sqlgen

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/polarlink/cabinet/agent/pkg/sqlgen/prompts"
)

// Cached prompt templates for query generation.
var (
	cachedGeneratePrompt string
	cachedPromptsOnce    sync.Once
	cachedPromptsErr     error
)

func loadGeneratePrompt() (string, error) {
	cachedPromptsOnce.Do(func() {
		sqlContextData, err := prompts.FS.ReadFile("SQL_CONTEXT.md")
		if err != nil {
			cachedPromptsErr = fmt.Errorf("failed to load SQL_CONTEXT: %w", err)
			return
		}
		sqlContext := strings.TrimSpace(string(sqlContextData))

		generateData, err := prompts.FS.ReadFile("GENERATE.md")
		if err != nil {
			cachedPromptsErr = fmt.Errorf("failed to load GENERATE: %w", err)
			return
		}
		rawPrompt := strings.TrimSpace(string(generateData))
		cachedGeneratePrompt = strings.ReplaceAll(rawPrompt, "{{SQL_CONTEXT}}", sqlContext)
	})
	return cachedGeneratePrompt, cachedPromptsErr
}

// BuildSystemPrompt constructs the generation system prompt from the schema
// description and tenant context. Deterministic given identical inputs and
// the same current date.
func BuildSystemPrompt(schema, tenant string, now time.Time) string {
	generatePrompt, err := loadGeneratePrompt()
	if err != nil {
		// Fall back to a basic prompt if the embedded templates fail to load.
		generatePrompt = "You are a SQL expert. Generate a single SQLite SELECT query for the user's request."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Today's date: %s (UTC)\n\n", now.UTC().Format("2006-01-02")))
	sb.WriteString(generatePrompt)
	sb.WriteString("\n\n## Database Schema\n\n```\n")
	sb.WriteString(schema)
	if !strings.HasSuffix(schema, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```")

	sb.WriteString("\n\n## Tenant Scope\n\n")
	if tenant != "" {
		sb.WriteString(fmt.Sprintf("The caller belongs to the company %q. Every query MUST restrict results to this company via users.company = '%s'.", tenant, tenant))
	} else {
		sb.WriteString("The caller is the operator. The query must span ALL tenants: do NOT add a company filter of any kind.")
	}

	return sb.String()
}
