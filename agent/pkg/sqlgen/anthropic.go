package sqlgen

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/getsentry/sentry-go"
)

// TokenUsageFunc receives token and latency telemetry for one completion.
type TokenUsageFunc func(inputTokens, outputTokens int64, duration time.Duration, err error)

// AnthropicGenerator implements Generator using the Anthropic Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	onUsage   TokenUsageFunc // optional
}

// NewAnthropicGenerator creates a Generator backed by Anthropic. The API key
// is read from ANTHROPIC_API_KEY by the SDK.
func NewAnthropicGenerator(model anthropic.Model, maxTokens int64, onUsage TokenUsageFunc) *AnthropicGenerator {
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &AnthropicGenerator{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: maxTokens,
		onUsage:   onUsage,
	}
}

// Complete sends the system prompt and user prompt and returns the raw
// response text.
func (g *AnthropicGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// Start Sentry span for AI monitoring
	span := sentry.StartSpan(ctx, "gen_ai.chat", sentry.WithDescription(fmt.Sprintf("chat %s", g.model)))
	span.SetData("gen_ai.operation.name", "chat")
	span.SetData("gen_ai.request.model", string(g.model))
	span.SetData("gen_ai.request.max_tokens", g.maxTokens)
	span.SetData("gen_ai.system", "anthropic")
	ctx = span.Context()
	defer span.Finish()

	start := time.Now()
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	duration := time.Since(start)

	if err != nil {
		if g.onUsage != nil {
			g.onUsage(0, 0, duration, err)
		}
		span.Status = sentry.SpanStatusInternalError
		return "", err
	}

	if g.onUsage != nil {
		g.onUsage(msg.Usage.InputTokens, msg.Usage.OutputTokens, duration, nil)
	}
	span.SetData("gen_ai.usage.input_tokens", msg.Usage.InputTokens)
	span.SetData("gen_ai.usage.output_tokens", msg.Usage.OutputTokens)
	span.SetData("gen_ai.usage.total_tokens", msg.Usage.InputTokens+msg.Usage.OutputTokens)
	span.Status = sentry.SpanStatusOK

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", nil
}
