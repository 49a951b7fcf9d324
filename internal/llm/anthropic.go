package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/thrashr888/cortex/internal/cortexerr"
)

// AnthropicClient talks directly to the Anthropic API via the official SDK,
// keyed by ANTHROPIC_API_KEY.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient builds a direct-provider client from an API key.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

// Complete issues a single system+user completion call, retrying transient
// transport and rate-limit failures with exponential backoff.
func (c *AnthropicClient) Complete(ctx context.Context, system, user, model string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return withRetry(ctx, func() (string, error) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
			},
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return "", cortexerr.ErrTimeout
			}
			return "", classifyAnthropicError(err)
		}

		var out strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		if out.Len() == 0 {
			return "", fmt.Errorf("%w: empty completion", cortexerr.ErrLlmProtocol)
		}
		return out.String(), nil
	})
}

// classifyAnthropicError maps the SDK's error surface onto the client
// contract's error taxonomy. The SDK reports HTTP failures as plain errors
// whose text carries the status; string matching here mirrors the same
// status-based classification that the bowerhall-sheldon SDK integration
// (see DESIGN.md) uses for retry decisions.
func classifyAnthropicError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "invalid x-api-key") || strings.Contains(msg, "authentication_error"):
		return fmt.Errorf("%w: %v", cortexerr.ErrAuth, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate_limit"):
		return fmt.Errorf("%w: %v", cortexerr.ErrRateLimited, err)
	case strings.Contains(msg, "529") || strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "502") || strings.Contains(msg, "500"):
		return fmt.Errorf("%w: %v", cortexerr.ErrTransport, err)
	default:
		return fmt.Errorf("%w: %v", cortexerr.ErrTransport, err)
	}
}

var errAnthropicUnconfigured = errors.New("llm: ANTHROPIC_API_KEY not set")
