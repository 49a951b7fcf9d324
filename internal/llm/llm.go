// Package llm provides the single-call completion capability consolidation
// and dream passes depend on, with interchangeable direct (Anthropic SDK)
// and signed-cloud (Bedrock SigV4) providers.
package llm

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/thrashr888/cortex/internal/cortexerr"
)

// DefaultTimeout is the wall-clock deadline applied to a single Complete
// call when the caller's context carries no earlier deadline.
const DefaultTimeout = 60 * time.Second

const maxAttempts = 3

// Client is the capability contract every provider implements: a single
// system+user completion call, no streaming.
type Client interface {
	Complete(ctx context.Context, system, user, model string, maxTokens int) (string, error)
}

// FromEnvironment selects a provider by which credentials are present:
// ANTHROPIC_API_KEY picks the direct provider; AWS_ACCESS_KEY_ID (or
// AWS_PROFILE/~/.aws/credentials) picks the signed Bedrock provider.
// Returns (nil, false) when neither is configured, meaning quick-sleep and
// dream are unavailable and only the micro pass can run.
func FromEnvironment() (Client, bool) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return NewAnthropicClient(key), true
	}
	if creds, ok := BedrockCredentialsFromEnvironment(); ok {
		return NewBedrockClient(creds), true
	}
	return nil, false
}

// withRetry runs fn up to maxAttempts times with exponential backoff,
// retrying only transient errors (ErrTransport, ErrRateLimited). ErrAuth
// and ErrValidation are never retried.
func withRetry(ctx context.Context, fn func() (string, error)) (string, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return "", err
		}
		if attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", cortexerr.ErrTimeout
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", lastErr
}

func isRetryable(err error) bool {
	return errors.Is(err, cortexerr.ErrTransport) || errors.Is(err, cortexerr.ErrRateLimited)
}
