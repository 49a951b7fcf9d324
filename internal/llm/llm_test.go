package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrashr888/cortex/internal/cortexerr"
)

func newTestRequest() (*http.Request, error) {
	return http.NewRequest(http.MethodPost, "https://bedrock-runtime.us-east-1.amazonaws.com/model/anthropic.claude/invoke", nil)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), func() (string, error) {
		attempts++
		return "", fmt.Errorf("%w: bad key", cortexerr.ErrAuth)
	})
	require.ErrorIs(t, err, cortexerr.ErrAuth)
	require.Equal(t, 1, attempts, "permanent errors must not be retried")
}

func TestWithRetryRetriesTransientErrorUpToMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), func() (string, error) {
		attempts++
		return "", fmt.Errorf("%w: 503", cortexerr.ErrTransport)
	})
	require.ErrorIs(t, err, cortexerr.ErrTransport)
	require.Equal(t, maxAttempts, attempts)
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	out, err := withRetry(context.Background(), func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", fmt.Errorf("%w: rate limited", cortexerr.ErrRateLimited)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 2, attempts)
}

func TestClassifyAnthropicErrorMapsStatusCodes(t *testing.T) {
	require.ErrorIs(t, classifyAnthropicError(errors.New("401 authentication_error")), cortexerr.ErrAuth)
	require.ErrorIs(t, classifyAnthropicError(errors.New("429 rate_limit_error")), cortexerr.ErrRateLimited)
	require.ErrorIs(t, classifyAnthropicError(errors.New("529 overloaded_error")), cortexerr.ErrTransport)
}

func TestSignSigV4ProducesStableAuthorizationShape(t *testing.T) {
	req, err := newTestRequest()
	require.NoError(t, err)

	creds := BedrockCredentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY",
		Region:          "us-east-1",
	}
	require.NoError(t, signSigV4(req, []byte(`{}`), creds, "bedrock-runtime.us-east-1.amazonaws.com", "bedrock"))

	auth := req.Header.Get("Authorization")
	require.Contains(t, auth, "AWS4-HMAC-SHA256")
	require.Contains(t, auth, "Credential=AKIDEXAMPLE/")
	require.Contains(t, auth, "SignedHeaders=")
	require.Contains(t, auth, "Signature=")
	require.NotEmpty(t, req.Header.Get("X-Amz-Date"))
	require.NotEmpty(t, req.Header.Get("X-Amz-Content-Sha256"))
}

func TestBedrockCredentialsFromEnvironmentRequiresBothKeys(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_PROFILE", "nonexistent-profile-for-test")
	_, ok := BedrockCredentialsFromEnvironment()
	require.False(t, ok)
}
