package llm

import (
	"bufio"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/thrashr888/cortex/internal/cortexerr"
)

// BedrockCredentials holds what SigV4 signing needs. No pack example
// imports an AWS SDK or a SigV4 helper library (see DESIGN.md), so request
// signing here is hand-rolled on crypto/sha256 and crypto/hmac, mirroring
// the original implementation's own from-scratch signing.
type BedrockCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

// BedrockCredentialsFromEnvironment reads AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN (optional), and AWS_REGION; if
// any required value is absent it falls back to ~/.aws/credentials
// honoring AWS_PROFILE.
func BedrockCredentialsFromEnvironment() (BedrockCredentials, bool) {
	creds := BedrockCredentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Region:          os.Getenv("AWS_REGION"),
	}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		if creds.Region == "" {
			creds.Region = "us-east-1"
		}
		return creds, true
	}

	fileCreds, ok := loadCredentialsFile(os.Getenv("AWS_PROFILE"))
	if !ok {
		return BedrockCredentials{}, false
	}
	if fileCreds.Region == "" {
		fileCreds.Region = "us-east-1"
	}
	return fileCreds, true
}

// loadCredentialsFile parses the [profile] sections of ~/.aws/credentials.
// Only the subset of the ini format AWS actually emits is handled:
// "[name]" section headers and "key = value" lines.
func loadCredentialsFile(profile string) (BedrockCredentials, bool) {
	if profile == "" {
		profile = "default"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return BedrockCredentials{}, false
	}
	f, err := os.Open(filepath.Join(home, ".aws", "credentials"))
	if err != nil {
		return BedrockCredentials{}, false
	}
	defer f.Close()

	var creds BedrockCredentials
	var inSection bool
	var found bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inSection = strings.Trim(line, "[]") == profile
			continue
		}
		if !inSection {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "aws_access_key_id":
			creds.AccessKeyID = val
			found = true
		case "aws_secret_access_key":
			creds.SecretAccessKey = val
		case "aws_session_token":
			creds.SessionToken = val
		case "region":
			creds.Region = val
		}
	}
	if !found || creds.SecretAccessKey == "" {
		return BedrockCredentials{}, false
	}
	return creds, true
}

// BedrockClient invokes an Anthropic model on Amazon Bedrock using a
// hand-signed SigV4 request against the bedrock-runtime InvokeModel API.
type BedrockClient struct {
	creds      BedrockCredentials
	httpClient *http.Client
}

// NewBedrockClient builds a signed-provider client from the given
// credentials.
func NewBedrockClient(creds BedrockCredentials) *BedrockClient {
	return &BedrockClient{creds: creds, httpClient: http.DefaultClient}
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Message *string `json:"message,omitempty"`
}

// Complete signs and sends an InvokeModel request to bedrock-runtime,
// retrying transient failures with exponential backoff.
func (c *BedrockClient) Complete(ctx context.Context, system, user, model string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return withRetry(ctx, func() (string, error) {
		body, err := json.Marshal(bedrockRequest{
			AnthropicVersion: "bedrock-2023-05-31",
			MaxTokens:        maxTokens,
			System:           system,
			Messages:         []bedrockMessage{{Role: "user", Content: user}},
		})
		if err != nil {
			return "", fmt.Errorf("cortex: marshal bedrock request: %w", err)
		}

		host := fmt.Sprintf("bedrock-runtime.%s.amazonaws.com", c.creds.Region)
		path := fmt.Sprintf("/model/%s/invoke", url.PathEscape(model))
		reqURL := "https://" + host + path

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("cortex: build bedrock request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		if err := signSigV4(req, body, c.creds, host, "bedrock"); err != nil {
			return "", fmt.Errorf("cortex: sign bedrock request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("%w: %v", cortexerr.ErrTransport, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("%w: read response: %v", cortexerr.ErrTransport, err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", fmt.Errorf("%w: bedrock status %d: %s", cortexerr.ErrAuth, resp.StatusCode, respBody)
		case http.StatusTooManyRequests:
			return "", fmt.Errorf("%w: bedrock status 429: %s", cortexerr.ErrRateLimited, respBody)
		default:
			return "", fmt.Errorf("%w: bedrock status %d: %s", cortexerr.ErrTransport, resp.StatusCode, respBody)
		}

		var parsed bedrockResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("%w: unmarshal bedrock response: %v", cortexerr.ErrLlmProtocol, err)
		}

		var out strings.Builder
		for _, block := range parsed.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		if out.Len() == 0 {
			return "", fmt.Errorf("%w: empty bedrock completion", cortexerr.ErrLlmProtocol)
		}
		return out.String(), nil
	})
}

// signSigV4 computes and attaches the AWS Signature Version 4 headers for
// req, following the canonical four-step process: canonical request,
// string to sign, derived signing key, Authorization header.
func signSigV4(req *http.Request, body []byte, creds BedrockCredentials, host, service string) error {
	now := time.Now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("Host", host)
	if creds.SessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", creds.SessionToken)
	}

	payloadHash := sha256Hex(body)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	signedHeaders, canonicalHeaders := canonicalizeHeaders(req)
	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI(req.URL.Path),
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, creds.Region, service)
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveSigningKey(creds.SecretAccessKey, dateStamp, creds.Region, service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	authHeader := fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		creds.AccessKeyID, credentialScope, signedHeaders, signature,
	)
	req.Header.Set("Authorization", authHeader)
	return nil
}

func canonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func canonicalizeHeaders(req *http.Request) (signedHeaders, canonicalHeaders string) {
	names := make([]string, 0, len(req.Header)+1)
	headerMap := map[string]string{
		"host": req.Header.Get("Host"),
	}
	names = append(names, "host")
	for name := range req.Header {
		lower := strings.ToLower(name)
		if lower == "host" || lower == "authorization" {
			continue
		}
		headerMap[lower] = strings.Join(req.Header.Values(name), ",")
		names = append(names, lower)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%s:%s\n", n, strings.TrimSpace(headerMap[n]))
	}
	return strings.Join(names, ";"), b.String()
}

func deriveSigningKey(secret, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
