// Package llm provides the client for the hosted chat-completion endpoint.
//
// The endpoint is an OpenAI-compatible collaborator (Groq by default): a
// single POST of role-tagged messages with bearer auth. Failures are
// returned as errors; the chat engine decides how they surface to users.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Paramfpv/lev/internal/log"
)

// ErrMissingAPIKey indicates no inference credential is configured.
var ErrMissingAPIKey = errors.New("missing GROQ_API_KEY")

// Message roles accepted by the completion endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DefaultTimeout bounds one completion call end to end. Callers treat an
// expired timeout as retryable, not as a crash.
const DefaultTimeout = 40 * time.Second

// Config holds inference endpoint settings.
type Config struct {
	APIKey      string
	APIURL      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration

	// Limiter proactively rate-limits outgoing calls. nil uses a
	// conservative default.
	Limiter *rate.Limiter
}

// Client calls the completion endpoint. It is stateless apart from the
// shared rate limiter and safe for concurrent use.
type Client struct {
	apiURL      string
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
	http        *http.Client
	limiter     *rate.Limiter
	logger      log.Logger
}

// NewClient creates a completion client. Returns ErrMissingAPIKey when no
// credential is configured so callers can degrade instead of crash.
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.groq.com/openai/v1/chat/completions"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.1-8b-instant"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Limit(2), 4)
	}

	return &Client{
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		http:        &http.Client{Timeout: cfg.Timeout},
		limiter:     cfg.Limiter,
		logger:      logger,
	}, nil
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the messages and returns the model's reply text.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("inference API returned %s: %s", resp.Status, detail)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("inference API returned no choices")
	}

	c.logger.Debug("completion received",
		"model", c.model,
		"messages", len(messages),
		"duration", time.Since(start))
	return out.Choices[0].Message.Content, nil
}
