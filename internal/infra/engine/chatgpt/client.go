package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/0xTanzim/contentchat/internal/domain/engine"
	"github.com/0xTanzim/contentchat/pkg/metrics"
)

const (
	defaultBaseURL       = "https://api.openai.com/v1"
	defaultContextTokens = 4096
	fallbackEncoding     = "cl100k_base"
)

// Config carries the OpenAI-compatible engine settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	ContextTokens int
}

// Client implements engine.Engine against an OpenAI-compatible chat API.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	contextTokens int
	httpClient    *http.Client
	encoder       *tiktoken.Tiktoken
	logger        *slog.Logger
}

// NewClient constructs the engine adapter.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("engine api key cannot be empty")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	contextTokens := cfg.ContextTokens
	if contextTokens <= 0 {
		contextTokens = defaultContextTokens
	}

	encoder, err := tiktoken.EncodingForModel(cfg.Model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load token encoding: %w", err)
		}
	}

	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		model:         cfg.Model,
		contextTokens: contextTokens,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		encoder: encoder,
		logger:  logger.With("component", "engine.chatgpt"),
	}, nil
}

// CheckCapability probes whether the configured model can be used right now.
func (c *Client) CheckCapability(ctx context.Context, kind engine.Kind) (engine.Capability, error) {
	endpoint := c.baseURL + "/models/" + c.model
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return engine.Capability{}, fmt.Errorf("build capability request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return engine.Capability{}, engine.Classify(fmt.Errorf("capability probe: %w", err))
	}
	defer resp.Body.Close()

	capability := engine.Capability{Kind: kind, InputQuota: c.contextTokens}
	switch {
	case resp.StatusCode == http.StatusOK:
		capability.Availability = engine.Available
	case resp.StatusCode == http.StatusNotFound:
		// The backend knows the API but has not pulled this model yet.
		capability.Availability = engine.NeedsDownload
	default:
		capability.Availability = engine.Unavailable
	}
	return capability, nil
}

// CreateSession opens a fresh, exclusive generation context.
func (c *Client) CreateSession(_ context.Context, kind engine.Kind, opts engine.Options) (engine.Session, error) {
	session := &Session{
		id:     uuid.New(),
		kind:   kind,
		opts:   opts,
		client: c,
	}
	c.logger.Debug("engine session created", "session_id", session.id, "kind", string(kind))
	return session, nil
}

// countTokens estimates the token footprint of text.
func (c *Client) countTokens(text string) int {
	if text == "" {
		return 0
	}
	if c.encoder != nil {
		return len(c.encoder.Encode(text, nil, nil))
	}
	return len(text) / 4
}

// Wire types mirror the OpenAI chat payloads.

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Usage usagePayload `json:"usage"`
}

type usagePayload struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u usagePayload) toMetrics() metrics.TokenUsage {
	return metrics.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

type chatCompletionStreamChunk struct {
	Choices []struct {
		Delta        message `json:"delta"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) doRequest(ctx context.Context, req chatCompletionRequest) ([]byte, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, engine.Classify(fmt.Errorf("request chat completion: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, engine.ClassifyHTTP(resp.StatusCode, string(payload),
			fmt.Errorf("chat completion failed: status=%d body=%s", resp.StatusCode, string(payload)))
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) newHTTPRequest(ctx context.Context, req chatCompletionRequest) (*http.Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat completion request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

var _ engine.Engine = (*Client)(nil)
