package chatgpt

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/0xTanzim/contentchat/internal/domain/engine"
	apperrors "github.com/0xTanzim/contentchat/pkg/errors"
	"github.com/0xTanzim/contentchat/pkg/metrics"
)

// Session is one exclusive, single-use generation context. A destroyed
// session is never reused; callers open a fresh one per operation.
type Session struct {
	id     uuid.UUID
	kind   engine.Kind
	opts   engine.Options
	client *Client

	destroyed atomic.Bool
	active    atomic.Pointer[tokenSource]

	// usage accumulates across calls; sessions are exclusive, so no lock.
	usage metrics.TokenUsage
}

// Generate performs a non-streaming completion.
func (s *Session) Generate(ctx context.Context, input string) (string, error) {
	if s.destroyed.Load() {
		return "", apperrors.Wrap(engine.CodeError, "session already destroyed", nil)
	}

	body, err := s.client.doRequest(ctx, chatCompletionRequest{
		Model:       s.client.model,
		Messages:    s.messages(input),
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return "", err
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", engine.Classify(fmt.Errorf("decode chat completion: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", apperrors.Wrap(engine.CodeError, "engine returned no choices", nil)
	}
	if sample := out.Usage.toMetrics(); !sample.IsZero() {
		s.usage = s.usage.Add(sample)
		s.client.logger.Debug("engine call usage",
			"session_id", s.id,
			"prompt_tokens", sample.PromptTokens,
			"completion_tokens", sample.CompletionTokens)
	}
	return out.Choices[0].Message.Content, nil
}

// Usage reports the cumulative token usage of this session.
func (s *Session) Usage() metrics.TokenUsage {
	return s.usage
}

// GenerateStream opens the token stream for input. The returned source is
// read-once and cancellable independently of ctx.
func (s *Session) GenerateStream(ctx context.Context, input string) (engine.TokenSource, error) {
	if s.destroyed.Load() {
		return nil, apperrors.Wrap(engine.CodeError, "session already destroyed", nil)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	httpReq, err := s.client.newHTTPRequest(streamCtx, chatCompletionRequest{
		Model:       s.client.model,
		Messages:    s.messages(input),
		Temperature: s.opts.Temperature,
		Stream:      true,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := s.client.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, engine.Classify(fmt.Errorf("request chat completion stream: %w", err))
	}
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		cancel()
		return nil, engine.ClassifyHTTP(resp.StatusCode, string(payload),
			fmt.Errorf("chat completion stream failed: status=%d body=%s", resp.StatusCode, string(payload)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1024), 1<<20)

	source := &tokenSource{
		scanner: scanner,
		closer:  resp.Body,
		cancel:  cancel,
	}
	s.active.Store(source)
	return source, nil
}

// InputQuota reports the remaining input budget in tokens after the prompt
// overhead this session carries.
func (s *Session) InputQuota() int {
	quota := s.client.contextTokens - s.client.countTokens(s.opts.SystemPrompt)
	if quota < 0 {
		return 0
	}
	return quota
}

// Destroy tears the session down. Safe to call more than once.
func (s *Session) Destroy() {
	if s.destroyed.Swap(true) {
		return
	}
	if source := s.active.Load(); source != nil {
		source.Cancel()
	}
	if s.usage.IsZero() {
		s.client.logger.Debug("engine session destroyed", "session_id", s.id)
	} else {
		s.client.logger.Debug("engine session destroyed", "session_id", s.id, "total_tokens", s.usage.TotalTokens)
	}
}

func (s *Session) messages(input string) []message {
	msgs := make([]message, 0, 2)
	if s.opts.SystemPrompt != "" {
		msgs = append(msgs, message{Role: "system", Content: s.opts.SystemPrompt})
	}
	return append(msgs, message{Role: "user", Content: input})
}

var _ engine.Session = (*Session)(nil)

// tokenSource decodes the SSE stream into text deltas.
type tokenSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	cancel  context.CancelFunc
	closed  atomic.Bool
}

// Read returns the next delta. It reports done on [DONE] or a clean EOF.
func (t *tokenSource) Read(_ context.Context) (string, bool, error) {
	if t.closed.Load() {
		return "", true, nil
	}
	for {
		if !t.scanner.Scan() {
			err := t.scanner.Err()
			if t.closed.Load() {
				return "", true, nil
			}
			t.Cancel()
			if err != nil {
				return "", false, engine.Classify(err)
			}
			return "", true, nil
		}
		line := strings.TrimSpace(t.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			t.Cancel()
			return "", true, nil
		}
		var chunk chatCompletionStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			t.Cancel()
			return "", false, engine.Classify(fmt.Errorf("decode stream chunk: %w", err))
		}
		var delta strings.Builder
		for _, choice := range chunk.Choices {
			delta.WriteString(choice.Delta.Content)
		}
		if delta.Len() == 0 {
			continue
		}
		return delta.String(), false, nil
	}
}

// Cancel aborts the in-flight request and closes the body. Idempotent.
func (t *tokenSource) Cancel() {
	if t.closed.Swap(true) {
		return
	}
	t.cancel()
	_ = t.closer.Close()
}

var _ engine.TokenSource = (*tokenSource)(nil)
